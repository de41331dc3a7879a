package marketplace

import "time"

type Profile struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
	Location    string `json:"location"`
	IsSeller    bool   `json:"is_seller"`
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	CountryCode *string `json:"country_code,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Location    *string `json:"location,omitempty"`
}

type Order struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	// TotalPrice is a decimal string as sent by the API.
	TotalPrice string    `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

type Listing struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type Sender struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Message struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

type Discussion struct {
	ID       int64     `json:"id"`
	Listing  Listing   `json:"listing"`
	Messages []Message `json:"messages"`
}
