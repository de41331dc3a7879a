package session

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// Keys is the persisted unit. It is written together at login and cleared together.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}
