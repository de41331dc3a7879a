package event

import "time"

type Kind string

const (
	KindLogin         Kind = "login"
	KindRefreshed     Kind = "refreshed"
	KindRefreshFailed Kind = "refresh_failed"
	KindForcedLogout  Kind = "forced_logout"
	KindLogout        Kind = "logout"
)

func (k Kind) Valid() bool {
	switch k {
	case KindLogin, KindRefreshed, KindRefreshFailed, KindForcedLogout, KindLogout:
		return true
	}
	return false
}

type Event struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	UserID  int64     `json:"user_id,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
	At      time.Time `json:"at"`
}
