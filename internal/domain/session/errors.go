package session

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrMalformedToken   = errors.New("malformed token")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrSessionExpired   = errors.New("session expired")
	ErrTransport        = errors.New("transport error")
	ErrStoreUnavailable = errors.New("token store unavailable")

	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is not activated")
	ErrThrottled          = errors.New("too many attempts")
)

type ValidationError struct {
	Fields  map[string]string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message == "" {
			return ErrInvalidInput.Error()
		}
		return ErrInvalidInput.Error() + ": " + e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// APIError is a non-2xx answer the caller has to interpret itself.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindMalformedToken  ErrorKind = "malformed_token"
	KindRefreshFailed   ErrorKind = "refresh_failed"
	KindSessionExpired  ErrorKind = "session_expired"
	KindTransport       ErrorKind = "transport"
	KindOther           ErrorKind = "other"
)

func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return KindSessionExpired
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrRefreshFailed):
		return KindRefreshFailed
	case errors.Is(err, ErrMalformedToken):
		return KindMalformedToken
	case errors.Is(err, ErrTransport):
		return KindTransport
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindTransport
	}
	return KindOther
}
