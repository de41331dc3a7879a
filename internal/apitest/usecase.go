package apitest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/NordCoder/Sugu/internal/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("account is not activated")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrUnknownPhone       = errors.New("unknown phone")
)

type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RotateRefresh makes the refresh endpoint revoke the presented token and issue a new one.
	RotateRefresh bool
	Now           func() time.Time
}

type User struct {
	ID           int64
	Email        string
	Name         string
	Phone        string
	Location     string
	PasswordHash []byte
	Active       bool
}

type refreshRecord struct {
	userID    int64
	expiresAt time.Time
	revoked   bool
}

type pendingRegistration struct {
	otp  string
	user *User
}

// Usecase is the auth side of the fake marketplace API.
type Usecase struct {
	mu      sync.Mutex
	cfg     Config
	nextID  int64
	byEmail map[string]*User
	byID    map[int64]*User
	pending map[string]pendingRegistration
	refresh map[string]*refreshRecord
}

func NewUseCase(cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte("apitest-secret")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 20 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	return &Usecase{
		cfg:     cfg,
		byEmail: map[string]*User{},
		byID:    map[int64]*User{},
		pending: map[string]pendingRegistration{},
		refresh: map[string]*refreshRecord{},
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (u *Usecase) AddUser(email, password, name string, active bool) *User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("hash password: %v", err))
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nextID++
	usr := &User{ID: u.nextID, Email: normalizeEmail(email), Name: name, PasswordHash: hash, Active: active}
	u.byEmail[usr.Email] = usr
	u.byID[usr.ID] = usr
	return usr
}

// AddPendingRegistration registers an account that becomes usable once otp is confirmed.
func (u *Usecase) AddPendingRegistration(phone, otp, email, name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nextID++
	u.pending[phone] = pendingRegistration{otp: otp, user: &User{ID: u.nextID, Email: normalizeEmail(email), Name: name, Phone: phone}}
}

func (u *Usecase) SignIn(email, password string) (*User, string, string, error) {
	u.mu.Lock()
	usr, ok := u.byEmail[normalizeEmail(email)]
	u.mu.Unlock()
	if !ok {
		return nil, "", "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(password)) != nil {
		return nil, "", "", ErrInvalidCredentials
	}
	if !usr.Active {
		return nil, "", "", ErrInactive
	}
	access, refresh, err := u.issueTokens(usr.ID)
	if err != nil {
		return nil, "", "", err
	}
	return usr, access, refresh, nil
}

func (u *Usecase) VerifyOTP(phone, otp string) (*User, string, string, error) {
	u.mu.Lock()
	p, ok := u.pending[phone]
	if !ok {
		u.mu.Unlock()
		return nil, "", "", ErrUnknownPhone
	}
	if p.otp != otp {
		u.mu.Unlock()
		return nil, "", "", ErrInvalidOTP
	}
	delete(u.pending, phone)
	p.user.Active = true
	u.byEmail[p.user.Email] = p.user
	u.byID[p.user.ID] = p.user
	u.mu.Unlock()

	access, refresh, err := u.issueTokens(p.user.ID)
	if err != nil {
		return nil, "", "", err
	}
	return p.user, access, refresh, nil
}

// Refresh returns a new access token and, with rotation on, a new refresh token.
func (u *Usecase) Refresh(raw string) (string, string, error) {
	if raw == "" {
		return "", "", ErrInvalidCredentials
	}
	hash := auth.HashToken(raw)
	now := u.cfg.Now()

	u.mu.Lock()
	rec, ok := u.refresh[hash]
	if !ok || rec.revoked || rec.expiresAt.Before(now) {
		u.mu.Unlock()
		return "", "", ErrInvalidCredentials
	}
	if u.cfg.RotateRefresh {
		rec.revoked = true
	}
	userID := rec.userID
	u.mu.Unlock()

	if !u.cfg.RotateRefresh {
		access, err := u.IssueAccess(userID, u.cfg.AccessTTL)
		return access, "", err
	}
	return u.issueTokens(userID)
}

func (u *Usecase) Logout(raw string) {
	if raw == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if rec, ok := u.refresh[auth.HashToken(raw)]; ok {
		rec.revoked = true
	}
}

// RevokeAll invalidates every refresh token, as a server-side logout would.
func (u *Usecase) RevokeAll() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, rec := range u.refresh {
		rec.revoked = true
	}
}

func (u *Usecase) RefreshValid(raw string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.refresh[auth.HashToken(raw)]
	return ok && !rec.revoked
}

// IssueAccess signs an access token for userID; a negative ttl yields an expired one.
func (u *Usecase) IssueAccess(userID int64, ttl time.Duration) (string, error) {
	return auth.SignedString(auth.NewAccessClaims(userID, u.cfg.Now(), ttl), u.cfg.Secret)
}

func (u *Usecase) issueTokens(userID int64) (access string, refreshRaw string, err error) {
	access, err = u.IssueAccess(userID, u.cfg.AccessTTL)
	if err != nil {
		return "", "", err
	}
	refreshRaw, err = auth.GenerateRawToken(32)
	if err != nil {
		return "", "", fmt.Errorf("gen refresh: %w", err)
	}
	u.mu.Lock()
	u.refresh[auth.HashToken(refreshRaw)] = &refreshRecord{userID: userID, expiresAt: u.cfg.Now().Add(u.cfg.RefreshTTL)}
	u.mu.Unlock()
	return access, refreshRaw, nil
}

func (u *Usecase) ParseAccess(token string) (int64, error) {
	cl, err := auth.ParseAndValidate(token, u.cfg.Secret, u.cfg.Now())
	if err != nil {
		return 0, ErrInvalidCredentials
	}
	return cl.UserID, nil
}

func (u *Usecase) User(id int64) (*User, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.byID[id]
	return usr, ok
}
