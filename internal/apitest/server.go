package apitest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server is an in-process marketplace API with knobs for failure injection.
type Server struct {
	*httptest.Server
	UC *Usecase

	refreshCalls atomic.Int64
	loginCalls   atomic.Int64
	logoutCalls  atomic.Int64
	unauthorized atomic.Int64

	refreshDelay  atomic.Int64
	refreshStatus atomic.Int32
	loginStatus   atomic.Int32
	rejectAccess  atomic.Bool

	mu          sync.Mutex
	authHeaders []string
	discussions []Discussion
	orders      map[int64][]Order
	nextMsgID   int64
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

type Order struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status"`
	TotalPrice string    `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

func New(cfg Config) *Server {
	s := &Server{UC: NewUseCase(cfg), orders: map[int64][]Order{}}
	s.Server = httptest.NewServer(s.Router())
	return s
}

// BaseURL is the API root the client should be configured with.
func (s *Server) BaseURL() string { return s.URL + "/api" }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/token/refresh", s.refreshToken)
		r.Post("/logout", s.logout)
		r.Post("/users/verify-otp", s.verifyOTP)
		r.Get("/public/echo", s.echo)

		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Get("/users/me", s.me)
			r.Patch("/users/me", s.updateMe)
			r.Get("/commandes/mes-commandes", s.myOrders)
			r.Get("/discussions/discussions", s.listDiscussions)
			r.Post("/discussion/send-message", s.sendMessage)
			r.Post("/echo", s.echo)
			r.Get("/echo", s.echo)
		})
	})
	return r
}

func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }
func (s *Server) LoginCalls() int64   { return s.loginCalls.Load() }
func (s *Server) LogoutCalls() int64  { return s.logoutCalls.Load() }
func (s *Server) Unauthorized() int64 { return s.unauthorized.Load() }

func (s *Server) SetRefreshDelay(d time.Duration) { s.refreshDelay.Store(int64(d)) }

// FailRefresh makes the refresh endpoint answer with status; 0 restores normal behaviour.
func (s *Server) FailRefresh(status int) { s.refreshStatus.Store(int32(status)) }

// FailLogin makes the login endpoint answer with status; 0 restores normal behaviour.
func (s *Server) FailLogin(status int) { s.loginStatus.Store(int32(status)) }

// RejectAccess makes protected endpoints answer 401 whatever the token.
func (s *Server) RejectAccess(v bool) { s.rejectAccess.Store(v) }

func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders...)
}

func (s *Server) AddDiscussion(d Discussion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range d.Messages {
		if m.ID > s.nextMsgID {
			s.nextMsgID = m.ID
		}
	}
	s.discussions = append(s.discussions, d)
}

// AddMessage appends a message from sender to the discussion and returns it.
func (s *Server) AddMessage(discussionID int64, sender Sender, content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsgID++
	m := Message{ID: s.nextMsgID, Content: content, Sender: sender, CreatedAt: time.Now().UTC()}
	for i := range s.discussions {
		if s.discussions[i].ID == discussionID {
			s.discussions[i].Messages = append(s.discussions[i].Messages, m)
		}
	}
	return m
}

func (s *Server) AddOrder(userID int64, o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[userID] = append(s.orders[userID], o)
}

type ctxKey int

const userIDKey ctxKey = 1

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
		s.mu.Unlock()

		token := bearer(r)
		if token == "" {
			s.deny(w, "Authentication credentials were not provided.")
			return
		}
		uid, err := s.UC.ParseAccess(token)
		if err != nil || s.rejectAccess.Load() {
			s.deny(w, "Given token not valid for any token type")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), uid)))
	})
}

func (s *Server) deny(w http.ResponseWriter, detail string) {
	s.unauthorized.Add(1)
	writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": detail, "code": "token_not_valid"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)
	if st := s.loginStatus.Load(); st != 0 {
		writeJSON(w, int(st), map[string]string{"detail": http.StatusText(int(st))})
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	missing := map[string][]string{}
	if in.Email == "" {
		missing["email"] = []string{"This field is required."}
	}
	if in.Password == "" {
		missing["password"] = []string{"This field is required."}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": missing})
		return
	}

	usr, access, refresh, err := s.UC.SignIn(in.Email, in.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	case errors.Is(err, ErrInactive):
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Account not activated"})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tokenBody(usr, access, refresh))
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Phone string `json:"phone_full"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	usr, access, refresh, err := s.UC.VerifyOTP(in.Phone, in.OTP)
	switch {
	case errors.Is(err, ErrUnknownPhone):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Utilisateur non trouvé"})
		return
	case errors.Is(err, ErrInvalidOTP):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Code OTP invalide"})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tokenBody(usr, access, refresh))
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		t := time.NewTimer(d)
		select {
		case <-r.Context().Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
	if st := s.refreshStatus.Load(); st != 0 {
		writeJSON(w, int(st), map[string]string{"detail": http.StatusText(int(st))})
		return
	}
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"refresh_token": []string{"This field is required."}})
		return
	}
	access, refresh, err := s.UC.Refresh(in.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	out := map[string]string{"access_token": access}
	if refresh != "" {
		out["refresh_token"] = refresh
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.logoutCalls.Add(1)
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	s.UC.Logout(in.RefreshToken)
	w.WriteHeader(http.StatusResetContent)
}

type profileBody struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	IsSeller bool   `json:"is_seller"`
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	usr, ok := s.UC.User(userIDFrom(r.Context()))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	s.UC.mu.Lock()
	body := profileBody{ID: usr.ID, Name: usr.Name, Email: usr.Email, Phone: usr.Phone, Location: usr.Location}
	s.UC.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	usr, ok := s.UC.User(userIDFrom(r.Context()))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	var in struct {
		Name     *string `json:"name"`
		Location *string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	s.UC.mu.Lock()
	if in.Name != nil {
		usr.Name = *in.Name
	}
	if in.Location != nil {
		usr.Location = *in.Location
	}
	body := profileBody{ID: usr.ID, Name: usr.Name, Email: usr.Email, Phone: usr.Phone, Location: usr.Location}
	s.UC.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) myOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]Order{}, s.orders[userIDFrom(r.Context())]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// listDiscussions answers in the paginated shape when ?page is given.
func (s *Server) listDiscussions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]Discussion, 0, len(s.discussions))
	for _, d := range s.discussions {
		d.Messages = append([]Message(nil), d.Messages...)
		out = append(out, d)
	}
	s.mu.Unlock()
	if r.URL.Query().Get("page") != "" {
		writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "results": out})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ListingID int64  `json:"listing_id"`
		Content   string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"content": []string{"This field may not be blank."}})
		return
	}
	uid := userIDFrom(r.Context())
	s.mu.Lock()
	var target *Discussion
	for i := range s.discussions {
		if s.discussions[i].Listing.ID == in.ListingID {
			target = &s.discussions[i]
		}
	}
	if target == nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Listing not found."})
		return
	}
	s.nextMsgID++
	m := Message{ID: s.nextMsgID, Content: in.Content, Sender: Sender{ID: uid}, CreatedAt: time.Now().UTC()}
	target.Messages = append(target.Messages, m)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, m)
}

// echo returns what the handler saw, for transport tests.
func (s *Server) echo(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    userIDFrom(r.Context()),
		"method":     r.Method,
		"body":       string(body),
		"request_id": r.Header.Get("X-Request-ID"),
		"auth":       r.Header.Get("Authorization"),
	})
}

func tokenBody(usr *User, access, refresh string) map[string]any {
	return map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"user": map[string]any{
			"id":        usr.ID,
			"email":     usr.Email,
			"full_name": usr.Name,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
