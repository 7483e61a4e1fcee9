// ABOUTME: HTTP surface for the blogging service: account, session, and route wiring
// ABOUTME: Composes Identify + RequireGoodStanding around the post handlers

package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/inkwell/internal/auth"
	"github.com/2389/inkwell/internal/store"
)

// Config holds HTTP-layer configuration
type Config struct {
	// SessionDuration is how long browser sessions last
	SessionDuration time.Duration

	// TokenDuration is how long issued API tokens last
	TokenDuration time.Duration
}

// Handlers owns the blog's HTTP endpoints
type Handlers struct {
	store    store.Store
	verifier *auth.JWTVerifier
	config   Config
	logger   *slog.Logger
}

// New creates the HTTP handler set. verifier may be nil, which disables
// bearer-token auth and the /token endpoint.
func New(st store.Store, verifier *auth.JWTVerifier, cfg Config) *Handlers {
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = 7 * 24 * time.Hour
	}
	if cfg.TokenDuration <= 0 {
		cfg.TokenDuration = 24 * time.Hour
	}
	return &Handlers{
		store:    st,
		verifier: verifier,
		config:   cfg,
		logger:   slog.Default().With("component", "web"),
	}
}

// RegisterRoutes registers all routes on the given mux. Protected endpoints
// are wrapped by the authorization gate; the Identify layer is applied by
// Router around the whole mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	gate := auth.RequireGoodStanding(h.store)

	// Posts (all gated)
	mux.HandleFunc("GET /{$}", gate(h.handleListPosts))
	mux.HandleFunc("GET /post/{post_id}", gate(h.handleGetPost))
	mux.HandleFunc("POST /new-post", gate(h.handleCreatePost))
	mux.HandleFunc("POST /delete-my-post/{post_id}", gate(h.handleDeletePost))
	mux.HandleFunc("GET /export-my-posts.csv", gate(h.handleExportPosts))

	// Account
	mux.HandleFunc("GET /my-info", gate(h.handleMyInfo))
	mux.HandleFunc("POST /create-account", h.handleCreateAccount)
	mux.HandleFunc("POST /delete-account", gate(h.handleDeleteAccount))

	// Session lifecycle (public)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /logout", h.handleLogout)
	mux.HandleFunc("POST /token", h.handleToken)

	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

// Router builds the complete handler chain: request logging, caller
// identification, then the route table.
func (h *Handlers) Router() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var verifier auth.TokenVerifier
	if h.verifier != nil {
		verifier = h.verifier
	}

	root := auth.Identify(h.store, verifier)(mux)
	return requestLogger(root)
}

// generateSecureToken returns a hex-encoded random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// createSession creates a new session for a user and sets the cookie
func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	sessionID, err := generateSecureToken(32)
	if err != nil {
		return err
	}

	session := &store.Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(h.config.SessionDuration),
	}

	if err := h.store.CreateSession(r.Context(), session); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// clearSessionCookie expires the session cookie on the client
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// dummyHash keeps password comparison constant-time when the account
// doesn't exist, so login timing can't enumerate emails.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// checkCredentials resolves an account by email and verifies the password.
// Returns nil, nil when the credentials don't match.
func (h *Handlers) checkCredentials(r *http.Request, email, password string) (*store.User, error) {
	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, nil
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return user, nil
}

// handleCreateAccount handles POST /create-account (intentionally public).
// Form fields: first_name and password required; last_name and email
// optional, though login and token issuance need an email.
func (h *Handlers) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	firstName := r.PostFormValue("first_name")
	password := r.PostFormValue("password")
	if firstName == "" || password == "" {
		writeError(w, http.StatusBadRequest, "first_name and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hashing password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	id, err := h.store.CreateUser(r.Context(), &store.User{
		FirstName:    firstName,
		LastName:     r.PostFormValue("last_name"),
		Email:        r.PostFormValue("email"),
		PasswordHash: string(hash),
		Status:       store.StatusOnReview,
		Created:      time.Now(),
	})
	if errors.Is(err, store.ErrConstraint) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		h.logger.Error("creating account failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("account created", "user_id", id)
	writeJSON(w, http.StatusOK, envelope{"result": "ok"})
}

// handleDeleteAccount handles POST /delete-account (gated). Destroys the
// caller's account; posts and sessions cascade in the store.
func (h *Handlers) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustIdentity(r.Context())

	if err := h.store.DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("deleting account failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	clearSessionCookie(w)
	h.logger.Info("account deleted", "user_id", userID)
	writeJSON(w, http.StatusOK, envelope{"result": "ok"})
}

// handleLogin handles POST /login. Form fields: email, password.
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.checkCredentials(r, email, password)
	if err != nil {
		h.logger.Error("login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := h.createSession(w, r, user.ID); err != nil {
		h.logger.Error("creating session failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("login successful", "user_id", user.ID)
	writeJSON(w, http.StatusOK, envelope{"result": "ok"})
}

// handleLogout handles POST /logout. Always succeeds for the client.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.store.DeleteSession(r.Context(), cookie.Value); err != nil {
			h.logger.Error("deleting session failed", "error", err)
		}
	}

	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, envelope{"result": "ok"})
}

// handleToken handles POST /token: exchanges email+password for a bearer
// JWT usable by API clients instead of a cookie session.
func (h *Handlers) handleToken(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, "token auth is not configured")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.checkCredentials(r, email, password)
	if err != nil {
		h.logger.Error("token lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.verifier.Generate(user.ID, h.config.TokenDuration)
	if err != nil {
		h.logger.Error("generating token failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, envelope{"result": "ok", "token": token})
}

// handleHealthz handles GET /healthz.
func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"result": "ok"})
}
