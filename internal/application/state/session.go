package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/adapters/storage/kv"
	"gymdesk/internal/domain/account"
)

// ErrNoClient is returned when an online session call is made before a client is attached.
var ErrNoClient = errors.New("session has no API client")

// AuthClient is the subset of the REST client the session uses.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (api.AuthResponse, error)
	Register(ctx context.Context, reg account.Registration) (api.AuthResponse, error)
	Profile(ctx context.Context) (account.User, error)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithOfflineLogin lets Login fall back to a cached bcrypt credential when the backend is unreachable.
func WithOfflineLogin(enabled bool) SessionOption {
	return func(s *Session) { s.offlineLogin = enabled }
}

// WithExpiredHook sets the callback run after a forced logout.
func WithExpiredHook(hook func()) SessionOption {
	return func(s *Session) { s.onExpired = hook }
}

// WithSessionClock overrides time.Now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// Session tracks the signed-in user and bearer token.
// INVARIANT: user is non-nil iff token is non-empty
type Session struct {
	mu           sync.RWMutex
	store        Store
	client       AuthClient
	user         *account.User
	token        string
	offline      bool
	offlineLogin bool
	onExpired    func()
	now          func() time.Time
}

// NewSession restores the session from the store without any network call.
// POST: IsAuthenticated() is true iff a token and a decodable user are stored
func NewSession(ctx context.Context, store Store, opts ...SessionOption) *Session {
	s := &Session{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	token, ok := store.GetString(ctx, kv.KeyAuthToken)
	if !ok || token == "" {
		return s
	}
	var user account.User
	if !store.Get(ctx, kv.KeyUser, &user) {
		slog.Warn("auth_event", "event", "session_user_missing")
		return s
	}
	s.token = token
	s.user = &user
	return s
}

// SetClient attaches the REST client. The client itself reads Token and calls
// ForceLogout, so it is built after the session.
func (s *Session) SetClient(c AuthClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}

// IsAuthenticated reports whether a user is signed in.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// User returns the signed-in user.
func (s *Session) User() (account.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return account.User{}, false
	}
	return *s.user, true
}

// Token returns the bearer token, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Role returns the signed-in user's role.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Role
}

// Offline reports whether the session was unlocked from the offline credential.
func (s *Session) Offline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offline
}

// Login signs in against the backend.
// POST: on success the token and user are persisted; on failure prior state is untouched
func (s *Session) Login(ctx context.Context, email, password string) (account.User, error) {
	if err := account.ValidateEmail(email); err != nil {
		return account.User{}, err
	}
	if password == "" {
		return account.User{}, account.ErrEmptyPassword
	}
	client, err := s.authClient()
	if err != nil {
		return account.User{}, err
	}

	resp, err := client.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, api.ErrNetwork) && s.offlineLogin {
			return s.loginOffline(ctx, email, password, err)
		}
		return account.User{}, err
	}
	s.establish(ctx, resp, email, false)
	if s.offlineLogin {
		s.saveCredential(ctx, email, password, resp)
	}
	return resp.User, nil
}

// Register creates the account server-side first, then signs in as it.
func (s *Session) Register(ctx context.Context, reg account.Registration) (account.User, error) {
	if err := reg.Validate(); err != nil {
		return account.User{}, err
	}
	client, err := s.authClient()
	if err != nil {
		return account.User{}, err
	}
	resp, err := client.Register(ctx, reg)
	if err != nil {
		return account.User{}, err
	}
	s.establish(ctx, resp, reg.Email, false)
	return resp.User, nil
}

// Logout clears the local session. The backend is not called.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.clearLocked(ctx)
	s.mu.Unlock()
	slog.Info("auth_event", "event", "logout")
}

// ForceLogout clears the session after the backend rejected the token and runs the expired hook.
func (s *Session) ForceLogout() {
	s.mu.Lock()
	wasAuthenticated := s.token != ""
	s.clearLocked(context.Background())
	hook := s.onExpired
	s.mu.Unlock()

	if !wasAuthenticated {
		return
	}
	slog.Warn("auth_event", "event", "forced_logout")
	if hook != nil {
		hook()
	}
}

// RefreshUser re-reads the profile. Failures are logged and leave the session intact.
func (s *Session) RefreshUser(ctx context.Context) error {
	client, err := s.authClient()
	if err != nil {
		return err
	}
	user, err := client.Profile(ctx)
	if err != nil {
		slog.Warn("auth_event", "event", "refresh_failed", "error", err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return nil
	}
	s.user = &user
	s.store.Set(ctx, kv.KeyUser, user)
	s.store.SetString(ctx, kv.KeyRole, user.Role)
	return nil
}

// TokenExpiry returns the exp claim of the token without verifying its signature.
// The zero time means no token, not a JWT, or no exp claim.
func (s *Session) TokenExpiry() time.Time {
	return TokenExpiry(s.Token())
}

// TokenExpiry reads the exp claim of a JWT without verifying it.
func TokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Save re-persists the current session.
func (s *Session) Save(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.user == nil {
		return
	}
	s.store.SetString(ctx, kv.KeyAuthToken, s.token)
	s.store.Set(ctx, kv.KeyUser, *s.user)
	s.store.SetString(ctx, kv.KeyRole, s.user.Role)
}

func (s *Session) authClient() (AuthClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, ErrNoClient
	}
	return s.client, nil
}

func (s *Session) establish(ctx context.Context, resp api.AuthResponse, email string, offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := resp.User
	s.token = resp.Token
	s.user = &user
	s.offline = offline
	s.store.SetString(ctx, kv.KeyAuthToken, resp.Token)
	s.store.Set(ctx, kv.KeyUser, user)
	s.store.SetString(ctx, kv.KeyRole, user.Role)
	s.store.SetString(ctx, kv.KeyUserEmail, strings.ToLower(strings.TrimSpace(email)))
	slog.Info("auth_event", "event", "login", "user_id", user.ID, "role", user.Role, "offline", offline)
}

func (s *Session) clearLocked(ctx context.Context) {
	s.token = ""
	s.user = nil
	s.offline = false
	s.store.Remove(ctx, kv.KeyAuthToken)
	s.store.Remove(ctx, kv.KeyUser)
	s.store.Remove(ctx, kv.KeyRole)
	s.store.Remove(ctx, kv.KeyUserEmail)
}

func (s *Session) saveCredential(ctx context.Context, email, password string, resp api.AuthResponse) {
	cred, err := account.NewOfflineCredential(email, password, resp.User, resp.Token, s.now())
	if err != nil {
		slog.Error("auth_event", "event", "offline_credential_failed", "error", err)
		return
	}
	s.store.Set(ctx, kv.KeyOfflineCredential, cred)
}

func (s *Session) loginOffline(ctx context.Context, email, password string, cause error) (account.User, error) {
	var cred account.OfflineCredential
	if !s.store.Get(ctx, kv.KeyOfflineCredential, &cred) {
		return account.User{}, cause
	}
	if err := cred.Check(email, password); err != nil {
		return account.User{}, fmt.Errorf("offline login: %w", err)
	}
	s.establish(ctx, api.AuthResponse{Token: cred.Token, User: cred.User}, email, true)
	return cred.User, nil
}
