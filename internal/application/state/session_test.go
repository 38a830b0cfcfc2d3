package state

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/adapters/storage/kv"
	"gymdesk/internal/domain/account"
	"gymdesk/internal/domain/entity"
)

var owner = account.User{ID: "7", Email: "owner@gym.example", FirstName: "Priya", Role: entity.RoleOwner}

// wire builds a session and an api client pointing at handler, connected both ways.
func wire(t *testing.T, store Store, handler http.HandlerFunc, opts ...SessionOption) (*Session, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sess := NewSession(bg, store, opts...)
	client := api.New(server.URL, time.Second,
		api.WithToken(sess.Token),
		api.WithUnauthorizedHook(sess.ForceLogout))
	sess.SetClient(client)
	return sess, server
}

func authOK(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(api.AuthResponse{Token: "tok-1", User: owner})
}

func TestNewSession_BootstrapWithoutNetwork(t *testing.T) {
	store, _ := newTestStore()
	store.SetString(bg, kv.KeyAuthToken, "tok-stored")
	store.Set(bg, kv.KeyUser, owner)

	sess := NewSession(bg, store)
	assert.True(t, sess.IsAuthenticated())
	user, ok := sess.User()
	require.True(t, ok)
	assert.Equal(t, owner, user)
	assert.Equal(t, "tok-stored", sess.Token())
	assert.Equal(t, entity.RoleOwner, sess.Role())
}

func TestNewSession_TokenWithoutUser(t *testing.T) {
	store, _ := newTestStore()
	store.SetString(bg, kv.KeyAuthToken, "tok-stored")

	sess := NewSession(bg, store)
	assert.False(t, sess.IsAuthenticated())
}

func TestLogin_PersistsSession(t *testing.T) {
	store, _ := newTestStore()
	sess, _ := wire(t, store, authOK)

	user, err := sess.Login(bg, "Owner@Gym.example", "secret123")
	require.NoError(t, err)
	assert.Equal(t, owner, user)

	token, _ := store.GetString(bg, kv.KeyAuthToken)
	role, _ := store.GetString(bg, kv.KeyRole)
	email, _ := store.GetString(bg, kv.KeyUserEmail)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, entity.RoleOwner, role)
	assert.Equal(t, "owner@gym.example", email)

	restored := NewSession(bg, store)
	assert.True(t, restored.IsAuthenticated())
}

func TestLogin_FailureLeavesPriorState(t *testing.T) {
	store, _ := newTestStore()
	store.SetString(bg, kv.KeyAuthToken, "tok-old")
	store.Set(bg, kv.KeyUser, owner)

	sess, _ := wire(t, store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	})

	_, err := sess.Login(bg, "owner@gym.example", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Equal(t, "tok-old", sess.Token())
}

func TestLogin_RejectedPasswordKeepsSession(t *testing.T) {
	store, _ := newTestStore()
	store.SetString(bg, kv.KeyAuthToken, "tok-stored")
	store.Set(bg, kv.KeyUser, owner)

	var expired atomic.Int32
	sess, _ := wire(t, store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid email or password"}`))
	}, WithExpiredHook(func() { expired.Add(1) }))

	_, err := sess.Login(bg, "owner@gym.example", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "tok-stored", sess.Token())
	token, ok := store.GetString(bg, kv.KeyAuthToken)
	assert.True(t, ok)
	assert.Equal(t, "tok-stored", token)
	assert.Equal(t, int32(0), expired.Load())
}

func TestLogin_ValidationBeforeNetwork(t *testing.T) {
	store, _ := newTestStore()
	var calls atomic.Int32
	sess, _ := wire(t, store, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	_, err := sess.Login(bg, "not-an-email", "x")
	assert.ErrorIs(t, err, account.ErrInvalidEmail)
	_, err = sess.Register(bg, account.Registration{Email: "a@b.c", FirstName: "A", Password: "short", Role: entity.RoleMember})
	assert.ErrorIs(t, err, account.ErrPasswordTooShort)
	assert.Zero(t, calls.Load())
}

func TestRegister_SignsIn(t *testing.T) {
	store, _ := newTestStore()
	sess, _ := wire(t, store, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		authOK(w, r)
	})

	_, err := sess.Register(bg, account.Registration{
		Email: "owner@gym.example", FirstName: "Priya", Password: "longenough", Role: entity.RoleOwner,
	})
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated())
}

func TestUnauthorizedForcesLogout(t *testing.T) {
	store, _ := newTestStore()
	store.SetString(bg, kv.KeyAuthToken, "tok-old")
	store.Set(bg, kv.KeyUser, owner)

	var expired atomic.Int32
	sess, _ := wire(t, store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, WithExpiredHook(func() { expired.Add(1) }))

	err := sess.RefreshUser(bg)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, sess.IsAuthenticated())
	assert.Equal(t, int32(1), expired.Load())
	_, ok := store.GetString(bg, kv.KeyAuthToken)
	assert.False(t, ok, "token must be cleared from the store")
}

func TestRefreshUser_FailureKeepsSession(t *testing.T) {
	store, _ := newTestStore()
	store.SetString(bg, kv.KeyAuthToken, "tok-old")
	store.Set(bg, kv.KeyUser, owner)

	sess, _ := wire(t, store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.Error(t, sess.RefreshUser(bg))
	assert.True(t, sess.IsAuthenticated())
}

func TestRefreshUser_UpdatesUser(t *testing.T) {
	store, _ := newTestStore()
	store.SetString(bg, kv.KeyAuthToken, "tok-old")
	store.Set(bg, kv.KeyUser, owner)

	renamed := owner
	renamed.FirstName = "Priyanka"
	sess, _ := wire(t, store, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-old", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(renamed)
	})
	require.NoError(t, sess.RefreshUser(bg))

	var stored account.User
	require.True(t, store.Get(bg, kv.KeyUser, &stored))
	assert.Equal(t, "Priyanka", stored.FirstName)
}

func TestLogout_LocalOnly(t *testing.T) {
	store, _ := newTestStore()
	var calls atomic.Int32
	sess, _ := wire(t, store, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		authOK(w, r)
	})
	_, err := sess.Login(bg, "owner@gym.example", "secret123")
	require.NoError(t, err)

	sess.Logout(bg)
	assert.False(t, sess.IsAuthenticated())
	assert.Equal(t, int32(1), calls.Load(), "logout must not call the backend")
	for _, key := range []string{kv.KeyAuthToken, kv.KeyUser, kv.KeyRole, kv.KeyUserEmail} {
		_, ok := store.GetString(bg, key)
		assert.False(t, ok, key)
	}
}

func TestOfflineLogin(t *testing.T) {
	store, _ := newTestStore()
	server := httptest.NewServer(http.HandlerFunc(authOK))

	sess := NewSession(bg, store, WithOfflineLogin(true), WithSessionClock(clock))
	sess.SetClient(api.New(server.URL, time.Second, api.WithToken(sess.Token)))
	_, err := sess.Login(bg, "owner@gym.example", "secret123")
	require.NoError(t, err)
	assert.False(t, sess.Offline())
	sess.Logout(bg)

	// Backend goes away; the cached credential takes over.
	server.Close()

	_, err = sess.Login(bg, "owner@gym.example", "bad-password")
	assert.ErrorIs(t, err, account.ErrWrongPassword)
	assert.False(t, sess.IsAuthenticated())

	user, err := sess.Login(bg, "owner@gym.example", "secret123")
	require.NoError(t, err)
	assert.Equal(t, owner, user)
	assert.True(t, sess.Offline())
	assert.Equal(t, "tok-1", sess.Token())
}

func TestOfflineLogin_DisabledSurfacesNetworkError(t *testing.T) {
	store, _ := newTestStore()
	server := httptest.NewServer(http.HandlerFunc(authOK))
	server.Close()

	sess := NewSession(bg, store)
	sess.SetClient(api.New(server.URL, time.Second))
	_, err := sess.Login(bg, "owner@gym.example", "secret123")
	assert.ErrorIs(t, err, api.ErrNetwork)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	assert.True(t, TokenExpiry(signed).Equal(exp))
	assert.True(t, TokenExpiry("opaque-token").IsZero())
	assert.True(t, TokenExpiry("").IsZero())

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7"}).SignedString([]byte("k"))
	assert.True(t, TokenExpiry(noExp).IsZero())
}
