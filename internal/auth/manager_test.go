package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authBackend struct {
	t            *testing.T
	tokenCalls   atomic.Int32
	logoutCalls  atomic.Int32
	lastGrant    string
	lastBody     map[string]any
	failTokens   bool
	refreshDelay time.Duration
}

func (b *authBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		b.tokenCalls.Add(1)
		b.lastGrant = r.URL.Query().Get("grant_type")
		body, _ := io.ReadAll(r.Body)
		b.lastBody = map[string]any{}
		_ = json.Unmarshal(body, &b.lastBody)

		if b.failTokens {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		if b.refreshDelay > 0 {
			time.Sleep(b.refreshDelay)
		}
		n := b.tokenCalls.Load()
		fmt.Fprintf(w, `{
			"access_token": "access-%d",
			"refresh_token": "refresh-%d",
			"expires_in": 3600,
			"user": {"id": "user-1"}
		}`, n, n)
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		b.logoutCalls.Add(1)
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestManager(t *testing.T, backend *authBackend) (*Manager, *MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	store := &MemoryStore{}
	m := NewManager(store, srv.URL, "anon-key", testLogger())
	t.Cleanup(func() { _ = m.SignOut(context.Background()) })
	return m, store
}

func TestSignInWithPassword(t *testing.T) {
	t.Run("installs and persists the session", func(t *testing.T) {
		backend := &authBackend{t: t}
		m, store := newTestManager(t, backend)

		require.NoError(t, m.SignInWithPassword(context.Background(), "a@b.c", "pw"))

		cur := m.Current()
		require.NotNil(t, cur)
		assert.Equal(t, "user-1", cur.UserID)
		assert.Equal(t, "access-1", cur.AccessToken)
		assert.Equal(t, int64(3_600_000), cur.ExpiresInMs)
		assert.Equal(t, "password", backend.lastGrant)

		saved, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "access-1", saved.AccessToken)
	})

	t.Run("captcha token rides along once", func(t *testing.T) {
		backend := &authBackend{t: t}
		m, _ := newTestManager(t, backend)

		m.SetCaptchaToken("cap-1")
		require.NoError(t, m.SignInWithPassword(context.Background(), "a@b.c", "pw"))

		security, ok := backend.lastBody["gotrue_meta_security"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "cap-1", security["captcha_token"])

		require.NoError(t, m.SignInWithPassword(context.Background(), "a@b.c", "pw"))
		_, ok = backend.lastBody["gotrue_meta_security"]
		assert.False(t, ok, "captcha is consumed by the first attempt")
	})

	t.Run("backend rejection surfaces", func(t *testing.T) {
		backend := &authBackend{t: t, failTokens: true}
		m, _ := newTestManager(t, backend)

		err := m.SignInWithPassword(context.Background(), "a@b.c", "bad")
		require.Error(t, err)
		assert.Nil(t, m.Current())
	})

	t.Run("notifies subscribers", func(t *testing.T) {
		backend := &authBackend{t: t}
		m, _ := newTestManager(t, backend)

		var got *Session
		m.Subscribe(func(s *Session) { got = s })

		require.NoError(t, m.SignInWithPassword(context.Background(), "a@b.c", "pw"))
		require.NotNil(t, got)
		assert.Equal(t, "user-1", got.UserID)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("rotates tokens in place", func(t *testing.T) {
		backend := &authBackend{t: t}
		m, _ := newTestManager(t, backend)
		require.NoError(t, m.SignInWithPassword(context.Background(), "a@b.c", "pw"))

		require.NoError(t, m.Refresh(context.Background()))

		cur := m.Current()
		require.NotNil(t, cur)
		assert.Equal(t, "access-2", cur.AccessToken)
		assert.Equal(t, "refresh-2", cur.RefreshToken)
		assert.Equal(t, "refresh_token", backend.lastGrant)
	})

	t.Run("no session", func(t *testing.T) {
		backend := &authBackend{t: t}
		m, _ := newTestManager(t, backend)

		assert.ErrorIs(t, m.Refresh(context.Background()), ErrNoSession)
	})

	t.Run("concurrent refreshes collapse", func(t *testing.T) {
		backend := &authBackend{t: t, refreshDelay: 50 * time.Millisecond}
		m, _ := newTestManager(t, backend)
		require.NoError(t, m.SignInWithPassword(context.Background(), "a@b.c", "pw"))
		before := backend.tokenCalls.Load()

		done := make(chan error, 4)
		for i := 0; i < 4; i++ {
			go func() { done <- m.Refresh(context.Background()) }()
		}
		for i := 0; i < 4; i++ {
			require.NoError(t, <-done)
		}

		assert.Equal(t, before+1, backend.tokenCalls.Load())
	})
}

func TestSignOut(t *testing.T) {
	t.Run("clears locally and revokes remotely", func(t *testing.T) {
		backend := &authBackend{t: t}
		m, store := newTestManager(t, backend)
		require.NoError(t, m.SignInWithPassword(context.Background(), "a@b.c", "pw"))

		var got *Session = testSessionSentinel()
		m.Subscribe(func(s *Session) { got = s })

		require.NoError(t, m.SignOut(context.Background()))

		assert.Nil(t, m.Current())
		assert.Nil(t, got, "subscribers see the nil session")
		assert.Equal(t, int32(1), backend.logoutCalls.Load())
		_, err := store.Load()
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("without session is a no-op", func(t *testing.T) {
		backend := &authBackend{t: t}
		m, _ := newTestManager(t, backend)

		require.NoError(t, m.SignOut(context.Background()))
		assert.Zero(t, backend.logoutCalls.Load())
	})
}

func TestRestore(t *testing.T) {
	backend := &authBackend{t: t}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	store := &MemoryStore{}
	require.NoError(t, store.Save(Session{
		UserID:       "user-9",
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		ExpiresInMs:  3_600_000,
	}))

	m := NewManager(store, srv.URL, "anon-key", testLogger())
	m.Restore(context.Background())
	t.Cleanup(func() { _ = m.SignOut(context.Background()) })

	cur := m.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "user-9", cur.UserID)
	assert.Equal(t, "stored-access", cur.AccessToken)
}

func TestCurrentIsSnapshot(t *testing.T) {
	backend := &authBackend{t: t}
	m, _ := newTestManager(t, backend)
	require.NoError(t, m.SignInWithPassword(context.Background(), "a@b.c", "pw"))

	cur := m.Current()
	cur.AccessToken = "mutated"
	assert.Equal(t, "access-1", m.Current().AccessToken)
}

func TestRefreshWait(t *testing.T) {
	assert.Equal(t, 48*time.Minute, refreshWait(3_600_000, 80, 30*time.Second))
	assert.Equal(t, 30*time.Second, refreshWait(10_000, 80, 30*time.Second))
	assert.Equal(t, 30*time.Second, refreshWait(0, 80, 30*time.Second))
}

// testSessionSentinel is a non-nil marker so the sign-out test can tell
// "callback fired with nil" apart from "callback never fired".
func testSessionSentinel() *Session {
	return &Session{UserID: "sentinel"}
}
