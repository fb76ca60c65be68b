package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrNoSession = errors.New("auth: no active session")

// Manager owns the auth session lifecycle against a GoTrue-style
// backend: restore from the keyring on launch, password sign-in,
// background token refresh, sign-out, and change notifications.
type Manager struct {
	store   Store
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
	sfg     singleflight.Group

	mu            sync.RWMutex
	current       *Session
	nextID        int
	subs          map[int]func(*Session)
	captcha       string
	cancelRefresh context.CancelFunc
}

func NewManager(store Store, baseURL string, apiKey string, logger *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
		subs:    make(map[int]func(*Session)),
	}
}

// Restore loads a persisted session, if any, and starts the background
// refresh loop for it.
func (m *Manager) Restore(ctx context.Context) {
	sess, err := m.store.Load()
	if err != nil {
		m.logger.Debug("no stored session", "err", err)
		return
	}
	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()
	m.startRefreshLoop(sess)
	m.logger.Info("session restored", "user", sess.UserID)
}

// Current returns a snapshot of the active session, or nil when the
// user is signed out. Callers never see internal mutations.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	snapshot := *m.current
	return &snapshot
}

// SetSession installs a freshly obtained session: persists it, notifies
// subscribers, and (re)starts the refresh loop.
func (m *Manager) SetSession(sess Session) error {
	if err := m.apply(sess); err != nil {
		return err
	}
	m.startRefreshLoop(sess)
	return nil
}

// SignInWithPassword exchanges credentials for a session. A captcha
// token relayed from embedded content, when present, rides along and is
// consumed by the attempt.
func (m *Manager) SignInWithPassword(ctx context.Context, email, password string) error {
	m.mu.Lock()
	captcha := m.captcha
	m.captcha = ""
	m.mu.Unlock()

	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if captcha != "" {
		body["gotrue_meta_security"] = map[string]string{"captcha_token": captcha}
	}

	resp, err := m.tokenRequest(ctx, "password", body)
	if err != nil {
		return err
	}
	sess := Session{
		UserID:       resp.User.ID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresInMs:  resp.ExpiresIn * 1000,
	}
	if err := m.SetSession(sess); err != nil {
		return err
	}
	m.logger.Info("signed in", "user", sess.UserID)
	return nil
}

// Refresh exchanges the refresh token for new tokens. Concurrent calls
// collapse into a single request.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.sfg.Do("refresh", func() (any, error) {
		return nil, m.doRefresh(ctx)
	})
	return err
}

// SignOut revokes the session with the backend and clears it locally.
// Local state is cleared even when revocation fails; the returned error
// is diagnostic only.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	cur := m.current
	m.current = nil
	if m.cancelRefresh != nil {
		m.cancelRefresh()
		m.cancelRefresh = nil
	}
	m.mu.Unlock()

	if err := m.store.Delete(); err != nil {
		m.logger.Warn("deleting stored session failed", "err", err)
	}
	m.notify(nil)

	if cur == nil || cur.AccessToken == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, m.baseURL+"/auth/v1/logout", nil,
	)
	if err != nil {
		return fmt.Errorf("create logout request: %w", err)
	}
	m.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+cur.AccessToken)

	resp, err := m.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("logout failed (%d): %s", resp.StatusCode, body)
	}
	m.logger.Info("signed out", "user", cur.UserID)
	return nil
}

// Subscribe registers a session-change callback. It fires with the new
// session on sign-in and refresh, and with nil on sign-out.
func (m *Manager) Subscribe(fn func(*Session)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// SetCaptchaToken stashes a captcha token relayed by embedded content
// for the next credentialed request.
func (m *Manager) SetCaptchaToken(token string) {
	m.mu.Lock()
	m.captcha = token
	m.mu.Unlock()
}

func (m *Manager) ClearCaptchaToken() {
	m.mu.Lock()
	m.captcha = ""
	m.mu.Unlock()
}

func (m *Manager) apply(sess Session) error {
	if err := m.store.Save(sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()
	m.notify(&sess)
	return nil
}

func (m *Manager) notify(sess *Session) {
	m.mu.RLock()
	fns := make([]func(*Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(sess)
	}
}

func (m *Manager) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("apikey", m.apiKey)
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (m *Manager) tokenRequest(ctx context.Context, grant string, body any) (*tokenResponse, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := m.baseURL + "/auth/v1/token?grant_type=" + grant

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	m.setHeaders(req)

	resp, err := m.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s grant failed (%d): %s", grant, resp.StatusCode, respBody)
	}

	var result tokenResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return &result, nil
}
