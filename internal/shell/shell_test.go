package shell

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridefit/stride/internal/auth"
	"github.com/stridefit/stride/internal/tabroute"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeView struct {
	mu        sync.Mutex
	navigated []string
	evaled    []string
	reloads   int
}

func (v *fakeView) Navigate(url string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.navigated = append(v.navigated, url)
	return nil
}

func (v *fakeView) Eval(script string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.evaled = append(v.evaled, script)
	return nil
}

func (v *fakeView) Reload() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reloads++
	return nil
}

func (v *fakeView) Live() bool { return true }

func (v *fakeView) reloadCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reloads
}

func (v *fakeView) lastNavigated() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.navigated) == 0 {
		return ""
	}
	return v.navigated[len(v.navigated)-1]
}

func (v *fakeView) evalsContaining(sub string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, s := range v.evaled {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}

type fakeHost struct {
	mu          sync.Mutex
	haptics     []string
	externals   []string
	sheets      []string
	switched    []string
	navigations []string
	readies     int
	loadFails   int
}

func (h *fakeHost) Haptic(style string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.haptics = append(h.haptics, style)
	return nil
}

func (h *fakeHost) OpenExternal(url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.externals = append(h.externals, url)
	return nil
}

func (h *fakeHost) OpenSheet(sheet string, data string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sheets = append(h.sheets, sheet)
	return nil
}

func (h *fakeHost) SwitchTab(tab string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.switched = append(h.switched, tab)
	return nil
}

func (h *fakeHost) Navigate(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.navigations = append(h.navigations, path)
	return nil
}

func (h *fakeHost) EvalView(tab string, script string) error  { return nil }
func (h *fakeHost) NavigateView(tab string, url string) error { return nil }
func (h *fakeHost) ReloadView(tab string) error               { return nil }

func (h *fakeHost) AppReady() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readies++
	return nil
}

func (h *fakeHost) AppLoadFailed() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadFails++
	return nil
}

func (h *fakeHost) switchedTabs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.switched...)
}

func (h *fakeHost) readyCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readies
}

func (h *fakeHost) loadFailCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadFails
}

func (h *fakeHost) hostNavigations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.navigations...)
}

func (h *fakeHost) externalURLs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.externals...)
}

type fakeAuth struct {
	mu       sync.Mutex
	session  *auth.Session
	signOuts int
	captcha  string
	cleared  int
	subs     []func(*auth.Session)
}

func (a *fakeAuth) Current() *auth.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	snapshot := *a.session
	return &snapshot
}

func (a *fakeAuth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signOuts++
	a.session = nil
	return nil
}

func (a *fakeAuth) Subscribe(fn func(*auth.Session)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, fn)
	return func() {}
}

func (a *fakeAuth) SetCaptchaToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.captcha = token
}

func (a *fakeAuth) ClearCaptchaToken() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.captcha = ""
	a.cleared++
}

// emit simulates a session change coming from the auth collaborator.
func (a *fakeAuth) emit(s *auth.Session) {
	a.mu.Lock()
	a.session = s
	subs := make([]func(*auth.Session), len(a.subs))
	copy(subs, a.subs)
	a.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (a *fakeAuth) signOutCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signOuts
}

func (a *fakeAuth) captchaToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.captcha
}

func testSession() *auth.Session {
	return &auth.Session{
		UserID:       "user-1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresInMs:  3600_000,
	}
}

func newTestShell(t *testing.T, host *fakeHost, sessions *fakeAuth) *Shell {
	t.Helper()
	s, err := New(Config{
		AppURL:       "https://app.stridefit.com",
		ErrorURL:     "http://127.0.0.1:4600/error",
		Theme:        "dark",
		MaxRetries:   3,
		RetryDelay:   5 * time.Millisecond,
		LogoutSettle: 40 * time.Millisecond,
	}, host, sessions, testLogger())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestShellMount(t *testing.T) {
	t.Run("navigates view to content url", func(t *testing.T) {
		s := newTestShell(t, &fakeHost{}, &fakeAuth{})
		view := &fakeView{}

		c, err := s.Mount(tabroute.TabWorkout, "Workout", view)
		require.NoError(t, err)

		assert.Equal(t, "https://app.stridefit.com/training?embed=1&screen=workout", c.ContentURL())
		assert.Equal(t, c.ContentURL(), view.lastNavigated())
		assert.Equal(t, StateLoading, c.State())
	})

	t.Run("rejects double mount", func(t *testing.T) {
		s := newTestShell(t, &fakeHost{}, &fakeAuth{})
		_, err := s.Mount(tabroute.TabWorkout, "Workout", &fakeView{})
		require.NoError(t, err)

		_, err = s.Mount(tabroute.TabWorkout, "Workout", &fakeView{})
		require.Error(t, err)
	})

	t.Run("remount after unmount", func(t *testing.T) {
		s := newTestShell(t, &fakeHost{}, &fakeAuth{})
		_, err := s.Mount(tabroute.TabWorkout, "Workout", &fakeView{})
		require.NoError(t, err)

		s.Unmount(tabroute.TabWorkout)
		_, ok := s.Controller(tabroute.TabWorkout)
		assert.False(t, ok)

		_, err = s.Mount(tabroute.TabWorkout, "Workout", &fakeView{})
		require.NoError(t, err)
	})
}

func TestShellDeepLink(t *testing.T) {
	t.Run("custom scheme switches to owning tab", func(t *testing.T) {
		host := &fakeHost{}
		s := newTestShell(t, host, &fakeAuth{})

		require.NoError(t, s.HandleDeepLink("stride://training/week/2"))
		assert.Equal(t, []string{"workout"}, host.switchedTabs())
	})

	t.Run("ready view receives the path immediately", func(t *testing.T) {
		s := newTestShell(t, &fakeHost{}, &fakeAuth{})
		view := &fakeView{}
		c, err := s.Mount(tabroute.TabWorkout, "Workout", view)
		require.NoError(t, err)
		c.HandleRaw(`{"v":2,"type":"CONTENT_READY","path":"/training"}`)

		require.NoError(t, s.HandleDeepLink("https://app.stridefit.com/training/week/2"))
		assert.Equal(t, 1, view.evalsContaining(`"/training/week/2"`))
	})

	t.Run("loading view holds the path until content ready", func(t *testing.T) {
		s := newTestShell(t, &fakeHost{}, &fakeAuth{})
		view := &fakeView{}
		c, err := s.Mount(tabroute.TabNutrition, "Nutrition", view)
		require.NoError(t, err)

		require.NoError(t, s.HandleDeepLink("stride://nutrition/log"))
		assert.Zero(t, view.evalsContaining(`"NAVIGATE_TO"`))

		c.HandleRaw(`{"v":2,"type":"CONTENT_READY","path":"/nutrition"}`)
		assert.Equal(t, 1, view.evalsContaining(`"/nutrition/log"`))
	})

	t.Run("wrong tab becoming ready does not swallow the link", func(t *testing.T) {
		s := newTestShell(t, &fakeHost{}, &fakeAuth{})
		dash := &fakeView{}
		workout := &fakeView{}
		dc, err := s.Mount(tabroute.TabDashboard, "Stride", dash)
		require.NoError(t, err)
		wc, err := s.Mount(tabroute.TabWorkout, "Workout", workout)
		require.NoError(t, err)

		require.NoError(t, s.HandleDeepLink("stride://training/week/2"))

		dc.HandleRaw(`{"v":2,"type":"CONTENT_READY","path":"/"}`)
		assert.Zero(t, dash.evalsContaining(`"NAVIGATE_TO"`))

		wc.HandleRaw(`{"v":2,"type":"CONTENT_READY","path":"/training"}`)
		assert.Equal(t, 1, workout.evalsContaining(`"/training/week/2"`))
	})

	t.Run("newer link replaces unconsumed one", func(t *testing.T) {
		s := newTestShell(t, &fakeHost{}, &fakeAuth{})
		view := &fakeView{}
		c, err := s.Mount(tabroute.TabProfile, "Profile", view)
		require.NoError(t, err)

		require.NoError(t, s.HandleDeepLink("stride://profile/settings"))
		require.NoError(t, s.HandleDeepLink("stride://billing/invoices"))

		c.HandleRaw(`{"v":2,"type":"CONTENT_READY","path":"/profile"}`)
		assert.Zero(t, view.evalsContaining(`"/profile/settings"`))
		assert.Equal(t, 1, view.evalsContaining(`"/billing/invoices"`))
	})

	t.Run("malformed link is an error", func(t *testing.T) {
		s := newTestShell(t, &fakeHost{}, &fakeAuth{})
		assert.Error(t, s.HandleDeepLink("://nope"))
	})
}

func TestDeepLinkPath(t *testing.T) {
	cases := []struct {
		raw  string
		path string
	}{
		{"stride://training/week/2", "/training/week/2"},
		{"stride://nutrition", "/nutrition"},
		{"https://app.stridefit.com/billing/invoices", "/billing/invoices"},
		{"https://app.stridefit.com", "/"},
		{"/profile/settings", "/profile/settings"},
	}
	for _, tc := range cases {
		path, err := deepLinkPath(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.path, path, tc.raw)
	}
}

func TestShellSessionChange(t *testing.T) {
	t.Run("fresh sign-in reloads every view", func(t *testing.T) {
		sessions := &fakeAuth{}
		s := newTestShell(t, &fakeHost{}, sessions)
		dash := &fakeView{}
		workout := &fakeView{}
		_, err := s.Mount(tabroute.TabDashboard, "Stride", dash)
		require.NoError(t, err)
		_, err = s.Mount(tabroute.TabWorkout, "Workout", workout)
		require.NoError(t, err)

		sessions.emit(testSession())

		assert.Equal(t, 1, dash.reloadCount())
		assert.Equal(t, 1, workout.reloadCount())
		assert.Equal(t, 1, dash.evalsContaining(`"AUTH_SESSION"`))
	})

	t.Run("token refresh only re-injects", func(t *testing.T) {
		sessions := &fakeAuth{session: testSession()}
		s := newTestShell(t, &fakeHost{}, sessions)
		view := &fakeView{}
		_, err := s.Mount(tabroute.TabDashboard, "Stride", view)
		require.NoError(t, err)

		refreshed := testSession()
		refreshed.AccessToken = "access-2"
		sessions.emit(refreshed)

		assert.Zero(t, view.reloadCount())
		assert.Equal(t, 1, view.evalsContaining(`"access-2"`))
	})
}

func TestShellSetTheme(t *testing.T) {
	s := newTestShell(t, &fakeHost{}, &fakeAuth{})
	view := &fakeView{}
	c, err := s.Mount(tabroute.TabDashboard, "Stride", view)
	require.NoError(t, err)

	s.SetTheme("light")
	assert.Equal(t, 1, view.evalsContaining(`"light"`))

	// Later content-ready rounds see the new theme too.
	c.HandleRaw(`{"v":2,"type":"CONTENT_READY","path":"/"}`)
	assert.Equal(t, 2, view.evalsContaining(`"light"`))
}

func TestShellSetThemeConcurrent(t *testing.T) {
	s := newTestShell(t, &fakeHost{}, &fakeAuth{})
	view := &fakeView{}
	c, err := s.Mount(tabroute.TabDashboard, "Stride", view)
	require.NoError(t, err)

	// Theme changes and content-ready rounds arrive from different
	// native threads.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.SetTheme("light")
			} else {
				c.HandleRaw(`{"v":2,"type":"CONTENT_READY","path":"/"}`)
			}
		}(i)
	}
	wg.Wait()

	// Views mounted after the change pick the new theme up on their
	// first paint.
	late := &fakeView{}
	lc, err := s.Mount(tabroute.TabWorkout, "Workout", late)
	require.NoError(t, err)
	lc.HandleRaw(`{"v":2,"type":"CONTENT_READY","path":"/training"}`)
	assert.Equal(t, 1, late.evalsContaining(`"light"`))
}

func TestShellTabReselected(t *testing.T) {
	s := newTestShell(t, &fakeHost{}, &fakeAuth{})
	view := &fakeView{}
	_, err := s.Mount(tabroute.TabNutrition, "Nutrition", view)
	require.NoError(t, err)

	s.TabReselected(tabroute.TabNutrition)

	assert.Equal(t, 1, view.evalsContaining(`"NAVIGATE_TO"`))
	assert.Equal(t, 1, view.evalsContaining(`"/nutrition"`))
	assert.Equal(t, 1, view.evalsContaining("scrollTo"))
}
