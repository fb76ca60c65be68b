// Package shell is the coordination core of the native app: it owns
// the embedded view controllers, one per navigation tab, and the shared
// services they hang off: session injection, logout debouncing, the
// app-ready gate, the tab-reset bus, and the deep-link relay.
package shell

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/stridefit/stride/internal/auth"
	"github.com/stridefit/stride/internal/bridge"
	"github.com/stridefit/stride/internal/tabroute"
	"github.com/stridefit/stride/internal/webview"
)

// Retry policy defaults; product tuning knobs, not invariants.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// AuthService is the slice of the native auth collaborator the shell
// consumes: a read-only session snapshot, a sign-out call the logout
// coordinator invokes exactly once per cycle, session-change
// notifications, and a sink for captcha tokens relayed from embedded
// content. The shell never mutates the session itself.
type AuthService interface {
	Current() *auth.Session
	SignOut(ctx context.Context) error
	Subscribe(fn func(*auth.Session)) (unsubscribe func())
	SetCaptchaToken(token string)
	ClearCaptchaToken()
}

type Config struct {
	// AppURL is the base URL of the embedded web application.
	AppURL string

	// ErrorURL, when set, is the local page a view is parked on after
	// its retries are exhausted.
	ErrorURL string

	// Theme pushed into views on content ready; empty means none.
	Theme string

	MaxRetries   int
	RetryDelay   time.Duration
	LogoutSettle time.Duration

	// VideoHosts overrides the default video-embed allow-list.
	VideoHosts []string
}

// Shell wires the coordination services together and manages controller
// lifecycle. One instance per running app session.
type Shell struct {
	cfg    Config
	appURL *url.URL

	routes    *tabroute.Table
	filter    *NavFilter
	Resets    *TabResetBus
	Logouts   *LogoutCoordinator
	Gate      *ReadyGate
	DeepLinks *DeepLinkStore

	injector *SessionInjector
	sessions AuthService
	host     bridge.Host
	tap      Tap
	logger   *slog.Logger

	controllers *xsync.Map[tabroute.Tab, *Controller]

	mu         sync.Mutex
	hadSession bool
	unsubAuth  func()
}

func New(cfg Config, host bridge.Host, sessions AuthService, logger *slog.Logger) (*Shell, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.VideoHosts == nil {
		cfg.VideoHosts = DefaultVideoHosts()
	}

	appURL, err := url.Parse(cfg.AppURL)
	if err != nil {
		return nil, fmt.Errorf("parse app url: %w", err)
	}
	filter, err := NewNavFilter(cfg.AppURL, cfg.VideoHosts)
	if err != nil {
		return nil, err
	}

	s := &Shell{
		cfg:         cfg,
		appURL:      appURL,
		routes:      tabroute.Default(),
		filter:      filter,
		Resets:      NewTabResetBus(logger),
		Logouts:     NewLogoutCoordinator(cfg.LogoutSettle, logger),
		Gate:        NewReadyGate(),
		DeepLinks:   NewDeepLinkStore(),
		injector:    NewSessionInjector(logger),
		sessions:    sessions,
		host:        host,
		logger:      logger,
		controllers: xsync.NewMap[tabroute.Tab, *Controller](),
	}

	s.Logouts.SetEffect(s.logoutEffect)
	s.armGate()
	s.hadSession = sessions.Current() != nil
	s.unsubAuth = sessions.Subscribe(s.onSessionChange)
	return s, nil
}

// SetTap installs a bridge-traffic observer. Must be called before any
// controller is mounted; controllers capture the tap at construction.
func (s *Shell) SetTap(t Tap) {
	s.tap = t
}

// AppURL is the base URL of the embedded web application.
func (s *Shell) AppURL() string {
	return s.cfg.AppURL
}

// Routes exposes the tab-route table to collaborators (deep-link
// resolution, handoff).
func (s *Shell) Routes() *tabroute.Table {
	return s.routes
}

// Mount creates and mounts the controller for a tab. At most one
// controller per tab may be mounted at a time.
func (s *Shell) Mount(tab tabroute.Tab, title string, view webview.View) (*Controller, error) {
	c := newController(s, tab, title, view)
	if _, loaded := s.controllers.LoadOrStore(tab, c); loaded {
		return nil, fmt.Errorf("shell: tab %q already mounted", tab)
	}
	c.mount()
	return c, nil
}

// Unmount tears down the controller for a tab, clearing any pending
// retry so it cannot fire against a disposed view.
func (s *Shell) Unmount(tab tabroute.Tab) {
	if c, ok := s.controllers.LoadAndDelete(tab); ok {
		c.unmount()
	}
}

// Controller returns the mounted controller for a tab.
func (s *Shell) Controller(tab tabroute.Tab) (*Controller, bool) {
	return s.controllers.Load(tab)
}

// TabReselected is called by the platform when the user taps the tab
// that is already active: the tab's view returns to its root path.
func (s *Shell) TabReselected(tab tabroute.Tab) {
	s.Resets.Publish(tab, s.routes.RootPath(tab))
}

// HandleDeepLink resolves an OS-delivered link into the embedded URL
// space, parks the path in the deep-link store, and moves the user to
// the owning tab. The path is forwarded immediately when that tab's
// view is already showing content.
func (s *Shell) HandleDeepLink(raw string) error {
	path, err := deepLinkPath(raw)
	if err != nil {
		return err
	}
	tab := s.routes.ResolveOr(path)
	s.DeepLinks.SetPending(path)
	s.logger.Info("deep link", "path", path, "tab", tab)

	if err := s.host.SwitchTab(string(tab)); err != nil {
		s.logger.Warn("tab switch for deep link failed", "tab", tab, "err", err)
	}
	if c, ok := s.controllers.Load(tab); ok && c.State() == StateReady {
		c.consumePendingDeepLink()
	}
	return nil
}

// SetTheme pushes a theme change into every mounted view and applies it
// to views mounted later.
func (s *Shell) SetTheme(theme string) {
	s.mu.Lock()
	s.cfg.Theme = theme
	s.mu.Unlock()

	s.controllers.Range(func(tab tabroute.Tab, c *Controller) bool {
		c.setTheme(theme)
		s.injector.InjectTheme(tab, c.view, theme)
		return true
	})
}

// Close unmounts everything and releases the coordinator timers.
func (s *Shell) Close() {
	if s.unsubAuth != nil {
		s.unsubAuth()
		s.unsubAuth = nil
	}
	s.controllers.Range(func(tab tabroute.Tab, c *Controller) bool {
		s.controllers.Delete(tab)
		c.unmount()
		return true
	})
	s.Logouts.Close()
}

// armGate points the ready gate's single-shot channels at the platform
// splash callbacks. Re-armed after every gate reset.
func (s *Shell) armGate() {
	s.Gate.OnReady(func() {
		if err := s.host.AppReady(); err != nil {
			s.logger.Warn("app-ready callback failed", "err", err)
		}
	})
	s.Gate.OnError(func() {
		if err := s.host.AppLoadFailed(); err != nil {
			s.logger.Warn("app-load-failed callback failed", "err", err)
		}
	})
}

// logoutEffect is the single sign-out sequence the logout coordinator
// runs: retract sessions from every view, sign out with the auth
// collaborator, and hand navigation back to the platform login screen.
func (s *Shell) logoutEffect(source string) {
	s.logger.Info("signing out", "source", source)

	s.Gate.Reset()
	s.armGate()

	s.controllers.Range(func(tab tabroute.Tab, c *Controller) bool {
		s.injector.InjectLogout(tab, c.view)
		c.resetFirstPaint()
		return true
	})

	if err := s.sessions.SignOut(context.Background()); err != nil {
		s.logger.Error("sign-out failed", "err", err)
	}

	s.mu.Lock()
	s.hadSession = false
	s.mu.Unlock()

	if err := s.host.Navigate(tabroute.LoginPath); err != nil {
		s.logger.Warn("login navigation failed", "err", err)
	}
}

func (s *Shell) onSessionChange(sess *auth.Session) {
	if sess == nil {
		// Sign-out propagation is owned by the logout effect.
		s.mu.Lock()
		s.hadSession = false
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	fresh := !s.hadSession
	s.hadSession = true
	s.mu.Unlock()

	s.controllers.Range(func(tab tabroute.Tab, c *Controller) bool {
		s.injector.InjectSession(tab, c.view, sess)
		return true
	})
	if fresh {
		// Fresh sign-in: reload from scratch so previously logged-out
		// views pick the session up rather than trusting injection
		// alone. Token refreshes skip this.
		s.Logouts.ReloadAll()
	}
}

// deepLinkPath maps an OS link onto the embedded app's URL space.
// Custom schemes carry the first path segment in the URL host:
// stride://training/week/2 → /training/week/2.
func deepLinkPath(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse deep link: %w", err)
	}
	path := u.Path
	switch u.Scheme {
	case "http", "https", "":
	default:
		if u.Host != "" {
			path = "/" + u.Host + u.Path
		}
	}
	if path == "" {
		path = "/"
	}
	return path, nil
}
