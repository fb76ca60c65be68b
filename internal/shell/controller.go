package shell

import (
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/stridefit/stride/internal/bridge"
	"github.com/stridefit/stride/internal/tabroute"
	"github.com/stridefit/stride/internal/webview"
)

// ControllerState is the lifecycle of one embedded view.
type ControllerState int

const (
	StateLoading ControllerState = iota
	StateReady
	StateRetrying
	StateErrored
)

func (s ControllerState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRetrying:
		return "retrying"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// Tap observes raw bridge traffic in both directions. Optional; used by
// the loopback bridge console.
type Tap interface {
	BridgeMessage(direction string, tab string, payload string)
}

// Controller owns the full lifecycle of one embedded content surface
// bound to one tab: URL construction, inbound message routing,
// cross-tab detection, session re-injection, and the retry-on-error
// policy. One instance per mounted tab.
type Controller struct {
	tab      tabroute.Tab
	rootPath string
	title    string
	view     webview.View

	appURL     *url.URL
	errorURL   string
	theme      string
	maxRetries int
	retryDelay time.Duration

	routes    *tabroute.Table
	filter    *NavFilter
	injector  *SessionInjector
	sessions  AuthService
	logouts   *LogoutCoordinator
	gate      *ReadyGate
	deeplinks *DeepLinkStore
	resets    *TabResetBus
	host      bridge.Host
	tap       Tap
	logger    *slog.Logger

	mu          sync.Mutex
	mounted     bool
	state       ControllerState
	seenReady   bool
	currentPath string
	retries     int
	retryTimer  *time.Timer
	unsubReset  func()
}

func newController(s *Shell, tab tabroute.Tab, title string, view webview.View) *Controller {
	s.mu.Lock()
	theme := s.cfg.Theme
	s.mu.Unlock()
	return &Controller{
		tab:        tab,
		rootPath:   s.routes.RootPath(tab),
		title:      title,
		view:       view,
		appURL:     s.appURL,
		errorURL:   s.cfg.ErrorURL,
		theme:      theme,
		maxRetries: s.cfg.MaxRetries,
		retryDelay: s.cfg.RetryDelay,
		routes:     s.routes,
		filter:     s.filter,
		injector:   s.injector,
		sessions:   s.sessions,
		logouts:    s.Logouts,
		gate:       s.Gate,
		deeplinks:  s.DeepLinks,
		resets:     s.Resets,
		host:       s.host,
		tap:        s.tap,
		logger:     s.logger.With("tab", tab),
	}
}

func (c *Controller) Tab() tabroute.Tab { return c.tab }

func (c *Controller) Title() string { return c.title }

func (c *Controller) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentPath is the last client-side route the embedded content
// reported for this view.
func (c *Controller) CurrentPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPath
}

func (c *Controller) setTheme(theme string) {
	c.mu.Lock()
	c.theme = theme
	c.mu.Unlock()
}

// CanSwipeBack reports whether the content sits below its tab root, so
// a native edge-swipe should pop web history instead of doing nothing.
func (c *Controller) CanSwipeBack() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPath != "" && c.currentPath != c.rootPath
}

// ContentURL builds the initial URL for this view: the tab's root path
// plus the contextual query parameters the web app uses to render in
// embedded mode.
func (c *Controller) ContentURL() string {
	u := *c.appURL
	u.Path = c.rootPath
	q := u.Query()
	q.Set("screen", string(c.tab))
	q.Set("embed", "1")
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Controller) mount() {
	c.mu.Lock()
	c.mounted = true
	c.state = StateLoading
	c.mu.Unlock()

	c.logouts.RegisterView(c.tab, c.view)
	c.unsubReset = c.resets.Subscribe(c.tab, c.handleTabReset)

	target := c.ContentURL()
	c.logger.Info("mounting view", "url", target)
	if err := c.view.Navigate(target); err != nil {
		c.logger.Warn("initial navigation failed", "err", err)
	}
}

func (c *Controller) unmount() {
	c.mu.Lock()
	c.mounted = false
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.mu.Unlock()

	c.logouts.UnregisterView(c.tab)
	if c.unsubReset != nil {
		c.unsubReset()
		c.unsubReset = nil
	}
	c.logger.Debug("view unmounted")
}

// HandleRaw routes one raw payload posted by this view's content.
// Unparseable payloads are dropped; handler panics are logged and
// contained so they never cross the message boundary into the UI loop.
func (c *Controller) HandleRaw(raw string) {
	if c.tap != nil {
		c.tap.BridgeMessage("content", string(c.tab), raw)
	}
	msg, legacy := bridge.Parse(raw)
	if msg == nil {
		c.logger.Debug("dropping unparseable bridge payload")
		return
	}
	if legacy {
		// Compatibility shim for producers predating the version tag.
		c.logger.Warn("coerced unversioned bridge payload", "type", msg.Type())
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("bridge handler panicked", "type", msg.Type(), "err", r)
		}
	}()
	c.handle(msg)
}

func (c *Controller) handle(msg bridge.ContentMessage) {
	switch m := msg.(type) {
	case *bridge.ContentReady:
		c.handleContentReady(m.Path)
	case *bridge.RouteChanged:
		c.handleRouteChanged(m.Path)
	case *bridge.AuthNeeded:
		c.handleAuthDemand("auth_needed")
	case *bridge.AuthExpired:
		c.handleAuthDemand("auth_expired")
	case *bridge.AuthError:
		c.logger.Warn("embedded content auth error", "message", m.Message)
		c.handleAuthDemand("auth_error")
	case *bridge.Navigate:
		if err := c.host.Navigate(m.Path); err != nil {
			c.logger.Warn("host navigate failed", "path", m.Path, "err", err)
		}
	case *bridge.OpenSheet:
		if err := c.host.OpenSheet(m.Sheet, string(m.Data)); err != nil {
			c.logger.Warn("open sheet failed", "sheet", m.Sheet, "err", err)
		}
	case *bridge.Haptic:
		if err := c.host.Haptic(bridge.NormalizeHapticStyle(m.Style)); err != nil {
			c.logger.Debug("haptic failed", "style", m.Style, "err", err)
		}
	case *bridge.OpenExternal:
		if err := c.host.OpenExternal(m.URL); err != nil {
			c.logger.Warn("open external failed", "url", m.URL, "err", err)
		}
	case *bridge.CaptchaToken:
		c.sessions.SetCaptchaToken(m.Token)
	case *bridge.CaptchaExpired:
		c.sessions.ClearCaptchaToken()
	case *bridge.CaptchaError:
		c.logger.Warn("captcha error", "message", m.Message)
		c.sessions.ClearCaptchaToken()
	}
}

func (c *Controller) handleContentReady(path string) {
	c.mu.Lock()
	first := !c.seenReady
	c.seenReady = true
	c.state = StateReady
	c.retries = 0
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.currentPath = path
	theme := c.theme
	c.mu.Unlock()

	c.logger.Info("content ready", "path", path, "first", first)

	c.injector.InjectSession(c.tab, c.view, c.sessions.Current())
	c.injector.InjectTheme(c.tab, c.view, theme)

	if first {
		c.gate.SetReady()
	}
	c.consumePendingDeepLink()
}

func (c *Controller) consumePendingDeepLink() {
	path, ok := c.deeplinks.ConsumeMatching(func(p string) bool {
		return c.routes.ResolveOr(p) == c.tab
	})
	if !ok {
		return
	}
	c.logger.Info("forwarding deep link", "path", path)
	c.deliver(&bridge.NavigateTo{Path: path})
}

func (c *Controller) handleRouteChanged(path string) {
	if tabroute.IsLogin(path) {
		// Content falling back to its login route means the web app no
		// longer holds a session.
		if !c.logouts.InProgress() {
			c.logouts.RequestLogout(string(c.tab))
		}
		return
	}

	resolved := c.routes.ResolveOr(path)
	if resolved != c.tab {
		// Cross-tab navigation: put this view back on its own root
		// without touching web history, then move the user natively.
		c.logger.Info("cross-tab navigation", "path", path, "target", resolved)
		c.deliver(&bridge.NavigateReplace{Path: c.rootPath})
		if err := c.host.SwitchTab(string(resolved)); err != nil {
			c.logger.Warn("tab switch failed", "target", resolved, "err", err)
		}
		return
	}

	c.mu.Lock()
	c.currentPath = path
	c.mu.Unlock()
}

func (c *Controller) handleAuthDemand(trigger string) {
	if s := c.sessions.Current(); s != nil && (s.AccessToken != "" || s.RefreshToken != "") {
		c.injector.InjectSession(c.tab, c.view, s)
		return
	}
	if c.logouts.InProgress() {
		return
	}
	// Content believes it needs a session the shell does not hold.
	// Structural inconsistency, not a transient: force a full logout.
	c.logger.Warn("auth mismatch", "trigger", trigger)
	c.logouts.RequestLogout(string(c.tab))
}

// resetFirstPaint makes the controller treat its next CONTENT_READY as
// the first paint of a new session, so a re-armed ready gate fires
// again after sign-out.
func (c *Controller) resetFirstPaint() {
	c.mu.Lock()
	c.seenReady = false
	c.mu.Unlock()
}

func (c *Controller) handleTabReset(rootPath string) {
	c.deliver(&bridge.NavigateTo{Path: rootPath})
	if err := c.view.Eval(bridge.ScrollTopScript); err != nil {
		c.logger.Debug("scroll-to-top failed", "err", err)
	}
}

// ShouldLoad implements the outbound load-request filter. It reports
// whether the view may load target in place; disallowed HTTP(S) targets
// are handed to the system browser and the in-place load is cancelled.
func (c *Controller) ShouldLoad(target string) bool {
	if c.filter.Decide(target) == NavAllow {
		return true
	}
	c.logger.Info("redirecting navigation to system browser", "url", target)
	if err := c.host.OpenExternal(target); err != nil {
		c.logger.Warn("open external failed", "url", target, "err", err)
	}
	return false
}

// HandleLoadError reacts to a content load failure reported by the
// hosting capability: automatic reloads up to the retry bound, then the
// terminal error state.
func (c *Controller) HandleLoadError(description string) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	// A retry is already pending; let its reload play out rather than
	// burning an attempt on the same failure.
	if c.state == StateRetrying {
		c.mu.Unlock()
		return
	}
	if c.retries >= c.maxRetries {
		c.state = StateErrored
		firstPaintMissing := !c.seenReady
		c.mu.Unlock()

		c.logger.Error("content load failed, giving up",
			"reason", description,
			"attempts", c.maxRetries,
		)
		if firstPaintMissing {
			c.gate.SetError()
		}
		c.showErrorPage()
		return
	}
	c.retries++
	attempt := c.retries
	c.state = StateRetrying
	c.retryTimer = time.AfterFunc(c.retryDelay, c.fireRetry)
	c.mu.Unlock()

	c.logger.Warn("content load failed, scheduling retry",
		"reason", description,
		"attempt", attempt,
		"max", c.maxRetries,
	)
}

func (c *Controller) fireRetry() {
	c.mu.Lock()
	if !c.mounted || c.state != StateRetrying {
		c.mu.Unlock()
		return
	}
	c.state = StateLoading
	c.retryTimer = nil
	c.mu.Unlock()

	if err := c.view.Reload(); err != nil {
		c.logger.Debug("retry reload failed", "err", err)
	}
}

// RetryManually resets the attempt counter and loads the content once
// more. Invoked from the terminal error display.
func (c *Controller) RetryManually() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.retries = 0
	c.state = StateLoading
	c.mu.Unlock()

	c.logger.Info("manual retry")
	// The view may be parked on the local error page, so navigate back
	// to the content URL instead of reloading in place.
	if err := c.view.Navigate(c.ContentURL()); err != nil {
		c.logger.Warn("manual retry navigation failed", "err", err)
	}
}

func (c *Controller) showErrorPage() {
	if c.errorURL == "" {
		return
	}
	target := c.errorURL + "?tab=" + url.QueryEscape(string(c.tab))
	if err := c.view.Navigate(target); err != nil {
		c.logger.Debug("navigating to error page failed", "err", err)
	}
}

func (c *Controller) deliver(m bridge.HostMessage) {
	script, err := bridge.DeliveryScript(m)
	if err != nil {
		c.logger.Warn("building delivery script failed", "type", m.Type(), "err", err)
		return
	}
	if c.tap != nil {
		if encoded, err := bridge.Encode(m); err == nil {
			c.tap.BridgeMessage("host", string(c.tab), encoded)
		}
	}
	if err := c.view.Eval(script); err != nil {
		c.logger.Debug("message delivery failed", "type", m.Type(), "err", err)
	}
}
