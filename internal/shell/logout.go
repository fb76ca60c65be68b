package shell

import (
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/stridefit/stride/internal/tabroute"
	"github.com/stridefit/stride/internal/webview"
)

// DefaultLogoutSettle is how long the coordinator stays latched after a
// logout fires. Near-simultaneous triggers from other views land inside
// the window and are discarded.
const DefaultLogoutSettle = 2 * time.Second

// LogoutCoordinator collapses logout triggers arriving from any mounted
// view or from native auth failure into exactly one sign-out sequence.
// The latch auto-expires after the settle window regardless of whether
// the sign-out effect succeeded, so a failed logout never wedges the
// shell. It also keeps the registry of live view handles used to reload
// every view after a fresh sign-in.
type LogoutCoordinator struct {
	settle time.Duration
	logger *slog.Logger
	views  *xsync.Map[tabroute.Tab, webview.View]

	mu         sync.Mutex
	inProgress bool
	closed     bool
	timer      *time.Timer
	effect     func(source string)
}

func NewLogoutCoordinator(settle time.Duration, logger *slog.Logger) *LogoutCoordinator {
	if settle <= 0 {
		settle = DefaultLogoutSettle
	}
	return &LogoutCoordinator{
		settle: settle,
		logger: logger,
		views:  xsync.NewMap[tabroute.Tab, webview.View](),
	}
}

// SetEffect registers the single callback that performs the actual
// sign-out and navigation. It runs at most once per settle window.
func (c *LogoutCoordinator) SetEffect(fn func(source string)) {
	c.mu.Lock()
	c.effect = fn
	c.mu.Unlock()
}

// RequestLogout triggers the sign-out sequence unless one is already in
// flight, in which case the call is discarded.
func (c *LogoutCoordinator) RequestLogout(source string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.inProgress {
		c.mu.Unlock()
		c.logger.Debug("logout already in progress", "source", source)
		return
	}
	c.inProgress = true
	c.timer = time.AfterFunc(c.settle, c.release)
	effect := c.effect
	c.mu.Unlock()

	c.logger.Info("logout requested", "source", source)
	if effect == nil {
		c.logger.Warn("logout requested with no effect registered", "source", source)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("logout effect panicked", "source", source, "err", r)
		}
	}()
	effect(source)
}

// InProgress reports whether a logout sequence is inside its settle
// window. Controllers consult it before raising an auth mismatch.
func (c *LogoutCoordinator) InProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProgress
}

// Close releases the coordinator and cancels any scheduled latch reset
// so it cannot fire against a torn-down instance.
func (c *LogoutCoordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.inProgress = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *LogoutCoordinator) release() {
	c.mu.Lock()
	c.inProgress = false
	c.timer = nil
	c.mu.Unlock()
}

// RegisterView adds a mounted view to the reload registry.
func (c *LogoutCoordinator) RegisterView(tab tabroute.Tab, v webview.View) {
	c.views.Store(tab, v)
}

// UnregisterView drops the handle for an unmounted view.
func (c *LogoutCoordinator) UnregisterView(tab tabroute.Tab) {
	c.views.Delete(tab)
}

// ReloadAll reloads every registered view from scratch. Used after a
// fresh sign-in so previously logged-out views pick up the new session
// rather than relying on message injection alone.
func (c *LogoutCoordinator) ReloadAll() {
	count := 0
	c.views.Range(func(tab tabroute.Tab, v webview.View) bool {
		count++
		if err := v.Reload(); err != nil {
			c.logger.Debug("reload failed", "tab", tab, "err", err)
		}
		return true
	})
	c.logger.Info("reloading all views", "count", count)
}
