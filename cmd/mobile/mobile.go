// Package mobile is the gomobile surface. Every exported function uses
// only strings and primitives so gomobile can bind it for Swift and
// Kotlin.
//
// Lifecycle: RegisterHost, then Start. The platform mounts a view per
// tab as it builds its tab bar and forwards raw bridge messages, load
// errors and tab reselects here.
package mobile

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/stridefit/stride/internal/auth"
	"github.com/stridefit/stride/internal/bridge"
	"github.com/stridefit/stride/internal/config"
	"github.com/stridefit/stride/internal/server"
	"github.com/stridefit/stride/internal/shell"
	"github.com/stridefit/stride/internal/tabroute"
	"github.com/stridefit/stride/internal/webview"
)

var (
	mu       sync.Mutex
	sh       *shell.Shell
	stopFunc func()
)

// RegisterHost installs the platform implementation of the bridge.
// Must be called before Start.
func RegisterHost(h bridge.Host) {
	bridge.Register(h)
}

// Start brings up the shell and the loopback control server and
// returns the control server's base address. dataDir is the
// platform's app data directory; it is created if missing.
func Start(dataDir string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if stopFunc != nil {
		return "", fmt.Errorf("shell already running")
	}

	host, err := bridge.Safe()
	if err != nil {
		return "", fmt.Errorf("call RegisterHost before Start: %w", err)
	}

	slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	mgr := auth.NewManager(auth.KeyringStore{}, cfg.AuthURL, cfg.AuthAPIKey, slogger)
	mgr.Restore(context.Background())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}
	addr := fmt.Sprintf("http://127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)

	newShell, err := shell.New(shell.Config{
		AppURL:       cfg.AppURL,
		ErrorURL:     addr + "/error",
		Theme:        cfg.Theme,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		LogoutSettle: time.Duration(cfg.LogoutSettleMs) * time.Millisecond,
		VideoHosts:   cfg.VideoHosts,
	}, host, mgr, slogger)
	if err != nil {
		listener.Close()
		return "", fmt.Errorf("failed to build shell: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(cfg.ControlKey)
	if err != nil {
		key = []byte(cfg.ControlKey)
	}
	srv := server.New(newShell, key, slogger)
	newShell.SetTap(srv.Hub())

	httpSrv := &http.Server{Handler: srv.Handler()}
	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			slogger.Error("control server error", "err", err)
		}
	}()
	slogger.Info("shell started", "addr", addr)

	sh = newShell
	stopFunc = func() {
		httpSrv.Close()
		listener.Close()
		newShell.Close()
	}

	return addr, nil
}

// Stop tears the shell down. Safe to call twice.
func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if stopFunc != nil {
		stopFunc()
		stopFunc = nil
		sh = nil
	}
}

func running() (*shell.Shell, error) {
	mu.Lock()
	defer mu.Unlock()

	if sh == nil {
		return nil, fmt.Errorf("shell not running")
	}
	return sh, nil
}

func parseTab(tab string) (tabroute.Tab, error) {
	t, ok := tabroute.ParseTab(tab)
	if !ok {
		return "", fmt.Errorf("unknown tab %q", tab)
	}
	return t, nil
}

// MountView attaches a controller for tab to the native view the
// platform just created. The view is driven back through the host's
// EvalView, NavigateView and ReloadView.
func MountView(tab string, title string) error {
	s, err := running()
	if err != nil {
		return err
	}
	t, err := parseTab(tab)
	if err != nil {
		return err
	}
	_, err = s.Mount(t, title, webview.NewHostView(bridge.Get(), tab))
	return err
}

// UnmountView detaches the controller for tab.
func UnmountView(tab string) error {
	s, err := running()
	if err != nil {
		return err
	}
	t, err := parseTab(tab)
	if err != nil {
		return err
	}
	s.Unmount(t)
	return nil
}

// HandleMessage forwards one raw bridge payload from the view for tab.
// Unparseable payloads are dropped inside the shell, never returned as
// errors to the platform.
func HandleMessage(tab string, raw string) error {
	s, err := running()
	if err != nil {
		return err
	}
	t, err := parseTab(tab)
	if err != nil {
		return err
	}
	c, ok := s.Controller(t)
	if !ok {
		return fmt.Errorf("tab %q not mounted", tab)
	}
	c.HandleRaw(raw)
	return nil
}

// ShouldLoad reports whether the view for tab may load target itself.
// When it returns false the shell has already routed the URL to the
// external browser.
func ShouldLoad(tab string, target string) bool {
	s, err := running()
	if err != nil {
		return true
	}
	t, err := parseTab(tab)
	if err != nil {
		return true
	}
	c, ok := s.Controller(t)
	if !ok {
		return true
	}
	return c.ShouldLoad(target)
}

// HandleLoadError reports a failed page load for tab.
func HandleLoadError(tab string, description string) error {
	s, err := running()
	if err != nil {
		return err
	}
	t, err := parseTab(tab)
	if err != nil {
		return err
	}
	c, ok := s.Controller(t)
	if !ok {
		return fmt.Errorf("tab %q not mounted", tab)
	}
	c.HandleLoadError(description)
	return nil
}

// ManualRetry restarts loading for a tab parked on the error page.
func ManualRetry(tab string) error {
	s, err := running()
	if err != nil {
		return err
	}
	t, err := parseTab(tab)
	if err != nil {
		return err
	}
	c, ok := s.Controller(t)
	if !ok {
		return fmt.Errorf("tab %q not mounted", tab)
	}
	c.RetryManually()
	return nil
}

// TabReselected reports a tap on the already-active tab bar item.
func TabReselected(tab string) error {
	s, err := running()
	if err != nil {
		return err
	}
	t, err := parseTab(tab)
	if err != nil {
		return err
	}
	s.TabReselected(t)
	return nil
}

// HandleDeepLink routes an external URL (custom scheme or universal
// link) into the app.
func HandleDeepLink(url string) error {
	s, err := running()
	if err != nil {
		return err
	}
	return s.HandleDeepLink(url)
}

// CanSwipeBack reports whether the view for tab sits on a subpage the
// platform may pop with an edge swipe.
func CanSwipeBack(tab string) bool {
	s, err := running()
	if err != nil {
		return false
	}
	t, err := parseTab(tab)
	if err != nil {
		return false
	}
	c, ok := s.Controller(t)
	if !ok {
		return false
	}
	return c.CanSwipeBack()
}

// SetTheme pushes a theme change into every mounted view.
func SetTheme(theme string) error {
	s, err := running()
	if err != nil {
		return err
	}
	s.SetTheme(theme)
	return nil
}

// BootstrapScript returns the script the platform must inject at
// document start into the view for tab.
func BootstrapScript(tab string) string {
	return bridge.BootstrapScript(tab)
}

// ContentURL returns the initial URL the platform should load into the
// view for tab.
func ContentURL(tab string) (string, error) {
	s, err := running()
	if err != nil {
		return "", err
	}
	t, err := parseTab(tab)
	if err != nil {
		return "", err
	}
	c, ok := s.Controller(t)
	if !ok {
		return "", fmt.Errorf("tab %q not mounted", tab)
	}
	return c.ContentURL(), nil
}
