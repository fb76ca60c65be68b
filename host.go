package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/toqueteos/webbrowser"

	"github.com/stridefit/stride/internal/bridge"
	"github.com/stridefit/stride/internal/shell"
	"github.com/stridefit/stride/internal/tabroute"
	"github.com/stridefit/stride/internal/webview"
)

const baseTitle = "Stride"

// desktopHost renders each tab as its own window. The dashboard owns
// the main goroutine; SwitchTab lazily opens the others. Haptics and
// sheets have no desktop equivalent and are logged only.
type desktopHost struct {
	shell   *shell.Shell
	windows *xsync.Map[tabroute.Tab, *webview.Window]
	logger  *slog.Logger
}

var _ bridge.Host = (*desktopHost)(nil)

func newDesktopHost(logger *slog.Logger) *desktopHost {
	return &desktopHost{
		windows: xsync.NewMap[tabroute.Tab, *webview.Window](),
		logger:  logger,
	}
}

// setShell must be called before any window opens.
func (h *desktopHost) setShell(s *shell.Shell) {
	h.shell = s
}

func (h *desktopHost) Haptic(style string) error {
	h.logger.Debug("haptic ignored on desktop", "style", style)
	return nil
}

func (h *desktopHost) OpenExternal(url string) error {
	h.logger.Info("opening external url", "url", url)
	return webbrowser.Open(url)
}

func (h *desktopHost) OpenSheet(sheet string, data string) error {
	h.logger.Info("sheet requested, no desktop presenter", "sheet", sheet)
	return nil
}

func (h *desktopHost) SwitchTab(tab string) error {
	t, ok := tabroute.ParseTab(tab)
	if !ok {
		return fmt.Errorf("unknown tab %q", tab)
	}
	if _, exists := h.windows.Load(t); exists {
		h.logger.Debug("tab window already open", "tab", t)
		return nil
	}
	go h.runTabWindow(t, tabTitle(t))
	return nil
}

func (h *desktopHost) Navigate(path string) error {
	// Desktop has no native router; treat host navigation like a
	// deep link so the right tab window opens and receives the path.
	return h.shell.HandleDeepLink(path)
}

func (h *desktopHost) EvalView(tab string, script string) error {
	w, err := h.window(tab)
	if err != nil {
		return err
	}
	return w.Eval(script)
}

func (h *desktopHost) NavigateView(tab string, url string) error {
	w, err := h.window(tab)
	if err != nil {
		return err
	}
	return w.Navigate(url)
}

func (h *desktopHost) ReloadView(tab string) error {
	w, err := h.window(tab)
	if err != nil {
		return err
	}
	return w.Reload()
}

func (h *desktopHost) AppReady() error {
	h.logger.Info("app ready")
	return nil
}

func (h *desktopHost) AppLoadFailed() error {
	h.logger.Error("app failed to load")
	return nil
}

// runTabWindow opens the window for a tab, mounts it on the shell and
// blocks until the window closes.
func (h *desktopHost) runTabWindow(tab tabroute.Tab, title string) {
	w := webview.NewWindow(true, title, 1040, 768)
	w.Init(bridge.BootstrapScript(string(tab)))
	if err := w.Bind("__strideSend", func(raw string) {
		if c, ok := h.shell.Controller(tab); ok {
			c.HandleRaw(raw)
		}
	}); err != nil {
		h.logger.Error("failed to bind bridge send", "tab", tab, "err", err)
		w.Destroy()
		return
	}

	h.windows.Store(tab, w)
	if _, err := h.shell.Mount(tab, title, w); err != nil {
		h.logger.Error("failed to mount tab", "tab", tab, "err", err)
		h.windows.Delete(tab)
		w.Destroy()
		return
	}

	w.Run()

	h.shell.Unmount(tab)
	h.windows.Delete(tab)
}

func (h *desktopHost) window(tab string) (*webview.Window, error) {
	t, ok := tabroute.ParseTab(tab)
	if !ok {
		return nil, fmt.Errorf("unknown tab %q", tab)
	}
	w, exists := h.windows.Load(t)
	if !exists {
		return nil, fmt.Errorf("no window for tab %q", tab)
	}
	return w, nil
}

func tabTitle(tab tabroute.Tab) string {
	if tab == tabroute.TabDashboard {
		return baseTitle
	}
	name := string(tab)
	return fmt.Sprintf("%s | %s%s", baseTitle, strings.ToUpper(name[:1]), name[1:])
}
