package shell

import (
	"log/slog"

	"github.com/stridefit/stride/internal/auth"
	"github.com/stridefit/stride/internal/bridge"
	"github.com/stridefit/stride/internal/tabroute"
	"github.com/stridefit/stride/internal/webview"
)

// SessionInjector pushes the current auth session into embedded views
// and retracts it on logout. The shell only ever hands views a snapshot
// of the session the auth collaborator holds; nothing flows back.
//
// Delivery failures are swallowed here: a view torn down mid-flight
// self-corrects on its next CONTENT_READY round trip, and a content-side
// failure surfaces as an AUTH_ERROR message instead.
type SessionInjector struct {
	logger *slog.Logger
}

func NewSessionInjector(logger *slog.Logger) *SessionInjector {
	return &SessionInjector{logger: logger}
}

// InjectSession delivers an AUTH_SESSION message carrying the session's
// tokens. No-op when the view has no live handle or the session lacks
// both tokens. Idempotent: repeating the same session is safe.
func (i *SessionInjector) InjectSession(tab tabroute.Tab, v webview.View, s *auth.Session) {
	if v == nil || !v.Live() {
		return
	}
	if s == nil || (s.AccessToken == "" && s.RefreshToken == "") {
		return
	}
	i.deliver(tab, v, &bridge.AuthSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	})
}

// InjectLogout delivers AUTH_LOGOUT unconditionally, even when no
// session was ever injected, so the embedded content can always reach a
// clean logged-out state.
func (i *SessionInjector) InjectLogout(tab tabroute.Tab, v webview.View) {
	if v == nil {
		return
	}
	i.deliver(tab, v, &bridge.AuthLogout{})
}

// InjectTheme pushes the shell's theme into a view.
func (i *SessionInjector) InjectTheme(tab tabroute.Tab, v webview.View, theme string) {
	if v == nil || theme == "" {
		return
	}
	i.deliver(tab, v, &bridge.ThemeChange{Theme: theme})
}

func (i *SessionInjector) deliver(tab tabroute.Tab, v webview.View, m bridge.HostMessage) {
	script, err := bridge.DeliveryScript(m)
	if err != nil {
		i.logger.Warn("building delivery script failed", "tab", tab, "type", m.Type(), "err", err)
		return
	}
	if err := v.Eval(script); err != nil {
		i.logger.Debug("script delivery failed", "tab", tab, "type", m.Type(), "err", err)
	}
}
