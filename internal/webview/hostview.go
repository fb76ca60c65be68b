package webview

import "github.com/stridefit/stride/internal/bridge"

// HostView drives a natively-owned view (WKWebView, Android WebView)
// through the bridge host. Lifecycle belongs to the native side: the
// surface exists for as long as its controller stays mounted, so Live is
// always true here and teardown races surface as swallowed injection
// errors instead.
type HostView struct {
	host bridge.Host
	tab  string
}

func NewHostView(host bridge.Host, tab string) *HostView {
	return &HostView{host: host, tab: tab}
}

func (v *HostView) Navigate(url string) error {
	return v.host.NavigateView(v.tab, url)
}

func (v *HostView) Eval(script string) error {
	return v.host.EvalView(v.tab, script)
}

func (v *HostView) Reload() error {
	return v.host.ReloadView(v.tab)
}

func (v *HostView) Live() bool {
	return true
}
