package webview

import (
	"sync"

	webview "github.com/webview/webview_go"
)

// Window wraps a desktop webview window behind the View interface. All
// webview operations are marshalled onto the window's UI loop via
// Dispatch.
type Window struct {
	mu   sync.Mutex
	w    webview.WebView
	dead bool
}

func NewWindow(debug bool, title string, width, height int) *Window {
	w := webview.New(debug)
	w.SetTitle(title)
	w.SetSize(width, height, webview.HintMin)
	return &Window{w: w}
}

// Init registers a script that runs in every page before its content
// loads. Must be called before Run.
func (v *Window) Init(script string) {
	v.w.Init(script)
}

// Bind exposes a Go function to the page's JavaScript context.
func (v *Window) Bind(name string, fn any) error {
	return v.w.Bind(name, fn)
}

// Run enters the window's event loop and blocks until it is destroyed.
func (v *Window) Run() {
	v.w.Run()
}

func (v *Window) Destroy() {
	v.mu.Lock()
	if v.dead {
		v.mu.Unlock()
		return
	}
	v.dead = true
	w := v.w
	v.mu.Unlock()

	w.Dispatch(func() {
		w.Destroy()
	})
}

func (v *Window) Navigate(url string) error {
	w, err := v.handle()
	if err != nil {
		return err
	}
	w.Dispatch(func() {
		w.Navigate(url)
	})
	return nil
}

func (v *Window) Eval(script string) error {
	w, err := v.handle()
	if err != nil {
		return err
	}
	w.Dispatch(func() {
		w.Eval(script)
	})
	return nil
}

func (v *Window) Reload() error {
	return v.Eval("location.reload();")
}

func (v *Window) Live() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.dead
}

func (v *Window) handle() (webview.WebView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dead {
		return nil, ErrDead
	}
	return v.w, nil
}
