package webview

import "errors"

// ErrDead is returned when a view operation targets a destroyed surface.
var ErrDead = errors.New("webview: view destroyed")

// View is one embedded browser surface the shell can drive. Desktop
// views wrap a webview window; mobile views delegate to the native host
// through the bridge.
type View interface {
	// Navigate points the view at a URL.
	Navigate(url string) error

	// Eval executes a script in the view's JavaScript context.
	Eval(script string) error

	// Reload reloads the current content from scratch.
	Reload() error

	// Live reports whether the underlying surface still exists.
	Live() bool
}
