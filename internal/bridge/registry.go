package bridge

import "fmt"

var global Host

// Register is called once from native (Swift/Kotlin) before Start(). It
// exists only at the gomobile seam; components inside the shell receive
// the host by construction, not through this package.
func Register(h Host) {
	global = h
}

// Get returns the registered host. Panics if Register was never called.
func Get() Host {
	if global == nil {
		panic("bridge: no Host registered, call bridge.Register() before Start()")
	}
	return global
}

// Safe returns the host and an error instead of panicking.
func Safe() (Host, error) {
	if global == nil {
		return nil, fmt.Errorf("bridge: no Host registered")
	}
	return global, nil
}
