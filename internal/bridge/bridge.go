package bridge

// Host is implemented by the platform shell (Swift/Kotlin via gomobile,
// or the desktop entrypoint).
//
// Rules for gomobile compatibility:
//   - methods may only use primitive types, strings, []byte, or other
//     gomobile-bound types as parameters and return values
//   - no variadic parameters
//   - errors are returned as a second return value
type Host interface {
	// Haptic fires device haptic feedback. style is one of the
	// canonical styles produced by NormalizeHapticStyle.
	Haptic(style string) error

	// OpenExternal opens a URL in the system browser, never inside an
	// embedded view.
	OpenExternal(url string) error

	// OpenSheet presents a native sheet. data is a JSON-encoded payload
	// (possibly empty) the sheet implementation interprets.
	OpenSheet(sheet string, data string) error

	// SwitchTab makes the given tab the active navigation tab.
	SwitchTab(tab string) error

	// Navigate forwards a host-level navigation request (NAVIGATE
	// messages) to the platform's router.
	Navigate(path string) error

	// EvalView executes a script in the view mounted for tab.
	EvalView(tab string, script string) error

	// NavigateView points the view mounted for tab at a URL.
	NavigateView(tab string, url string) error

	// ReloadView reloads the view mounted for tab from scratch.
	ReloadView(tab string) error

	// AppReady tells the platform the first content paint happened and
	// the splash screen can come down.
	AppReady() error

	// AppLoadFailed tells the platform the first paint will not arrive
	// so it can bypass the splash path entirely.
	AppLoadFailed() error
}

// Canonical haptic styles the shell asks the platform for.
const (
	HapticLight     = "light"
	HapticMedium    = "medium"
	HapticHeavy     = "heavy"
	HapticSuccess   = "success"
	HapticWarning   = "warning"
	HapticError     = "error"
	HapticSelection = "selection"
)

// NormalizeHapticStyle maps the style field of a HAPTIC message to the
// nearest canonical style. Unknown styles degrade to light rather than
// being dropped.
func NormalizeHapticStyle(style string) string {
	switch style {
	case HapticLight, HapticMedium, HapticHeavy,
		HapticSuccess, HapticWarning, HapticError, HapticSelection:
		return style
	case "soft":
		return HapticLight
	case "rigid":
		return HapticHeavy
	case "impact":
		return HapticMedium
	case "notificationSuccess":
		return HapticSuccess
	case "notificationWarning":
		return HapticWarning
	case "notificationError":
		return HapticError
	default:
		return HapticLight
	}
}
