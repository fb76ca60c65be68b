package bridge

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Version is the wire version of the bridge protocol. Every message
// carries it as the literal discriminant "v".
const Version = 2

// Type tags posted by embedded content.
const (
	TypeContentReady   = "CONTENT_READY"
	TypeRouteChanged   = "ROUTE_CHANGED"
	TypeAuthNeeded     = "AUTH_NEEDED"
	TypeAuthExpired    = "AUTH_EXPIRED"
	TypeAuthError      = "AUTH_ERROR"
	TypeNavigate       = "NAVIGATE"
	TypeOpenSheet      = "OPEN_SHEET"
	TypeHaptic         = "HAPTIC"
	TypeOpenExternal   = "OPEN_EXTERNAL"
	TypeCaptchaToken   = "CAPTCHA_TOKEN"
	TypeCaptchaExpired = "CAPTCHA_EXPIRED"
	TypeCaptchaError   = "CAPTCHA_ERROR"
)

// Type tags delivered into embedded content.
const (
	TypeAuthSession     = "AUTH_SESSION"
	TypeAuthLogout      = "AUTH_LOGOUT"
	TypeThemeChange     = "THEME_CHANGE"
	TypeNavigateTo      = "NAVIGATE_TO"
	TypeNavigateReplace = "NAVIGATE_REPLACE"
)

type Message interface {
	Type() string
}

// ContentMessage is the closed set of messages embedded content posts to
// the shell.
type ContentMessage interface {
	Message
	contentMessage()
}

// HostMessage is the closed set of messages the shell delivers into
// embedded content.
type HostMessage interface {
	Message
	hostMessage()
}

type ContentReady struct {
	Path string `json:"path"`
}

type RouteChanged struct {
	Path string `json:"path"`
}

type AuthNeeded struct{}

type AuthExpired struct{}

type AuthError struct {
	Message string `json:"message"`
}

type Navigate struct {
	Path string `json:"path"`
}

type OpenSheet struct {
	Sheet string          `json:"sheet"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Haptic struct {
	Style string `json:"style"`
}

type OpenExternal struct {
	URL string `json:"url"`
}

type CaptchaToken struct {
	Token string `json:"token"`
}

type CaptchaExpired struct{}

type CaptchaError struct {
	Message string `json:"message"`
}

type AuthSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthLogout struct{}

type ThemeChange struct {
	Theme string `json:"theme"`
}

type NavigateTo struct {
	Path string `json:"path"`
}

type NavigateReplace struct {
	Path string `json:"path"`
}

func (*ContentReady) Type() string    { return TypeContentReady }
func (*RouteChanged) Type() string    { return TypeRouteChanged }
func (*AuthNeeded) Type() string      { return TypeAuthNeeded }
func (*AuthExpired) Type() string     { return TypeAuthExpired }
func (*AuthError) Type() string       { return TypeAuthError }
func (*Navigate) Type() string        { return TypeNavigate }
func (*OpenSheet) Type() string       { return TypeOpenSheet }
func (*Haptic) Type() string          { return TypeHaptic }
func (*OpenExternal) Type() string    { return TypeOpenExternal }
func (*CaptchaToken) Type() string    { return TypeCaptchaToken }
func (*CaptchaExpired) Type() string  { return TypeCaptchaExpired }
func (*CaptchaError) Type() string    { return TypeCaptchaError }
func (*AuthSession) Type() string     { return TypeAuthSession }
func (*AuthLogout) Type() string      { return TypeAuthLogout }
func (*ThemeChange) Type() string     { return TypeThemeChange }
func (*NavigateTo) Type() string      { return TypeNavigateTo }
func (*NavigateReplace) Type() string { return TypeNavigateReplace }

func (*ContentReady) contentMessage()   {}
func (*RouteChanged) contentMessage()   {}
func (*AuthNeeded) contentMessage()     {}
func (*AuthExpired) contentMessage()    {}
func (*AuthError) contentMessage()      {}
func (*Navigate) contentMessage()       {}
func (*OpenSheet) contentMessage()      {}
func (*Haptic) contentMessage()         {}
func (*OpenExternal) contentMessage()   {}
func (*CaptchaToken) contentMessage()   {}
func (*CaptchaExpired) contentMessage() {}
func (*CaptchaError) contentMessage()   {}

func (*AuthSession) hostMessage()     {}
func (*AuthLogout) hostMessage()      {}
func (*ThemeChange) hostMessage()     {}
func (*NavigateTo) hostMessage()      {}
func (*NavigateReplace) hostMessage() {}

// Parse decodes a raw payload posted by embedded content. It returns nil
// for malformed JSON, for objects without a recognized type tag, and for
// any payload carrying an explicit version other than the current one.
//
// Payloads with no "v" field at all come from legacy producers and are
// coerced to the current version before decoding; legacy reports that the
// shim fired so the caller can log it. The shim is one-way forward only:
// a foreign explicit version is never upgraded.
func Parse(raw string) (msg ContentMessage, legacy bool) {
	if !gjson.Valid(raw) {
		return nil, false
	}
	root := gjson.Parse(raw)
	if !root.IsObject() {
		return nil, false
	}

	v := root.Get("v")
	if v.Exists() && (v.Type != gjson.Number || v.Num != float64(Version)) {
		return nil, false
	}
	legacy = !v.Exists()

	switch root.Get("type").String() {
	case TypeContentReady:
		msg = &ContentReady{}
	case TypeRouteChanged:
		msg = &RouteChanged{}
	case TypeAuthNeeded:
		msg = &AuthNeeded{}
	case TypeAuthExpired:
		msg = &AuthExpired{}
	case TypeAuthError:
		msg = &AuthError{}
	case TypeNavigate:
		msg = &Navigate{}
	case TypeOpenSheet:
		msg = &OpenSheet{}
	case TypeHaptic:
		msg = &Haptic{}
	case TypeOpenExternal:
		msg = &OpenExternal{}
	case TypeCaptchaToken:
		msg = &CaptchaToken{}
	case TypeCaptchaExpired:
		msg = &CaptchaExpired{}
	case TypeCaptchaError:
		msg = &CaptchaError{}
	default:
		return nil, false
	}

	if err := json.Unmarshal([]byte(raw), msg); err != nil {
		return nil, false
	}
	return msg, legacy
}

// Encode serializes a message to its wire form, tagging it with the
// current version and its type tag.
func Encode(m Message) (string, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	out, err := sjson.Set(string(payload), "v", Version)
	if err != nil {
		return "", err
	}
	return sjson.Set(out, "type", m.Type())
}
