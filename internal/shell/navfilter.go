package shell

import (
	"fmt"
	"net/url"
	"strings"
)

// NavDecision says what to do with a load request an embedded view
// wants to perform.
type NavDecision int

const (
	// NavAllow loads the target in place.
	NavAllow NavDecision = iota
	// NavExternal cancels the in-place load and hands the target to
	// the system browser.
	NavExternal
)

// DefaultVideoHosts is the fixed allow-list of video-embed domains
// permitted to load inside nested frames instead of being pushed to the
// external browser.
func DefaultVideoHosts() []string {
	return []string{
		"youtube.com",
		"www.youtube.com",
		"youtube-nocookie.com",
		"www.youtube-nocookie.com",
		"player.vimeo.com",
		"vimeo.com",
		"www.loom.com",
	}
}

// NavFilter gates outbound load requests. Non-HTTP schemes (deep links,
// tel:, mailto:) always load; HTTP(S) loads in place only on the app's
// own host, the loopback control server, or an allow-listed video-embed
// host. Everything else goes to the system browser.
type NavFilter struct {
	appHost string
	allowed map[string]struct{}
}

func NewNavFilter(appURL string, videoHosts []string) (*NavFilter, error) {
	u, err := url.Parse(appURL)
	if err != nil {
		return nil, fmt.Errorf("parse app url: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("app url %q has no host", appURL)
	}
	allowed := make(map[string]struct{}, len(videoHosts))
	for _, h := range videoHosts {
		allowed[strings.ToLower(h)] = struct{}{}
	}
	return &NavFilter{
		appHost: strings.ToLower(u.Hostname()),
		allowed: allowed,
	}, nil
}

func (f *NavFilter) Decide(target string) NavDecision {
	u, err := url.Parse(target)
	if err != nil {
		return NavExternal
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return NavAllow
	}
	host := strings.ToLower(u.Hostname())
	if host == f.appHost || host == "127.0.0.1" || host == "localhost" {
		return NavAllow
	}
	if _, ok := f.allowed[host]; ok {
		return NavAllow
	}
	return NavExternal
}
