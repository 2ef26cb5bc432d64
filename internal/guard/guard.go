// Package guard decides what a view may render for the current session
// status and issues the redirects that follow from it.
package guard

import (
	"net/url"
	"strings"
	"sync"

	"taskgate/internal/session"
)

// RedirectParam carries the originally requested path to the login view.
const RedirectParam = "redirect"

// Access classifies a path.
type Access int

const (
	// Public paths render regardless of session status.
	Public Access = iota

	// Protected paths need an authenticated session.
	Protected

	// AuthOnly paths are for signed-out users (login, register).
	AuthOnly
)

// Render is what the caller should show.
type Render int

const (
	// RenderContent shows the view's real content.
	RenderContent Render = iota

	// RenderLoading shows a neutral placeholder while the session resolves.
	RenderLoading

	// RenderNothing shows nothing because a redirect is in flight.
	RenderNothing
)

func (r Render) String() string {
	switch r {
	case RenderContent:
		return "content"
	case RenderLoading:
		return "loading"
	case RenderNothing:
		return "nothing"
	}
	return "unknown"
}

// Navigator moves the client to another path.
type Navigator interface {
	GoTo(path string)
}

// NavigatorFunc adapts a func to Navigator.
type NavigatorFunc func(path string)

// GoTo implements Navigator.
func (f NavigatorFunc) GoTo(path string) { f(path) }

// Config holds the guard's routing table.
type Config struct {
	// FallbackPath receives unauthenticated users. Default "/login".
	FallbackPath string

	// LandingPath receives authenticated users leaving an auth-only path.
	// Default "/".
	LandingPath string

	// Protected and AuthOnly list path prefixes. A prefix matches itself and
	// anything below it.
	Protected []string
	AuthOnly  []string
}

// Classify returns the access class of path.
func (c Config) Classify(path string) Access {
	if matchAny(c.AuthOnly, path) {
		return AuthOnly
	}
	if matchAny(c.Protected, path) {
		return Protected
	}
	return Public
}

func (c Config) withDefaults() Config {
	if c.FallbackPath == "" {
		c.FallbackPath = "/login"
	}
	if c.LandingPath == "" {
		c.LandingPath = "/"
	}
	return c
}

func matchAny(prefixes []string, path string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

type redirectKey struct {
	status session.Status
	path   string
}

// Guard arbitrates rendering and redirects for one client.
type Guard struct {
	cfg Config
	nav Navigator

	mu   sync.Mutex
	last *redirectKey
}

// New creates a Guard.
func New(cfg Config, nav Navigator) *Guard {
	return &Guard{cfg: cfg.withDefaults(), nav: nav}
}

// Config returns the guard's effective configuration.
func (g *Guard) Config() Config {
	return g.cfg
}

// Evaluate decides what to render at location for status, issuing at most
// one redirect per (status, pathname) pair.
func (g *Guard) Evaluate(status session.Status, location *url.URL) Render {
	if location == nil {
		location = &url.URL{Path: "/"}
	}
	path := location.EscapedPath()
	if path == "" {
		path = "/"
	}

	switch g.cfg.Classify(path) {
	case Protected:
		switch status {
		case session.StatusResolving:
			return RenderLoading
		case session.StatusAuthenticated:
			return RenderContent
		}
		g.redirect(status, path, LoginPath(g.cfg.FallbackPath, location))
		return RenderNothing

	case AuthOnly:
		switch status {
		case session.StatusResolving:
			return RenderLoading
		case session.StatusUnauthenticated:
			return RenderContent
		}
		g.redirect(status, path, g.ReturnPath(location.Query().Get(RedirectParam)))
		return RenderNothing
	}
	return RenderContent
}

func (g *Guard) redirect(status session.Status, path, to string) {
	key := redirectKey{status: status, path: path}

	g.mu.Lock()
	if g.last != nil && *g.last == key {
		g.mu.Unlock()
		return
	}
	g.last = &key
	g.mu.Unlock()

	g.nav.GoTo(to)
}

// LoginPath builds the fallback URL carrying the original path and query.
func LoginPath(fallback string, from *url.URL) string {
	original := from.EscapedPath()
	if from.RawQuery != "" {
		original += "?" + from.RawQuery
	}
	return fallback + "?" + RedirectParam + "=" + url.QueryEscape(original)
}

// ReturnPath resolves where an authenticated user should land. Anything
// that is not a rooted local path outside the auth-only set falls back to
// the landing path.
func (g *Guard) ReturnPath(raw string) string {
	next := strings.TrimSpace(raw)
	if next == "" || !safeRedirectChars(next) {
		return g.cfg.LandingPath
	}
	parsed, err := url.Parse(next)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return g.cfg.LandingPath
	}
	if !strings.HasPrefix(parsed.Path, "/") || strings.HasPrefix(parsed.Path, "//") || !safeRedirectChars(parsed.Path) {
		return g.cfg.LandingPath
	}
	if g.cfg.Classify(parsed.Path) == AuthOnly {
		return g.cfg.LandingPath
	}
	if parsed.RawQuery != "" {
		return parsed.EscapedPath() + "?" + parsed.RawQuery
	}
	return parsed.EscapedPath()
}

// safeRedirectChars rejects backslashes and control characters. Browsers
// read a backslash as "/" and strip tabs and newlines, so "/\host" and a
// tab between two slashes both resolve as protocol-relative URLs.
func safeRedirectChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '\\' || c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}

// StateSource is the part of the session store the guard watches.
type StateSource interface {
	State() session.State
	Subscribe(fn func(session.State)) (cancel func())
}

// Watch evaluates the current location now and after every session
// transition. onRender, if set, receives each decision.
func (g *Guard) Watch(src StateSource, current func() *url.URL, onRender func(Render)) (stop func()) {
	eval := func(st session.State) {
		r := g.Evaluate(st.Status, current())
		if onRender != nil {
			onRender(r)
		}
	}
	stop = src.Subscribe(eval)
	eval(src.State())
	return stop
}
