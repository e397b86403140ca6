// Package site classifies game URLs into the sub-sites the client opens in
// their own windows.
package site

import (
	"fmt"
	"regexp"
	"strings"
)

type Kind int

const (
	External Kind = iota
	Game
	Editor
	Viewer
	Social
	Other
)

func (k Kind) String() string {
	return [...]string{"external", "game", "editor", "viewer", "social", "site"}[k]
}

// Scale is the window size relative to the game window.
func (k Kind) Scale() float64 {
	switch k {
	case Social, Editor:
		return 0.8
	case Viewer:
		return 0.6
	default:
		return 1
	}
}

var joinCodeRe = regexp.MustCompile(`^([A-Z]+):(\w+)$`)

// Router classifies URLs for one canonical host. The local dev server at
// 127.0.0.1:8080 is always accepted alongside it.
type Router struct {
	host   string
	game   *regexp.Regexp
	editor *regexp.Regexp
	viewer *regexp.Regexp
	social *regexp.Regexp
	any    *regexp.Regexp
}

func NewRouter(host string) *Router {
	hosts := `(` + regexp.QuoteMeta(host) + `|127\.0\.0\.1:8080)`
	prefix := `^(https?://)?(www\.)?(.+\.|)` + hosts
	return &Router{
		host:   host,
		game:   regexp.MustCompile(prefix + `(|/|/\?game=.+)$`),
		editor: regexp.MustCompile(prefix + `/editor\.html$`),
		viewer: regexp.MustCompile(prefix + `/viewer\.html(.*)$`),
		social: regexp.MustCompile(prefix + `/social\.html(.*)$`),
		any:    regexp.MustCompile(prefix + `(|/.*)$`),
	}
}

func (r *Router) Classify(url string) Kind {
	switch {
	case r.game.MatchString(url):
		return Game
	case r.editor.MatchString(url):
		return Editor
	case r.viewer.MatchString(url):
		return Viewer
	case r.social.MatchString(url):
		return Social
	case r.any.MatchString(url):
		return Other
	default:
		return External
	}
}

// GameURL is the landing page, or a specific lobby when code is a join code
// such as FRA:abc12.
func (r *Router) GameURL(code string) (string, error) {
	base := "https://" + r.host + "/"
	code = strings.TrimSpace(code)
	if code == "" {
		return base, nil
	}
	if !IsJoinCode(code) {
		return "", fmt.Errorf("invalid join code %q", code)
	}
	return base + "?game=" + code, nil
}

func IsJoinCode(s string) bool {
	return joinCodeRe.MatchString(s)
}
