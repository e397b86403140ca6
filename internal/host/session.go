// Package host adapts browsing sessions (a rod-driven Chrome window or a plain
// http.RoundTripper) to the request hook surface the swap engine installs into.
package host

import (
	"net/http"
	"regexp"

	"github.com/go-rod/rod/lib/proto"
)

// Filter limits a request hook to URLs matching at least one glob pattern of
// the form scheme://host/path*.
type Filter struct {
	URLs []string
}

type RequestDetails struct {
	URL          string
	Method       string
	ResourceType string
}

// RequestResponse is the verdict for one request. An empty RedirectURL lets
// the request continue unmodified.
type RequestResponse struct {
	Cancel      bool
	RedirectURL string
}

type HeadersDetails struct {
	URL            string
	RequestHeaders http.Header
}

type HeadersResponse struct {
	Cancel         bool
	RequestHeaders http.Header
}

type BeforeRequestHandler func(RequestDetails) RequestResponse

type BeforeSendHeadersHandler func(HeadersDetails) HeadersResponse

// Session is the subset of a browsing session the swap engine relies on.
// Handlers are called concurrently and must return without further I/O.
type Session interface {
	OnBeforeRequest(filter Filter, handler BeforeRequestHandler) error
	OnBeforeSendHeaders(handler BeforeSendHeadersHandler) error
}

// Matcher tests URLs against a set of glob patterns using the same
// translation Chrome's Fetch domain applies to urlPattern.
type Matcher struct {
	patterns []string
	res      []*regexp.Regexp
}

func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: append([]string(nil), patterns...)}
	for _, p := range patterns {
		re, err := regexp.Compile(proto.PatternToReg(p))
		if err != nil {
			return nil, err
		}
		m.res = append(m.res, re)
	}
	return m, nil
}

func (m *Matcher) Match(rawURL string) bool {
	for _, re := range m.res {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
