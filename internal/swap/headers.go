package swap

import (
	"net/http"

	"github.com/krunkswap/krunkswap/internal/host"
)

// DefaultUserAgent is the desktop Chrome build every request presents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/76.0.3809.100 Safari/537.36"

// HeaderRewriter overwrites User-Agent and sets Extra on every request.
type HeaderRewriter struct {
	UserAgent string
	Extra     map[string]string
}

func NewHeaderRewriter(userAgent string, extra map[string]string) *HeaderRewriter {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if extra == nil {
		extra = map[string]string{"Pragma": "no-cache"}
	}
	return &HeaderRewriter{UserAgent: userAgent, Extra: extra}
}

// Rewrite mutates h in place.
func (r *HeaderRewriter) Rewrite(h http.Header) {
	for k, v := range r.Extra {
		h.Set(k, v)
	}
	h.Set("User-Agent", r.UserAgent)
}

func (r *HeaderRewriter) Install(session host.Session) error {
	return session.OnBeforeSendHeaders(func(d host.HeadersDetails) host.HeadersResponse {
		h := d.RequestHeaders
		if h == nil {
			h = http.Header{}
		}
		r.Rewrite(h)
		return host.HeadersResponse{RequestHeaders: h}
	})
}
