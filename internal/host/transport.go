package host

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// ErrCanceled is returned by Transport when a request hook cancels a request.
var ErrCanceled = errors.New("request canceled by hook")

type requestHook struct {
	matcher *Matcher
	handler BeforeRequestHandler
}

// Transport is an http.RoundTripper that runs registered hooks before a
// request leaves the process. Request hooks are consulted in registration
// order and the first matching one decides. A redirect that cannot be served
// (bad URL, unreadable file) falls back to the original request.
type Transport struct {
	base http.RoundTripper
	log  *logrus.Entry

	mu       sync.RWMutex
	requests []requestHook
	headers  []BeforeSendHeadersHandler
}

func NewTransport(base http.RoundTripper, log *logrus.Entry) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Transport{base: base, log: log}
}

func (t *Transport) OnBeforeRequest(filter Filter, handler BeforeRequestHandler) error {
	m, err := NewMatcher(filter.URLs)
	if err != nil {
		return fmt.Errorf("compile request filter: %w", err)
	}
	t.mu.Lock()
	t.requests = append(t.requests, requestHook{matcher: m, handler: handler})
	t.mu.Unlock()
	return nil
}

func (t *Transport) OnBeforeSendHeaders(handler BeforeSendHeadersHandler) error {
	t.mu.Lock()
	t.headers = append(t.headers, handler)
	t.mu.Unlock()
	return nil
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	requests := t.requests
	headers := t.headers
	t.mu.RUnlock()

	target := req.URL.String()
	for _, h := range requests {
		if !h.matcher.Match(target) {
			continue
		}
		res := h.handler(RequestDetails{URL: target, Method: req.Method})
		if res.Cancel {
			return nil, ErrCanceled
		}
		if res.RedirectURL != "" && res.RedirectURL != target {
			resp, err := redirectResponse(req, res.RedirectURL)
			if err == nil {
				return resp, nil
			}
			t.log.WithError(err).WithField("url", target).Warn("swap target unusable, passing through")
		}
		break
	}

	out := req.Clone(req.Context())
	for _, h := range headers {
		res := h(HeadersDetails{URL: target, RequestHeaders: out.Header.Clone()})
		if res.Cancel {
			return nil, ErrCanceled
		}
		if res.RequestHeaders != nil {
			out.Header = res.RequestHeaders
		}
	}
	return t.base.RoundTrip(out)
}

func redirectResponse(req *http.Request, dest string) (*http.Response, error) {
	u, err := url.Parse(dest)
	if err != nil {
		return nil, fmt.Errorf("parse redirect %q: %w", dest, err)
	}
	if u.Scheme == "file" {
		return fileResponse(req, FilePath(u))
	}
	return &http.Response{
		Status:     strconv.Itoa(http.StatusTemporaryRedirect) + " " + http.StatusText(http.StatusTemporaryRedirect),
		StatusCode: http.StatusTemporaryRedirect,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Location": {dest}},
		Body:       http.NoBody,
		Request:    req,
	}, nil
}

func fileResponse(req *http.Request, path string) (*http.Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read swapped file: %w", err)
	}
	h := http.Header{}
	h.Set("Content-Type", ContentType(path, data))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
		Request:       req,
	}, nil
}

// FilePath converts a file:// URL back into a native filesystem path.
func FilePath(u *url.URL) string {
	p := u.Path
	// file:///C:/x on Windows
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// ContentType picks a MIME type from the file extension and falls back to
// sniffing the content.
func ContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}
