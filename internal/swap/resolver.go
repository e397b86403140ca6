package swap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// VersionResolver discovers the build token the live site currently serves.
type VersionResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// ResolutionError reports a failed build token lookup. Status is set for
// non-2xx responses.
type ResolutionError struct {
	URL    string
	Status int
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("resolve build from %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("resolve build from %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

var (
	ErrMarkerNotFound = errors.New("build marker not found")

	buildTokenRe = regexp.MustCompile(`build=([^"]+)`)
)

const maxPageBytes = 4 << 20

// PageResolver fetches the landing page once and scans it for build=<token>".
type PageResolver struct {
	Client  *http.Client
	URL     string
	Timeout time.Duration
}

func NewPageResolver(client *http.Client, host string, timeout time.Duration) *PageResolver {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &PageResolver{
		Client:  client,
		URL:     "https://" + host + "/",
		Timeout: timeout,
	}
}

func (r *PageResolver) Resolve(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return "", &ResolutionError{URL: r.URL, Err: err}
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return "", &ResolutionError{URL: r.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ResolutionError{URL: r.URL, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", &ResolutionError{URL: r.URL, Err: err}
	}

	token, ok := ExtractBuildToken(body)
	if !ok {
		return "", &ResolutionError{URL: r.URL, Err: ErrMarkerNotFound}
	}
	return token, nil
}

// ExtractBuildToken returns the text between the first build= marker and the
// next double quote.
func ExtractBuildToken(body []byte) (string, bool) {
	m := buildTokenRe.FindSubmatch(body)
	if len(m) < 2 {
		return "", false
	}
	return string(m[1]), true
}

// StaticResolver returns a fixed token; useful when the build is pinned.
type StaticResolver string

func (s StaticResolver) Resolve(context.Context) (string, error) {
	if s == "" {
		return "", &ResolutionError{URL: "static", Err: ErrMarkerNotFound}
	}
	return string(s), nil
}

// Script declares a swappable script whose remote name carries the build
// token, e.g. /js/game.<token>.js.
type Script struct {
	Name string
	// File is the override file name relative to the swap root.
	File string
	// Path is the site path prefix matched by the rule, e.g. /js/game.
	Path string
	// Versioned builds https://host<Path>.<token>.js when a token is known.
	Versioned bool
}

func DefaultScripts() []Script {
	return []Script{{Name: "game", File: "game.js", Path: "/js/game", Versioned: true}}
}

func (s Script) Pattern(host string) string {
	return Pattern(host, s.Path)
}

func (s Script) RemoteURL(host, token string) string {
	return "https://" + host + s.Path + "." + token + ".js"
}
