package swap

import (
	"net/http"
	"testing"

	"github.com/krunkswap/krunkswap/internal/host"
)

func TestHeaderRewriterDefaults(t *testing.T) {
	rw := NewHeaderRewriter("", nil)
	if rw.UserAgent != DefaultUserAgent {
		t.Fatalf("expected default user agent, got %s", rw.UserAgent)
	}
	if rw.Extra["Pragma"] != "no-cache" {
		t.Fatalf("expected Pragma: no-cache by default, got %v", rw.Extra)
	}
}

func TestHeaderRewriterOverwrites(t *testing.T) {
	rw := NewHeaderRewriter("ua-test", map[string]string{"Pragma": "no-cache", "X-Client": "swap"})
	h := http.Header{}
	h.Set("User-Agent", "Electron/10")
	h.Set("Accept", "*/*")
	rw.Rewrite(h)

	if h.Get("User-Agent") != "ua-test" {
		t.Fatalf("expected user agent to be replaced, got %s", h.Get("User-Agent"))
	}
	if h.Get("Pragma") != "no-cache" || h.Get("X-Client") != "swap" {
		t.Fatalf("expected extra headers to be set, got %v", h)
	}
	if h.Get("Accept") != "*/*" {
		t.Fatalf("expected other headers to be kept")
	}
}

func TestHeaderRewriterInstall(t *testing.T) {
	s := &recordingSession{}
	if err := NewHeaderRewriter("ua-test", nil).Install(s); err != nil {
		t.Fatalf("Install: %v", err)
	}
	res := s.headers[0](host.HeadersDetails{URL: "https://krunker.io/"})
	if res.Cancel {
		t.Fatalf("header hook must not cancel")
	}
	if res.RequestHeaders.Get("User-Agent") != "ua-test" {
		t.Fatalf("unexpected headers %v", res.RequestHeaders)
	}
}
