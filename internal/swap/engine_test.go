package swap

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/krunkswap/krunkswap/internal/host"
)

const gameKey = "://krunker.io/js/game"

func TestLoadLocalGameScriptWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "game.js", "local game")
	writeFile(t, root, "textures/a.png", "png")

	res := Load(context.Background(), Options{
		Root:     root,
		Host:     "krunker.io",
		Resolver: StaticResolver("abc123"),
		Log:      quiet,
	})
	if res.ScanErr != nil || res.ResolveErr != nil {
		t.Fatalf("unexpected errors: scan=%v resolve=%v", res.ScanErr, res.ResolveErr)
	}
	if res.Token != "abc123" {
		t.Fatalf("expected token abc123, got %q", res.Token)
	}
	dest, ok := res.Table.Destination(gameKey)
	if !ok || !strings.HasPrefix(dest, "file://") || !strings.HasSuffix(dest, "/game.js") {
		t.Fatalf("expected local game script destination, got %q", dest)
	}
	if _, ok := res.Table.Destination("://krunker.io/game.js"); ok {
		t.Fatalf("game.js must not get a generic rule")
	}
	if _, ok := res.Table.Destination("://krunker.io/textures/a.png"); !ok {
		t.Fatalf("expected a rule for textures/a.png")
	}
	if p := res.Table.Patterns(); p[0] != "*://krunker.io/js/game*" {
		t.Fatalf("expected the game rule first, got %v", p)
	}
}

func TestLoadVersionedRemote(t *testing.T) {
	root := t.TempDir()
	res := Load(context.Background(), Options{
		Root:     root,
		Host:     "krunker.io",
		Resolver: StaticResolver("abc123"),
		Log:      quiet,
	})
	dest, ok := res.Table.Destination(gameKey)
	if !ok || dest != "https://krunker.io/js/game.abc123.js" {
		t.Fatalf("expected versioned remote, got %q", dest)
	}

	d := NewInterceptor(res.Table, quiet).Decide("https://krunker.io/js/game.min.js")
	if d.RedirectURL != "https://krunker.io/js/game.abc123.js" {
		t.Fatalf("unexpected redirect %q", d.RedirectURL)
	}
}

func TestLoadResolverFailureKeepsLocalRules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "textures/a.png", "png")

	res := Load(context.Background(), Options{
		Root:     root,
		Host:     "krunker.io",
		Resolver: StaticResolver(""),
		Log:      quiet,
	})
	if res.ResolveErr == nil {
		t.Fatalf("expected a resolve error")
	}
	if _, ok := res.Table.Destination(gameKey); ok {
		t.Fatalf("expected no game rule without a token")
	}
	if res.Table.Len() != 1 {
		t.Fatalf("expected the texture rule to survive, got %d entries", res.Table.Len())
	}
}

func TestLoadWithoutResolver(t *testing.T) {
	res := Load(context.Background(), Options{Root: t.TempDir(), Host: "krunker.io", Log: quiet})
	if res.ResolveErr != nil {
		t.Fatalf("unexpected resolve error %v", res.ResolveErr)
	}
	if res.Table.Len() != 0 {
		t.Fatalf("expected an empty table, got %d", res.Table.Len())
	}
}

func TestLoadCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Documents", "KrunkerResourceSwapper")
	res := Load(context.Background(), Options{Root: root, Host: "krunker.io", Log: quiet})
	if res.ScanErr != nil {
		t.Fatalf("unexpected scan error %v", res.ScanErr)
	}
	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		t.Fatalf("expected swap root to be created: %v", err)
	}
}

func TestInstallOrder(t *testing.T) {
	s := &recordingSession{}
	table := testTable()
	if _, err := Install(s, table, NewHeaderRewriter("", nil), quiet); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(s.headers) != 1 || len(s.requests) != 1 {
		t.Fatalf("expected one header hook and one request hook, got %d and %d", len(s.headers), len(s.requests))
	}
}

func TestSwapOverTransport(t *testing.T) {
	var (
		mu                 sync.Mutex
		seenUA, seenPragma string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seenUA = r.UserAgent()
		seenPragma = r.Header.Get("Pragma")
		mu.Unlock()
		io.WriteString(w, "remote "+r.URL.Path)
	}))
	defer srv.Close()

	addr := srv.Listener.Addr().(*net.TCPAddr).String()
	root := t.TempDir()
	writeFile(t, root, "textures/a.png", "swapped")

	res := Load(context.Background(), Options{Root: root, Host: addr, Log: quiet})
	tr := host.NewTransport(nil, quiet)
	if _, err := Install(tr, res.Table, NewHeaderRewriter("krunkswap-test", nil), quiet); err != nil {
		t.Fatalf("Install: %v", err)
	}
	client := &http.Client{Transport: tr}

	get := func(path string) string {
		t.Helper()
		resp, err := client.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		return string(body)
	}

	if got := get("/textures/a.png?v=2"); got != "swapped" {
		t.Fatalf("expected swapped file content, got %q", got)
	}
	if got := get("/textures/b.png"); got != "remote /textures/b.png" {
		t.Fatalf("expected remote content, got %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if seenUA != "krunkswap-test" || seenPragma != "no-cache" {
		t.Fatalf("headers not rewritten: ua=%q pragma=%q", seenUA, seenPragma)
	}
}

func TestLoadThemeScenario(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "css/theme.css", "body{}")

	res := Load(context.Background(), Options{Root: root, Host: "krunker.io", Log: quiet})
	ic := NewInterceptor(res.Table, quiet)

	want := FileURI(path)
	if d := ic.Decide("https://krunker.io/css/theme.css?v=2"); d.RedirectURL != want {
		t.Fatalf("expected %s, got %q", want, d.RedirectURL)
	}
	if d := ic.Decide("https://krunker.io/css/other.css"); d.RedirectURL != "" || d.Cancel {
		t.Fatalf("expected pass-through, got %+v", d)
	}
}

func TestLoadKeepsFileNamesContainingJS(t *testing.T) {
	for _, name := range []string{"plain", "my.js_swaps"} {
		root := filepath.Join(t.TempDir(), name)
		files := map[string]string{
			"https://krunker.io/css/theme.js-old.css": writeFile(t, root, "css/theme.js-old.css", "old"),
			"https://krunker.io/sound/a.js b.mp3":     writeFile(t, root, "sound/a.js b.mp3", "snd"),
			"https://krunker.io/css/theme.css":        writeFile(t, root, "css/theme.css", "css"),
		}

		res := Load(context.Background(), Options{Root: root, Host: "krunker.io", Log: quiet})
		ic := NewInterceptor(res.Table, quiet)
		for u, path := range files {
			if got, want := ic.Decide(u).RedirectURL, FileURI(path); got != want {
				t.Fatalf("root %s: Decide(%s) = %s, want %s", name, u, got, want)
			}
		}
	}
}
