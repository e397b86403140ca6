package swap

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/krunkswap/krunkswap/internal/host"
	"github.com/krunkswap/krunkswap/internal/logging"
)

var quiet = logging.Discard()

// recordingSession captures what the engine installs without a browser.
type recordingSession struct {
	mu       sync.Mutex
	filters  []host.Filter
	requests []host.BeforeRequestHandler
	headers  []host.BeforeSendHeadersHandler
}

func (s *recordingSession) OnBeforeRequest(filter host.Filter, handler host.BeforeRequestHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filter)
	s.requests = append(s.requests, handler)
	return nil
}

func (s *recordingSession) OnBeforeSendHeaders(handler host.BeforeSendHeadersHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = append(s.headers, handler)
	return nil
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}
