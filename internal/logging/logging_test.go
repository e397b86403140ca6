package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "krunkswap.log")
	log, closeLog, err := New("debug", path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.WithField("key", "://krunker.io/a.png").Debug("redirecting")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "redirecting") || !strings.Contains(out, "session=") {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New("loud", ""); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}
