package store

import (
	"path/filepath"
	"testing"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SetBool(KeyUnlimitedFrames, false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if err := s.Set("swapDir", "/games/swap"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	if s.Bool(KeyUnlimitedFrames, true) {
		t.Fatalf("expected %s to stay false after reopen", KeyUnlimitedFrames)
	}
	if got := s.Get("swapDir", ""); got != "/games/swap" {
		t.Fatalf("expected persisted swapDir, got %q", got)
	}
}

func TestStoreDefaultsAndOverwrite(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if !s.Bool(KeyUnlimitedFrames, true) {
		t.Fatalf("expected default true for unset key")
	}
	if s.Bool(KeyD3D9Mode, false) {
		t.Fatalf("expected default false for unset key")
	}

	_ = s.Set("mode", "a")
	_ = s.Set("mode", "b")
	if got := s.Get("mode", ""); got != "b" {
		t.Fatalf("expected overwrite to win, got %q", got)
	}

	_ = s.Set("junk", "not-a-bool")
	if !s.Bool("junk", true) {
		t.Fatalf("expected default for unparsable bool")
	}
}

func TestStoreKeysAndDelete(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SetBool(KeyD3D9Mode, true)
	_ = s.SetBool(KeyUnlimitedFrames, true)

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != KeyD3D9Mode || keys[1] != KeyUnlimitedFrames {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := s.Delete(KeyD3D9Mode); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Bool(KeyD3D9Mode, false) {
		t.Fatalf("expected deleted key to fall back to default")
	}
}

func TestStoreReset(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SetBool(KeyUnlimitedFrames, false)
	_ = s.SetBool(KeyD3D9Mode, true)
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	keys, err := s.Keys()
	if err != nil || len(keys) != 0 {
		t.Fatalf("expected no keys after reset, got %v, %v", keys, err)
	}
	if !s.Bool(KeyUnlimitedFrames, true) || s.Bool(KeyD3D9Mode, false) {
		t.Fatalf("expected defaults after reset")
	}
}
