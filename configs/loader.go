package configs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost       = "krunker.io"
	DefaultSwapFolder = "KrunkerResourceSwapper"
)

type Profile struct {
	Host           string            `yaml:"host"`
	SwapDir        string            `yaml:"swap_dir"`
	UserAgent      string            `yaml:"user_agent"`
	ExtraHeaders   map[string]string `yaml:"extra_headers"`
	TLSFingerprint string            `yaml:"tls_fingerprint"`
	Resolver       struct {
		Enabled bool          `yaml:"enabled"`
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"resolver"`
	Window struct {
		Width       int    `yaml:"width"`
		Height      int    `yaml:"height"`
		UserDataDir string `yaml:"user_data_dir"`
	} `yaml:"window"`
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
	StorePath string `yaml:"store_path"`
}

var profileCache = struct {
	sync.RWMutex
	m map[string]*Profile
}{m: make(map[string]*Profile)}

func ConfigRoot() string {
	if v := os.Getenv("KRUNKSWAP_CONFIG_DIR"); v != "" {
		return v
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "krunkswap")
	}
	return "configs"
}

// LoadProfile reads profiles/<name>.yaml under ConfigRoot. A missing file
// yields the defaults.
func LoadProfile(name string) (*Profile, error) {
	profileCache.RLock()
	if p, ok := profileCache.m[name]; ok {
		profileCache.RUnlock()
		return p, nil
	}
	profileCache.RUnlock()

	cfg := defaultProfile()
	path := filepath.Join(ConfigRoot(), "profiles", name+".yaml")
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	if err := validateProfile(cfg); err != nil {
		return nil, err
	}

	profileCache.Lock()
	profileCache.m[name] = cfg
	profileCache.Unlock()
	return cfg, nil
}

func defaultProfile() *Profile {
	p := &Profile{TLSFingerprint: "chrome"}
	p.Resolver.Enabled = true
	return p
}

func validateProfile(p *Profile) error {
	if p.Host == "" {
		p.Host = DefaultHost
	}
	if p.SwapDir == "" {
		p.SwapDir = DefaultSwapDir()
	}
	if p.Resolver.URL == "" {
		p.Resolver.URL = "https://" + p.Host + "/"
	}
	if p.Resolver.Timeout <= 0 {
		p.Resolver.Timeout = 8 * time.Second
	}
	if p.ExtraHeaders == nil {
		p.ExtraHeaders = map[string]string{"Pragma": "no-cache"}
	}
	if p.Window.Width <= 0 {
		p.Window.Width = 1280
	}
	if p.Window.Height <= 0 {
		p.Window.Height = 720
	}
	if p.LogLevel == "" {
		p.LogLevel = "info"
	}
	if p.StorePath == "" {
		p.StorePath = filepath.Join(ConfigRoot(), "settings.db")
	}
	return nil
}

// DefaultSwapDir is KrunkerResourceSwapper under the user's Documents folder.
func DefaultSwapDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultSwapFolder
	}
	return filepath.Join(home, "Documents", DefaultSwapFolder)
}

func ClearCaches() {
	profileCache.Lock()
	profileCache.m = make(map[string]*Profile)
	profileCache.Unlock()
}
