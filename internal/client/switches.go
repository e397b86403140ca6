package client

import (
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/krunkswap/krunkswap/internal/store"
)

// Settings is the read side of the persisted settings store.
type Settings interface {
	Bool(key string, def bool) bool
}

var baseSwitches = []string{
	"disable-http-cache",
	"ignore-gpu-blacklist",
	"enable-webgl2-compute-context",
	"disable-breakpad",
	"disable-component-update",
	"disable-print-preview",
	"disable-metrics",
	"disable-metrics-repo",
	"smooth-scrolling",
	"enable-parallel-downloading",
	"enable-quic",
	"disable-hang-monitor",
}

// Switches maps the persisted settings to Chrome command line switches.
func Switches(s Settings, amdCPU bool) map[string][]string {
	sw := make(map[string][]string, len(baseSwitches)+8)
	for _, name := range baseSwitches {
		sw[name] = nil
	}
	if s.Bool(store.KeyUnlimitedFrames, true) {
		if amdCPU {
			sw["disable-zero-copy"] = nil
			sw["ui-disable-partial-swap"] = nil
		}
		sw["disable-frame-rate-limit"] = nil
		sw["disable-gpu-vsync"] = nil
	}
	if s.Bool(store.KeyD3D9Mode, false) {
		sw["use-angle"] = []string{"d3d9"}
		sw["use-cmd-decoder"] = []string{"passthrough"}
		sw["renderer-process-limit"] = []string{"100"}
		sw["max-active-webgl-contexts"] = []string{"100"}
	}
	return sw
}

func IsAMDCPU() bool {
	infos, err := cpu.Info()
	if err != nil {
		return false
	}
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.ModelName), "amd") ||
			strings.Contains(strings.ToLower(info.VendorID), "amd") {
			return true
		}
	}
	return false
}
