package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/term"

	"stockadvisor/api"
)

// Version is reported in the guest user agent.
const Version = "1.0.0"

// CollectDeviceInfo gathers what the terminal can tell about this machine.
// Missing pieces are left at their zero value.
func CollectDeviceInfo(deviceID string) api.DeviceInfo {
	info := api.DeviceInfo{
		UserAgent: fmt.Sprintf("StockAdvisor-TUI/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Language:  languageFromEnv(os.Getenv("LANG")),
		Timezone:  localTimezone(),
		DeviceID:  deviceID,
	}

	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		info.ScreenWidth = w
		info.ScreenHeight = h
	}
	return info
}

// ApplyLocation copies the located fields into info.
func ApplyLocation(info *api.DeviceInfo, loc Location) {
	info.IPAddress = loc.IP
	info.City = loc.City
	info.Country = loc.Country
	info.Latitude = loc.Latitude
	info.Longitude = loc.Longitude
}

// languageFromEnv turns "en_GB.UTF-8" into "en-GB".
func languageFromEnv(lang string) string {
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return "en-US"
	}
	return strings.ReplaceAll(lang, "_", "-")
}

func localTimezone() string {
	if tz := os.Getenv("TZ"); tz != "" {
		return strings.TrimPrefix(tz, ":")
	}
	if target, err := filepath.EvalSymlinks("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			return target[i+len("zoneinfo/"):]
		}
	}
	return ""
}
