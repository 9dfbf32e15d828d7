package auth

import (
	"strings"
	"testing"
)

func TestLanguageFromEnv(t *testing.T) {
	tests := map[string]string{
		"en_GB.UTF-8": "en-GB",
		"hi_IN":       "hi-IN",
		"de_DE@euro":  "de-DE",
		"C":           "en-US",
		"":            "en-US",
		"POSIX":       "en-US",
	}
	for in, want := range tests {
		if got := languageFromEnv(in); got != want {
			t.Errorf("languageFromEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollectDeviceInfo(t *testing.T) {
	t.Setenv("TZ", "Asia/Tokyo")
	t.Setenv("LANG", "ja_JP.UTF-8")

	info := CollectDeviceInfo("dev-1")
	if !strings.HasPrefix(info.UserAgent, "StockAdvisor-TUI/") {
		t.Errorf("UserAgent = %q", info.UserAgent)
	}
	if info.Timezone != "Asia/Tokyo" || info.Language != "ja-JP" || info.DeviceID != "dev-1" {
		t.Errorf("unexpected info %+v", info)
	}

	ApplyLocation(&info, LocationFromTimezone(info.Timezone))
	if info.City != "Tokyo" || info.Country != "Asia" {
		t.Errorf("location not applied: %+v", info)
	}
}
