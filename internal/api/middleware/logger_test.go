package middleware

import (
	"net/url"
	"strings"
	"testing"
)

func TestRedactQueryString(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		redacted []string
		kept     []string
	}{
		{
			name:     "download token",
			rawQuery: "channel=stable&platform=mac&arch=arm64&t=secret.token",
			redacted: []string{"t"},
			kept:     []string{"channel", "platform", "arch"},
		},
		{
			name:     "legacy license credentials",
			rawQuery: "key=NEXUS-0000-1111-2222-3333&hwid=machine-1&appVersion=1.0.35",
			redacted: []string{"key", "hwid"},
			kept:     []string{"appVersion"},
		},
		{
			name:     "nothing sensitive",
			rawQuery: "channel=beta&debug=1",
			kept:     []string{"channel", "debug"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := redactQueryString(tt.rawQuery)

			parsed, err := url.ParseQuery(out)
			if err != nil {
				t.Fatalf("redacted query does not parse: %v", err)
			}
			for _, name := range tt.redacted {
				if parsed.Get(name) != "[REDACTED]" {
					t.Errorf("%s = %q, want [REDACTED]", name, parsed.Get(name))
				}
			}
			original, _ := url.ParseQuery(tt.rawQuery)
			for _, name := range tt.kept {
				if parsed.Get(name) != original.Get(name) {
					t.Errorf("%s = %q, want %q", name, parsed.Get(name), original.Get(name))
				}
			}
			if strings.Contains(out, "secret.token") || strings.Contains(out, "machine-1") {
				t.Errorf("sensitive value leaked: %q", out)
			}
		})
	}
}

func TestRedactQueryStringEmpty(t *testing.T) {
	if out := redactQueryString(""); out != "" {
		t.Errorf("redactQueryString(\"\") = %q", out)
	}
}
