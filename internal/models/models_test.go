package models

import (
	"strings"
	"testing"
)

func TestValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"NEXUS-0000-1111-2222-3333", true},
		{"NEXUS-ABCD-EF01-2345-6789", true},
		{"NEXUS-abcd-ef01-2345-6789", false}, // normalization happens first
		{"NEXUS-0000-1111-2222", false},
		{"NEXUS-0000-1111-2222-3333-4444", false},
		{"OTHER-0000-1111-2222-3333", false},
		{"NEXUS-GGGG-1111-2222-3333", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := ValidKey(tt.key); got != tt.want {
				t.Errorf("ValidKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  nexus-abcd-ef01-2345-6789  "); got != "NEXUS-ABCD-EF01-2345-6789" {
		t.Errorf("NormalizeKey = %q", got)
	}
	long := strings.Repeat("A", 2*MaxKeyLength)
	if got := NormalizeKey(long); len(got) != MaxKeyLength {
		t.Errorf("NormalizeKey did not cap length: %d", len(got))
	}
}

func TestMaskHardwareID(t *testing.T) {
	if got := MaskHardwareID("machine-aaaa-bbbb"); got != "machin...bbbb" {
		t.Errorf("MaskHardwareID = %q", got)
	}
	// Short ids leak nothing.
	if got := MaskHardwareID("abcdefghi"); got != "*********" {
		t.Errorf("MaskHardwareID short = %q", got)
	}
}

func TestParseChannel(t *testing.T) {
	for in, want := range map[string]Channel{
		"":           ChannelStable,
		"stable":     ChannelStable,
		"latest":     ChannelStable,
		"Beta":       ChannelBeta,
		"prerelease": ChannelBeta,
	} {
		got, err := ParseChannel(in)
		if err != nil || got != want {
			t.Errorf("ParseChannel(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseChannel("nightly"); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestParsePlatformAliases(t *testing.T) {
	for in, want := range map[string]Platform{
		"darwin":  PlatformMac,
		"macos":   PlatformMac,
		"osx":     PlatformMac,
		"windows": PlatformWin,
		"win32":   PlatformWin,
		"linux":   PlatformLinux,
	} {
		got, err := ParsePlatform(in)
		if err != nil || got != want {
			t.Errorf("ParsePlatform(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
}

func TestParseArchDefaultsToX64(t *testing.T) {
	for in, want := range map[string]Arch{
		"":        ArchX64,
		"amd64":   ArchX64,
		"x86_64":  ArchX64,
		"aarch64": ArchARM64,
		"arm64":   ArchARM64,
	} {
		got, err := ParseArch(in)
		if err != nil || got != want {
			t.Errorf("ParseArch(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
}

func TestLastPathSegment(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://cdn.nexusapp.io/releases/Nexus-1.0.35.dmg", "Nexus-1.0.35.dmg"},
		{"https://cdn.nexusapp.io/Nexus.dmg?sig=abc#frag", "Nexus.dmg"},
		{"Nexus-1.0.35.dmg", "Nexus-1.0.35.dmg"},
	}
	for _, tt := range tests {
		if got := LastPathSegment(tt.in); got != tt.want {
			t.Errorf("LastPathSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
