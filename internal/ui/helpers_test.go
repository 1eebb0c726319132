package ui

import (
	"strings"
	"testing"
	"time"
)

func TestTruncateMiddle(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a-very-long-network-name", 12, "a-ve...-name"},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateMiddle(tt.in, tt.max); got != tt.want {
			t.Fatalf("truncateMiddle(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{45, "45m"},
		{60, "1h"},
		{90, "1h 30m"},
	}
	for _, tt := range tests {
		if got := formatMinutes(tt.minutes); got != tt.want {
			t.Fatalf("formatMinutes(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{42, "42s"},
		{125, "2m 5s"},
		{3660, "1h 1m"},
		{90000, "1d 1h"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.seconds); got != tt.want {
			t.Fatalf("formatUptime(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(50, 10); strings.Count(got, "█") != 5 {
		t.Fatalf("bar = %q, want 5 filled", got)
	}
	if got := progressBar(-10, 4); strings.Count(got, "█") != 0 {
		t.Fatalf("bar = %q, want empty", got)
	}
	if got := progressBar(250, 4); strings.Count(got, "█") != 4 {
		t.Fatalf("bar = %q, want full", got)
	}
}

func TestThemeLookup(t *testing.T) {
	if got := GetTheme("Garden").Name; got != "Garden" {
		t.Fatalf("theme = %q, want Garden", got)
	}
	if got := GetTheme("no-such-theme").Name; got != themes[0].Name {
		t.Fatalf("fallback theme = %q, want %q", got, themes[0].Name)
	}

	// Cycling visits every theme and wraps.
	name := themes[0].Name
	for range themes {
		name = NextTheme(name)
	}
	if name != themes[0].Name {
		t.Fatalf("cycle did not wrap: %q", name)
	}
}

func TestNotices_ExpireAfterTTL(t *testing.T) {
	n := NewNotices()
	n.Add("zone 1: device rejected request")
	n.Add("")

	now := time.Now()
	active := n.Active(now)
	if len(active) != 1 {
		t.Fatalf("active = %v, want one notice (empty messages dropped)", active)
	}

	active = n.Active(now.Add(noticeTTL + time.Second))
	if len(active) != 0 {
		t.Fatalf("active = %v, want expired", active)
	}
}
