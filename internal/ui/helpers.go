package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var pagePadding = lipgloss.NewStyle().Padding(1, 2)

// padPage applies the shared page margin.
func padPage(s string) string {
	return pagePadding.Render(s)
}

// truncateMiddle shortens s to max runes, keeping both ends visible.
func truncateMiddle(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	keep := max - 3
	head := keep / 2
	tail := keep - head
	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:])
}

// formatMinutes renders a minute count as "1h 30m" or "45m".
func formatMinutes(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// formatUptime renders seconds of uptime as the largest sensible unit pair.
func formatUptime(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	d := time.Duration(seconds) * time.Second
	switch {
	case d >= 24*time.Hour:
		days := d / (24 * time.Hour)
		hours := (d % (24 * time.Hour)) / time.Hour
		return fmt.Sprintf("%dd %dh", days, hours)
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", d/time.Hour, (d%time.Hour)/time.Minute)
	case d >= time.Minute:
		return fmt.Sprintf("%dm %ds", d/time.Minute, (d%time.Minute)/time.Second)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// progressBar renders a fixed-width bar for percent in [0, 100].
func progressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// signalMeter maps the controller's coarse wifi quality labels to a meter.
func signalMeter(signal string) string {
	switch strings.ToLower(strings.TrimSpace(signal)) {
	case "ottimo", "excellent":
		return "▂▄▆█"
	case "buono", "good":
		return "▂▄▆ "
	case "discreto", "fair":
		return "▂▄  "
	case "debole", "weak":
		return "▂   "
	default:
		return "?   "
	}
}
