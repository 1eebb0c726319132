package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors for the UI.
type Theme struct {
	Name string

	Background string
	Surface    string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	SelectionBg   string
	SelectionText string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),
		InfoText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
}

var themes = []Theme{
	{
		Name:          "Garden",
		Background:    "#10140f",
		Surface:       "#1c241a",
		Text:          "#e6ede2",
		Muted:         "#9aa896",
		Faint:         "#5c6858",
		Accent:        "#7dc4e4",
		Success:       "#a6da95",
		Warning:       "#eed49f",
		Danger:        "#ed8796",
		Info:          "#8aadf4",
		SelectionBg:   "#33402f",
		SelectionText: "#e6ede2",
	},
	{
		Name:          "Dracula",
		Background:    "#282a36",
		Surface:       "#343746",
		Text:          "#f8f8f2",
		Muted:         "#9aa0b5",
		Faint:         "#6272a4",
		Accent:        "#bd93f9",
		Success:       "#50fa7b",
		Warning:       "#f1fa8c",
		Danger:        "#ff5555",
		Info:          "#8be9fd",
		SelectionBg:   "#44475a",
		SelectionText: "#f8f8f2",
	},
	{
		Name:          "Paper",
		Background:    "#fafaf7",
		Surface:       "#ededea",
		Text:          "#2c2c2c",
		Muted:         "#6b6b6b",
		Faint:         "#a8a8a8",
		Accent:        "#1e66f5",
		Success:       "#40a02b",
		Warning:       "#df8e1d",
		Danger:        "#d20f39",
		Info:          "#179299",
		SelectionBg:   "#dcdcd7",
		SelectionText: "#2c2c2c",
	},
}

// GetTheme returns the named theme, defaulting to the first one.
func GetTheme(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// NextTheme returns the name following the given theme, wrapping around.
func NextTheme(name string) string {
	for i, t := range themes {
		if t.Name == name {
			return themes[(i+1)%len(themes)].Name
		}
	}
	return themes[0].Name
}
