// ABOUTME: Color themes and lipgloss style constructors for the TUI
// ABOUTME: Themes are selected by name; unknown names fall back to the default
package theme

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Primary    lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color
	InputBg    lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Sent       lipgloss.Color
	Received   lipgloss.Color
	Dim        lipgloss.Color
}

var DefaultTheme = Theme{
	Primary:    lipgloss.Color("#7C3AED"), // Purple
	Background: lipgloss.Color("#1E1E2E"), // Dark gray
	Foreground: lipgloss.Color("#CDD6F4"), // Light gray
	InputBg:    lipgloss.Color("#313244"), // Medium gray
	Success:    lipgloss.Color("#A6E3A1"), // Green
	Error:      lipgloss.Color("#F38BA8"), // Red
	Sent:       lipgloss.Color("#89B4FA"), // Blue
	Received:   lipgloss.Color("#94E2D5"), // Cyan
	Dim:        lipgloss.Color("#6C7086"), // Dim gray
}

var DarkTheme = Theme{
	Primary:    lipgloss.Color("#00FF00"),
	Background: lipgloss.Color("#000000"),
	Foreground: lipgloss.Color("#FFFFFF"),
	InputBg:    lipgloss.Color("#1A1A1A"),
	Success:    lipgloss.Color("#00FF00"),
	Error:      lipgloss.Color("#FF0000"),
	Sent:       lipgloss.Color("#00FFFF"),
	Received:   lipgloss.Color("#FF00FF"),
	Dim:        lipgloss.Color("#808080"),
}

var LightTheme = Theme{
	Primary:    lipgloss.Color("#268BD2"),
	Background: lipgloss.Color("#FDF6E3"),
	Foreground: lipgloss.Color("#657B83"),
	InputBg:    lipgloss.Color("#EEE8D5"),
	Success:    lipgloss.Color("#859900"),
	Error:      lipgloss.Color("#DC322F"),
	Sent:       lipgloss.Color("#268BD2"),
	Received:   lipgloss.Color("#2AA198"),
	Dim:        lipgloss.Color("#93A1A1"),
}

func GetTheme(name string) Theme {
	switch name {
	case "dark":
		return DarkTheme
	case "light":
		return LightTheme
	default:
		return DefaultTheme
	}
}

func (t Theme) TranscriptStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Foreground).
		Padding(0, 1)
}

func (t Theme) InputStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.InputBg).
		Foreground(t.Foreground).
		Padding(0, 1)
}

func (t Theme) StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.Primary).
		Foreground(t.Background).
		Padding(0, 1)
}

func (t Theme) SentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Sent)
}

func (t Theme) ReceivedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Received)
}

func (t Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Error).
		Bold(true)
}

func (t Theme) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Success)
}

func (t Theme) DimStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Dim)
}
