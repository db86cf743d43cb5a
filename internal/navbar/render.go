package navbar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#89b4fa")
	colorMuted  = lipgloss.Color("#6c7086")

	barStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	menuStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
)

// Render draws v as a one-line bar for a terminal, followed by the side
// menu when it is visible.
func Render(v View, destinations []string) string {
	user := mutedStyle.Render("(not loaded)")
	if v.AppData != nil {
		user = v.AppData.AppInfo.UserInfo.DisplayName
	}

	parts := []string{barStyle.Render("mydms"), user}
	if v.ShowAmount {
		parts = append(parts, "amounts shown")
	} else {
		parts = append(parts, mutedStyle.Render("amounts hidden"))
	}
	if v.SearchText != "" {
		parts = append(parts, fmt.Sprintf("search %q", v.SearchText))
	}
	if v.ShowProgress {
		parts = append(parts, "loading...")
	}
	out := strings.Join(parts, mutedStyle.Render(" | "))

	if v.MenuVisible && len(destinations) > 0 {
		out += "\n" + menuStyle.Render(strings.Join(destinations, "\n"))
	}
	return out
}
