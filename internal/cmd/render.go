package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#22C55E"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("111")).
			Bold(true).
			Width(10)
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)
)

// RenderProfile writes a styled summary of the signed-in player.
func RenderProfile(w io.Writer, result *LoginResult) {
	_, _ = fmt.Fprintln(w, profileSummary(result))
}

func profileSummary(result *LoginResult) string {
	profile := result.Profile

	id := profile.ID
	if parsed, err := profile.UUID(); err == nil {
		id = parsed.String()
	}

	rows := [][2]string{
		{"Player", profile.Name},
		{"UUID", id},
	}
	if skin, ok := profile.ActiveSkin().Get(); ok {
		variant := skin.Variant
		if variant == "" {
			variant = "CLASSIC"
		}
		rows = append(rows, [2]string{"Skin", variant + " " + skin.URL})
	}
	for _, cape := range profile.Capes {
		if cape.State == "ACTIVE" {
			rows = append(rows, [2]string{"Cape", cape.Alias})
		}
	}

	if result.Token != nil && !result.Token.Expiry.IsZero() {
		rows = append(rows, [2]string{"Expires", result.Token.Expiry.Local().Format(time.DateTime)})
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Minecraft sign-in successful"))
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString(labelStyle.Render(row[0]))
		sb.WriteString(valueStyle.Render(row[1]))
		sb.WriteString("\n")
	}
	sb.WriteString(mutedStyle.Render("run " + result.RunID))
	return boxStyle.Render(sb.String())
}

// RenderJSON writes the result as indented JSON.
func RenderJSON(w io.Writer, result *LoginResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
