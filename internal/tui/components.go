package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// renderHeader returns a styled header with an optional muted subtitle.
func renderHeader(title, subtitle string, width int) string {
	title = truncateEnd(title, width-2)
	subtitle = truncateEnd(subtitle, width-2)
	rows := []string{HeaderStyle.Render(title)}
	if subtitle != "" {
		rows = append(rows, renderMuted(subtitle))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderInputFrame draws a rounded border around an already rendered input.
func renderInputFrame(inputView string, focused bool, contentWidth int) string {
	borderColor := MutedColor
	if focused {
		borderColor = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(contentWidth + 2).
		Render(inputView)
}

func renderCentered(width, height int, content string) string {
	if height < 1 {
		height = 1
	}
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderEmptyState(es emptyState, width, height int) string {
	title := HeaderStyle
	if es.kind == StatusError {
		title = StatusErrorStyle
	}
	msgWidth := width - 8
	if msgWidth < 20 {
		msgWidth = width
	}
	body := lipgloss.JoinVertical(
		lipgloss.Center,
		title.Render(es.title),
		"",
		lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(msgWidth).
			Align(lipgloss.Center).
			Render(es.message),
	)
	return renderCentered(width, height, body)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}
