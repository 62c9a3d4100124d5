package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// confirmModal asks a yes/no question and runs onConfirm on yes.
type confirmModal struct {
	title     string
	body      string
	onConfirm tea.Cmd
}

func newConfirmModal(title, body string, onConfirm tea.Cmd) confirmModal {
	return confirmModal{title: title, body: body, onConfirm: onConfirm}
}

func (c confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(km, keys.Confirm):
		return c, c.onConfirm, true
	case key.Matches(km, keys.Cancel):
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles().WithBackground(theme.SurfaceAlt)
	bg := NewBgStyle(theme.SurfaceAlt)

	lines := []string{
		bg.Render(c.title, styles.Text.Bold(true)),
		"",
		bg.Render(c.body, styles.MutedText),
		"",
		bg.Join([]string{
			bg.Render("enter/y", styles.WarningText) + bg.Render(" confirm", styles.MutedText),
			bg.Render("esc/n", styles.WarningText) + bg.Render(" cancel", styles.MutedText),
		}, "   "),
	}
	box := theme.Styles().Modal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
