package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderMain stacks header, banner, content and command bar.
func (m Model) renderMain() string {
	parts := []string{m.renderHeader()}
	if m.banner != "" {
		parts = append(parts, m.renderBanner())
	}

	var content string
	switch m.currentView {
	case ViewLogin:
		content = m.renderLogin()
	case ViewDetail:
		content = m.renderDetail()
	case ViewProfile:
		content = m.renderProfile()
	case ViewLogs:
		content = m.renderLogs()
	default:
		content = m.renderFeed()
	}
	content = lipgloss.NewStyle().
		Width(m.width).
		Height(m.contentHeight()).
		MaxHeight(m.contentHeight()).
		Render(content)

	parts = append(parts, content, m.renderCommandBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{
		bg.Render("shutter", styles.Logo),
		bg.Render(m.currentView.String(), styles.AccentText.Bold(true)),
	}

	if m.currentView != ViewLogin {
		n := len(m.snapshot.Photos)
		count := fmt.Sprintf("%d photos", n)
		if n == 1 {
			count = "1 photo"
		}
		if m.snapshot.HasCursor {
			count += fmt.Sprintf(" · page %d", m.snapshot.Cursor)
		}
		parts = append(parts, bg.Render(count, styles.MutedText))
	}

	switch {
	case m.bootstrapping, m.loadingPage, m.exchanging:
		parts = append(parts, bg.Render(m.spinner.View(), styles.AccentText)+bg.Render(" loading", styles.MutedText))
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("OFFLINE", styles.DangerText))
	}

	if m.profile != nil && m.currentView != ViewLogin {
		parts = append(parts, bg.Render(m.profile.LoginName, styles.FaintText))
	}

	return bg.FillLine(bg.Join(parts, "  "), m.width)
}

func (m Model) renderBanner() string {
	styles := m.theme.Styles()
	return styles.Banner.Width(m.width).Render(truncate(m.banner, maxInt(1, m.width-2)))
}

// renderCommandBar shows the keys that matter in the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var hints [][2]string
	switch m.currentView {
	case ViewLogin:
		hints = [][2]string{{"enter", "sign in"}, {"esc", "cancel"}, {"ctrl+c", "quit"}}
	case ViewFeed:
		hints = [][2]string{{"j/k", "move"}, {"enter", "open"}, {"l", "like"}, {"r", "retry"}, {"p", "profile"}, {"o", "logs"}, {"?", "help"}, {"q", "quit"}}
	case ViewDetail:
		hints = [][2]string{{"l", "like"}, {"j/k", "scroll"}, {"esc", "back"}, {"?", "help"}}
	case ViewProfile:
		hints = [][2]string{{"r", "reload"}, {"L", "sign out"}, {"esc", "back"}, {"?", "help"}}
	case ViewLogs:
		hints = [][2]string{{"F", "auto-tail"}, {"j/k", "scroll"}, {"g/G", "top/bottom"}, {"esc", "back"}}
	}

	items := make([]string, 0, len(hints))
	for _, h := range hints {
		items = append(items, bg.Render(h[0], styles.WarningText)+bg.Spaces(1)+bg.Render(h[1], styles.MutedText))
	}
	return bg.FillLine(bg.Join(items, strings.Repeat(" ", 2)), m.width)
}
