package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Like) {
		return m, m.toggleSelectedLike()
	}
	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

// updateDetailViewport refreshes the detail content for the selected photo.
func (m *Model) updateDetailViewport() {
	if !m.ready {
		return
	}
	m.detailViewport.Width = m.width
	m.detailViewport.Height = m.contentHeight()
	m.detailViewport.SetContent(m.detailContent())
}

func (m Model) renderDetail() string {
	return m.detailViewport.View()
}

func (m Model) detailContent() string {
	styles := m.theme.Styles()
	p, ok := m.selectedPhoto()
	if !ok {
		return styles.MutedText.Render("No photo selected.")
	}

	label := func(s string) string {
		return styles.FaintText.Render(padRight(s, 12))
	}
	likeState := styles.MutedText.Render("not liked")
	if p.Liked {
		likeState = styles.LikeMark.Render("♥ liked")
	}
	if m.likePending[p.ID] {
		likeState += styles.MutedText.Render(" (saving…)")
	}

	size := "-"
	if p.Width > 0 && p.Height > 0 {
		size = fmt.Sprintf("%d × %d", p.Width, p.Height)
		if r := p.AspectRatio(); r > 0 {
			size += fmt.Sprintf("  (%.2f:1)", r)
		}
	}

	author := p.Author
	if author == "" {
		author = "-"
	}

	lines := []string{
		styles.AccentText.Bold(true).Render(p.ID),
		"",
		label("Author") + styles.Text.Render(author),
		label("Size") + styles.Text.Render(size),
		label("Created") + styles.Text.Render(formatDate(p.CreatedAt)),
		label("Likes") + styles.Text.Render(formatCount(p.Likes)) + "  " + likeState,
		label("Full") + styles.Text.Render(orDash(p.FullURL)),
		label("Thumbnail") + styles.MutedText.Render(orDash(p.ThumbURL)),
		"",
	}
	if p.Description != "" {
		lines = append(lines, styles.FaintText.Render("Description"))
		wrap := styles.Text.Width(maxInt(20, m.width-4))
		lines = append(lines, wrap.Render(p.Description))
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
