package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shutter/internal/photoapi"
)

func (m Model) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snapshot.Photos)
	page := maxInt(1, m.listHeight()-1)

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveSelection(-page)
	case key.Matches(msg, m.keys.PageDown):
		m.moveSelection(page)
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
		m.ensureVisible()
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = maxInt(0, n-1)
		m.ensureVisible()
	case key.Matches(msg, m.keys.Open):
		if _, ok := m.selectedPhoto(); ok {
			m.currentView = ViewDetail
			m.detailViewport.GotoTop()
			m.updateDetailViewport()
		}
		return m, nil
	case key.Matches(msg, m.keys.Like):
		return m, m.toggleSelectedLike()
	case key.Matches(msg, m.keys.Retry):
		return m, m.fetchMore()
	default:
		return m, nil
	}
	return m, m.maybeFetchMore()
}

func (m *Model) moveSelection(delta int) {
	n := len(m.snapshot.Photos)
	if n == 0 {
		return
	}
	m.selectedRow = maxInt(0, minInt(n-1, m.selectedRow+delta))
	m.ensureVisible()
}

// maybeFetchMore loads the next page once the last row is selected. After a
// failure the user has to ask with retry.
func (m *Model) maybeFetchMore() tea.Cmd {
	n := len(m.snapshot.Photos)
	if n == 0 || m.selectedRow < n-1 || m.snapshot.LastError != nil {
		return nil
	}
	return m.fetchMore()
}

func (m *Model) fetchMore() tea.Cmd {
	if m.feed == nil || m.loadingPage || m.bootstrapping {
		return nil
	}
	m.loadingPage = true
	return fetchPageCmd(m.ctx, m.feed)
}

func (m *Model) toggleSelectedLike() tea.Cmd {
	p, ok := m.selectedPhoto()
	if !ok || m.likes == nil || m.feed == nil {
		return nil
	}
	m.likePending[p.ID] = true
	return toggleLikeCmd(m.ctx, m.likes, m.feed, p.ID)
}

func (m Model) selectedPhoto() (photoapi.Photo, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Photos) {
		return photoapi.Photo{}, false
	}
	return m.snapshot.Photos[m.selectedRow], true
}

// listHeight is the number of rows available for photos, excluding the
// column header.
func (m Model) listHeight() int {
	return maxInt(1, m.contentHeight()-1)
}

// ensureVisible scrolls so the selected row is on screen.
func (m *Model) ensureVisible() {
	h := m.listHeight()
	if m.selectedRow < m.offset {
		m.offset = m.selectedRow
	}
	if m.selectedRow >= m.offset+h {
		m.offset = m.selectedRow - h + 1
	}
	m.offset = maxInt(0, m.offset)
}

type feedColumns struct {
	author bool
	likes  bool
	date   bool
	title  int
}

func (m Model) columns() feedColumns {
	c := feedColumns{
		author: m.width >= LayoutCompactWidth,
		likes:  m.width >= LayoutCompactWidth,
		date:   m.width >= LayoutWideWidth,
	}
	// marker, id and padding
	used := 2 + 12
	if c.author {
		used += 18
	}
	if c.likes {
		used += 8
	}
	if c.date {
		used += 12
	}
	c.title = maxInt(10, m.width-used-2)
	return c
}

// renderFeed renders the photo list.
func (m Model) renderFeed() string {
	styles := m.theme.Styles()
	photos := m.snapshot.Photos

	if len(photos) == 0 {
		switch {
		case m.bootstrapping || m.loadingPage:
			return "\n  " + m.spinner.View() + styles.MutedText.Render(" Loading photos…")
		case m.snapshot.LastError != nil:
			return "\n  " + styles.MutedText.Render("No photos loaded. Press r to retry.")
		default:
			return "\n  " + styles.MutedText.Render("No photos yet.")
		}
	}

	cols := m.columns()
	lines := []string{styles.FaintText.Render(m.formatRow(cols, " ", "ID", "DESCRIPTION", "AUTHOR", "LIKES", "DATE"))}

	end := minInt(len(photos), m.offset+m.listHeight())
	for i := m.offset; i < end; i++ {
		p := photos[i]
		marker := " "
		if p.Liked {
			marker = "♥"
		}
		if m.likePending[p.ID] {
			marker = "·"
		}
		desc := p.Description
		if desc == "" {
			desc = "untitled"
		}
		row := m.formatRow(cols, marker, p.ID, desc, p.Author, formatCount(p.Likes), formatDate(p.CreatedAt))

		switch {
		case i == m.selectedRow:
			lines = append(lines, styles.Selected.Width(m.width).Render(row))
		case p.Liked:
			lines = append(lines, styles.LikeMark.Render(row[:len(marker)])+styles.Text.Render(row[len(marker):]))
		default:
			lines = append(lines, styles.Text.Render(row))
		}
	}

	if m.loadingPage && end == len(photos) {
		lines = append(lines, "  "+m.spinner.View()+styles.MutedText.Render(" Loading more…"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) formatRow(c feedColumns, marker, id, desc, author, likes, date string) string {
	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(" ")
	b.WriteString(padRight(truncate(id, 11), 12))
	b.WriteString(padRight(truncate(firstLine(desc), c.title), c.title+1))
	if c.author {
		b.WriteString(padRight(truncate(author, 17), 18))
	}
	if c.likes {
		b.WriteString(fmt.Sprintf("%7s ", likes))
	}
	if c.date {
		b.WriteString(" ")
		b.WriteString(date)
	}
	return b.String()
}
