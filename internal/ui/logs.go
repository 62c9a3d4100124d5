package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shutter/internal/logtail"
)

// logState holds the log view's state.
type logState struct {
	path        string
	lines       []string
	follow      bool
	lastRefresh time.Time
	err         error
}

type logTickMsg time.Time

type logLinesMsg struct {
	lines []string
	err   error
}

func logTickCmd() tea.Cmd {
	return tea.Tick(LogRefreshInterval, func(t time.Time) tea.Msg {
		return logTickMsg(t)
	})
}

func readLogCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogBufferLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

// openLogs switches to the log view and starts the refresh loop.
func (m *Model) openLogs() tea.Cmd {
	if m.currentView == ViewLogs {
		return nil
	}
	m.currentView = ViewLogs
	m.logState.follow = true
	m.updateLogViewport()
	if m.logState.path == "" {
		return nil
	}
	return tea.Batch(readLogCmd(m.logState.path), logTickCmd())
}

func (m Model) handleLogTick() (tea.Model, tea.Cmd) {
	// The loop ends when the user leaves the view.
	if m.currentView != ViewLogs {
		return m, nil
	}
	cmds := []tea.Cmd{logTickCmd()}
	if m.logState.follow {
		cmds = append(cmds, readLogCmd(m.logState.path))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleLogLines(msg logLinesMsg) (tea.Model, tea.Cmd) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.lines = logtail.ColorizeLines(msg.lines)
		m.logState.lastRefresh = time.Now()
	}
	m.updateLogViewport()
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, readLogCmd(m.logState.path)
		}
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logState.follow = true
		m.logViewport.GotoBottom()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logState.follow = false
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.PageUp):
		// Scrolling back pauses auto-tail.
		m.logState.follow = false
	}
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

// updateLogViewport pushes the buffered lines into the viewport.
func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(m.width, m.contentHeight()-1)
	}
	m.logViewport.Width = m.width
	m.logViewport.Height = maxInt(1, m.contentHeight()-1)

	styles := m.theme.Styles()
	switch {
	case m.logState.path == "":
		m.logViewport.SetContent(styles.MutedText.Render("Logging to a file is disabled (log_file is empty)."))
	case m.logState.err != nil:
		m.logViewport.SetContent(styles.DangerText.Render(fmt.Sprintf("Error reading log: %v", m.logState.err)))
	case len(m.logState.lines) == 0:
		m.logViewport.SetContent(styles.MutedText.Render("No log entries yet."))
	default:
		m.logViewport.SetContent(strings.Join(m.logState.lines, "\n"))
	}
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	autoTail := "off"
	if m.logState.follow {
		autoTail = "on"
	}
	status := fmt.Sprintf("%s  %d lines  auto-tail %s", m.logState.path, len(m.logState.lines), autoTail)
	if !m.logState.lastRefresh.IsZero() {
		status += "  read " + m.logState.lastRefresh.Format("15:04:05")
	}
	return m.logViewport.View() + "\n" + styles.FaintText.Render(truncate(status, m.width))
}
