package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shutter/internal/authcode"
)

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.exchanging {
			return m, nil
		}
		code, ok := authcode.ParseInput(m.codeInput.Value())
		if !ok {
			m.loginErr = "That is not an authorization code or callback URL."
			return m, nil
		}
		return m, m.startExchange(code)

	case "esc":
		if m.exchanging && m.exchanger != nil {
			m.exchanger.Cancel()
			return m, nil
		}
		m.codeInput.Reset()
		m.loginErr = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.codeInput, cmd = m.codeInput.Update(msg)
	return m, cmd
}

func (m Model) renderLogin() string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render("Sign in to continue"))
	b.WriteString("\n\n")
	if m.authorizeURL != "" {
		b.WriteString(styles.MutedText.Render("Open this address in a browser and approve access:"))
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Render(m.authorizeURL))
		b.WriteString("\n\n")
	}
	if m.callback != nil {
		b.WriteString(styles.MutedText.Render("shutter picks up the code automatically when the browser returns."))
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("If it can't, paste the code or the address the browser ended on:"))
	} else {
		b.WriteString(styles.MutedText.Render("Then paste the code or the address the browser ended on:"))
	}
	b.WriteString("\n\n")
	b.WriteString(m.codeInput.View())
	b.WriteString("\n\n")

	switch {
	case m.exchanging:
		b.WriteString(m.spinner.View() + styles.MutedText.Render(" Signing in… (esc to cancel)"))
	case m.loginErr != "":
		b.WriteString(styles.DangerText.Render(m.loginErr))
	case m.callback != nil:
		b.WriteString(m.spinner.View() + styles.FaintText.Render(" Waiting for the browser"))
	}

	return styles.Panel.Width(maxInt(20, m.width-2)).Render(b.String())
}
