package ui

import (
	"strings"
)

func (m Model) renderProfile() string {
	styles := m.theme.Styles()

	if m.profile == nil {
		switch {
		case m.profileLoading:
			return "\n  " + m.spinner.View() + styles.MutedText.Render(" Loading profile…")
		case m.profileErr != nil:
			return "\n  " + styles.DangerText.Render("Couldn't load profile: "+describeError(m.profileErr)) +
				"\n  " + styles.MutedText.Render("Press r to retry.")
		default:
			return "\n  " + styles.MutedText.Render("No profile loaded. Press r to load it.")
		}
	}

	p := m.profile
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(p.Name))
	b.WriteString("\n")
	b.WriteString(styles.AccentText.Render(p.LoginName))
	b.WriteString("\n\n")
	if p.Bio != "" {
		b.WriteString(styles.Text.Width(maxInt(20, m.width-8)).Render(p.Bio))
		b.WriteString("\n\n")
	}
	b.WriteString(styles.FaintText.Render("Avatar  "))
	b.WriteString(styles.MutedText.Render(orDash(p.AvatarURL)))
	if m.profileLoading {
		b.WriteString("\n\n" + m.spinner.View() + styles.MutedText.Render(" Refreshing…"))
	}
	if m.profileErr != nil {
		b.WriteString("\n\n" + styles.DangerText.Render("Refresh failed: "+describeError(m.profileErr)))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("Press L to sign out."))

	return styles.Panel.Width(minInt(m.width-2, 72)).Render(b.String())
}
