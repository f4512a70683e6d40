package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/session"
)

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pasting {
		switch msg.String() {
		case "enter":
			value := session.CookieValue(m.opt.CookieName, m.cookieIn.Value())
			if value == "" {
				m.loginErr = "Paste the " + m.opt.CookieName + " cookie value first."
				return m, nil
			}
			m.cookieIn.SetValue("")
			m.cookieIn.Blur()
			m.pasting = false
			return m, m.adopt(value)
		case "esc":
			m.pasting = false
			m.cookieIn.SetValue("")
			m.cookieIn.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.cookieIn, cmd = m.cookieIn.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.provCursor > 0 {
			m.provCursor--
		}
	case "down", "j":
		if m.provCursor < len(m.opt.Providers)-1 {
			m.provCursor++
		}
	case "enter":
		if len(m.opt.Providers) == 0 {
			return m, nil
		}
		return m, m.login(m.opt.Providers[m.provCursor])
	case "p":
		// Already have a cookie from an earlier browser login.
		m.pasting = true
		m.authURL = ""
		m.loginNote = ""
		cmd := m.cookieIn.Focus()
		return m, cmd
	}
	return m, nil
}

// login redirects to the provider; the navigator answers with externalMsg.
func (m Model) login(provider string) tea.Cmd {
	return func() tea.Msg {
		if err := m.opt.Session.Login(provider); err != nil {
			m.log.Warn("login", zap.String("provider", provider), zap.Error(err))
		}
		return nil
	}
}

func (m Model) adopt(value string) tea.Cmd {
	return func() tea.Msg {
		if m.opt.AdoptSession == nil {
			return adoptedMsg{}
		}
		return adoptedMsg{err: m.opt.AdoptSession(value)}
	}
}

func providerLabel(p string) string {
	switch strings.ToLower(p) {
	case "google":
		return "Google"
	case "facebook":
		return "Facebook"
	case "microsoft":
		return "Microsoft"
	case "github":
		return "GitHub"
	}
	if p == "" {
		return p
	}
	return strings.ToUpper(p[:1]) + p[1:]
}
