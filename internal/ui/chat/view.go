// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/skverma/saaschat-tui/internal/session"
	"github.com/skverma/saaschat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	content := m.viewport.View()
	if m.sidebarVisible {
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), content)
	}
	b.WriteString(content)
	b.WriteString("\n")

	if banner := m.renderBanner(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputBox.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := "New Chat"
	if key := m.client.SessionKey(); key != "" {
		if entry, ok := m.client.Directory().Find(key); ok {
			title = entry.Title
		}
	}

	left := m.theme.Brand.Render("saaschat") + "  " +
		util.TruncateTitle(title, m.cfg.UI.TitleWidth)
	if m.client.Guest() {
		left += "  " + m.theme.GuestBadge.Render("[guest]")
	}
	if m.streaming {
		left += "  " + m.theme.Streaming.Render(m.spin.View()+"streaming")
	}
	return m.theme.Header.Width(m.width).Render(left)
}

func (m *Model) renderBanner() string {
	switch {
	case m.errText != "":
		return m.theme.ErrorBox.Render(m.errText)
	case m.infoText != "":
		return m.theme.InfoBox.Render(m.infoText)
	case m.confirmDeleteKey != "":
		return m.theme.ErrorBox.Render("Delete this chat? (y/n)")
	case m.renaming:
		return m.theme.InputBox.Render("Rename: " + m.renameInput.View())
	}
	return ""
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("Saved Chats"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(m.theme.Placeholder.Render("No saved chats"))
	}

	for i, entry := range m.entries {
		marker := "  "
		if i == m.cursor && m.focus == focusSidebar {
			marker = "> "
		}
		b.WriteString(marker + m.renderEntry(entry, i == m.cursor))
		b.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(sidebarWidth - 2).
		Height(m.viewport.Height).
		Render(b.String())
}

func (m *Model) renderEntry(entry session.Summary, selected bool) string {
	title := util.TruncateTitle(entry.Title, sidebarWidth-6)
	switch entry.State {
	case session.StateEditing:
		return m.theme.SidebarEditing.Render(title + " *")
	case session.StatePendingDelete:
		return m.theme.SidebarDeleting.Render(title)
	}
	if selected && m.focus == focusSidebar {
		return m.theme.SidebarSelected.Render(title)
	}
	return m.theme.SidebarItem.Render(title)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport re-renders the transcript into the viewport and pins the
// view to the newest message.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	if len(m.messages) == 0 {
		return m.renderWelcome()
	}

	width := max(10, m.viewport.Width-2)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		if msg.IsBot() {
			b.WriteString(m.theme.BotLabel.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(wrap.Inherit(m.theme.BotText).Render(msg.Text))
		} else {
			b.WriteString(m.theme.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(wrap.Inherit(m.theme.UserText).Render(msg.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderWelcome() string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(m.theme.Brand.Render("saaschat"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Welcome.Render("Start a conversation, or try one of these:"))
	b.WriteString("\n\n")
	for _, prompt := range suggestedPrompts {
		b.WriteString(m.theme.Prompt.Render(prompt))
		b.WriteString("\n")
	}
	return lipgloss.PlaceHorizontal(max(10, m.viewport.Width), lipgloss.Center, b.String())
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m *Model) renderStatusBar() string {
	hints := []struct {
		key  string
		desc string
	}{
		{"Enter", "send"},
		{"Esc", "pause"},
		{"C-n", "new"},
		{"Tab", "focus"},
		{"C-b", "sidebar"},
		{"C-e", "export"},
		{"C-q", "quit"},
	}
	if m.focus == focusSidebar {
		hints = []struct {
			key  string
			desc string
		}{
			{"Enter", "open"},
			{"r", "rename"},
			{"d", "delete"},
			{"C-r", "refresh"},
			{"Tab", "focus"},
			{"C-q", "quit"},
		}
	}

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, m.theme.StatusKey.Render(h.key)+" "+m.theme.StatusDesc.Render(h.desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}
