// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/config"
	"github.com/skverma/saaschat-tui/internal/model"
	"github.com/skverma/saaschat-tui/internal/pubsub"
	"github.com/skverma/saaschat-tui/internal/session"
	"github.com/skverma/saaschat-tui/internal/ui/styles"
)

// focusArea identifies which pane receives key input.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// sidebarWidth is the rendered width of the saved-session pane.
const sidebarWidth = 32

// suggestedPrompts seed the welcome screen before the first exchange.
var suggestedPrompts = []string{
	"Summarize my last meeting notes",
	"Draft an email to the team",
	"Explain this error message",
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root Bubble Tea model for the chat interface.
type Model struct {
	ctx    context.Context
	client *session.Client
	cfg    config.Config
	theme  *styles.Theme
	keys   KeyMap

	viewport    viewport.Model
	input       textarea.Model
	renameInput textinput.Model
	spin        spinner.Model

	messages []model.Message
	entries  []session.Summary

	transcriptCh <-chan pubsub.Event[[]model.Message]
	directoryCh  <-chan pubsub.Event[[]session.Summary]

	focus          focusArea
	sidebarVisible bool
	cursor         int

	renaming  bool
	renameKey string

	// confirmDeleteKey holds the session key awaiting y/n confirmation.
	confirmDeleteKey string

	streaming bool
	quitting  bool
	errText   string
	infoText  string

	width  int
	height int
	ready  bool
}

// New creates the chat model bound to a session client.
func New(ctx context.Context, client *session.Client, cfg config.Config) *Model {
	input := textarea.New()
	input.Placeholder = "Ask anything..."
	input.CharLimit = 4000
	input.SetHeight(2)
	input.ShowLineNumbers = false
	input.Focus()

	renameInput := textinput.New()
	renameInput.CharLimit = 120

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &Model{
		ctx:            ctx,
		client:         client,
		cfg:            cfg,
		theme:          styles.NewTheme(80, 24),
		keys:           DefaultKeyMap(),
		input:          input,
		renameInput:    renameInput,
		spin:           spin,
		sidebarVisible: cfg.UI.ShowSidebar && !client.Guest(),
	}
	m.transcriptCh = client.Transcript().Subscribe(ctx)
	if !client.Guest() {
		m.directoryCh = client.Directory().Subscribe(ctx)
	}
	return m
}

// Init starts the broker listeners and the initial directory load.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitTranscript(m.transcriptCh),
		textarea.Blink,
		m.spin.Tick,
	}
	if !m.client.Guest() {
		cmds = append(cmds,
			waitDirectory(m.directoryCh),
			refreshCmd(m.ctx, m.client),
		)
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TranscriptMsg:
		m.messages = msg.Messages
		m.refreshViewport()
		return m, waitTranscript(m.transcriptCh)

	case TranscriptClosedMsg:
		if m.quitting {
			return m, nil
		}
		// The active session changed; follow the new transcript.
		m.transcriptCh = m.client.Transcript().Subscribe(m.ctx)
		m.messages = m.client.Transcript().Messages()
		m.refreshViewport()
		return m, waitTranscript(m.transcriptCh)

	case DirectoryMsg:
		m.entries = msg.Entries
		if m.cursor >= len(m.entries) {
			m.cursor = max(0, len(m.entries)-1)
		}
		return m, waitDirectory(m.directoryCh)

	case DirectoryClosedMsg:
		return m, nil

	case AskFinishedMsg:
		m.streaming = false
		if msg.Err != nil && !api.IsAbort(msg.Err) {
			return m.showError(msg.Err)
		}
		return m, nil

	case SessionSwitchedMsg:
		m.streaming = false
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		m.focus = focusInput
		m.input.Focus()
		return m, nil

	case PauseDoneMsg:
		m.streaming = false
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		return m, nil

	case RenameDoneMsg:
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		return m, nil

	case DeleteDoneMsg:
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		return m.showInfo("Chat deleted")

	case RefreshDoneMsg:
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		return m.showInfo("Exported to " + msg.Path)

	case ClearNoticeMsg:
		m.errText = ""
		m.infoText = ""
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.Resize(msg.Width, msg.Height)

	contentWidth := m.width
	if m.sidebarVisible {
		contentWidth -= sidebarWidth
	}
	// Header, input box, and status bar take up the vertical remainder.
	viewportHeight := max(1, m.height-7)

	if !m.ready {
		m.viewport = viewport.New(contentWidth, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = viewportHeight
	}
	m.input.SetWidth(max(10, contentWidth-4))
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Rename editing swallows all keys until confirmed or cancelled.
	if m.renaming {
		return m.handleRenameKey(msg)
	}
	if m.confirmDeleteKey != "" {
		return m.handleConfirmDeleteKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.client.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleSidebar):
		if m.client.Guest() {
			return m, nil
		}
		m.sidebarVisible = !m.sidebarVisible
		if !m.sidebarVisible {
			m.focus = focusInput
			m.input.Focus()
		}
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keys.FocusSwitch):
		if !m.sidebarVisible {
			return m, nil
		}
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, tea.Batch(newSessionCmd(m.ctx, m.client), m.spin.Tick)

	case key.Matches(msg, m.keys.Export):
		if m.client.Guest() || m.client.SessionKey() == "" {
			return m.showInfo("Nothing to export yet")
		}
		dir, err := config.ConfigDir()
		if err != nil {
			return m.showError(err)
		}
		return m, exportCmd(m.ctx, m.client, m.client.SessionKey(), dir)
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Pause):
		if !m.client.StreamActive() {
			return m, nil
		}
		return m, pauseCmd(m.ctx, m.client)

	case key.Matches(msg, m.keys.Submit):
		question := strings.TrimSpace(m.input.Value())
		if question == "" || m.streaming {
			return m, nil
		}
		m.input.Reset()
		m.streaming = true
		return m, tea.Batch(askCmd(m.ctx, m.client, question), m.spin.Tick)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		entry, ok := m.selectedEntry()
		if !ok || entry.State == session.StatePendingDelete {
			return m, nil
		}
		return m, tea.Batch(resumeCmd(m.ctx, m.client, entry.Key), m.spin.Tick)

	case key.Matches(msg, m.keys.Rename):
		entry, ok := m.selectedEntry()
		if !ok || entry.State != session.StateSaved {
			return m, nil
		}
		m.renaming = true
		m.renameKey = entry.Key
		m.client.Directory().BeginEdit(entry.Key)
		m.renameInput.SetValue(entry.Title)
		m.renameInput.CursorEnd()
		m.renameInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Delete):
		entry, ok := m.selectedEntry()
		if !ok || entry.State != session.StateSaved {
			return m, nil
		}
		m.confirmDeleteKey = entry.Key
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, refreshCmd(m.ctx, m.client)
	}

	return m, nil
}

func (m *Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		title := strings.TrimSpace(m.renameInput.Value())
		key := m.renameKey
		m.renaming = false
		m.renameKey = ""
		m.renameInput.Blur()
		if title == "" {
			m.client.Directory().CancelEdit(key)
			return m.showError(api.ErrEmptyTitle)
		}
		return m, renameCmd(m.ctx, m.client, key, title)

	case tea.KeyEsc:
		m.client.Directory().CancelEdit(m.renameKey)
		m.renaming = false
		m.renameKey = ""
		m.renameInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := m.confirmDeleteKey
	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		m.confirmDeleteKey = ""
		return m, deleteCmd(m.ctx, m.client, key)
	case "n", "esc":
		m.confirmDeleteKey = ""
		return m, nil
	}
	return m, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	if m.focus == focusInput && !m.renaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) selectedEntry() (session.Summary, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return session.Summary{}, false
	}
	return m.entries[m.cursor], true
}

func (m *Model) showError(err error) (tea.Model, tea.Cmd) {
	m.errText = errorText(err)
	m.infoText = ""
	return m, clearNoticeCmd()
}

func (m *Model) showInfo(text string) (tea.Model, tea.Cmd) {
	m.infoText = text
	m.errText = ""
	return m, clearNoticeCmd()
}

// errorText renders an error for the banner, preferring the client error
// message over the raw chain.
func errorText(err error) string {
	var ce *api.ClientError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return err.Error()
}
