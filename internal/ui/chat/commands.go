// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/skverma/saaschat-tui/internal/export"
	"github.com/skverma/saaschat-tui/internal/model"
	"github.com/skverma/saaschat-tui/internal/pubsub"
	"github.com/skverma/saaschat-tui/internal/session"
)

// noticeTimeout is how long transient banners stay on screen.
const noticeTimeout = 4 * time.Second

// =============================================================================
// BROKER LISTENERS
// =============================================================================

// waitTranscript blocks on the transcript event channel and converts the
// next event into a Bubble Tea message. A closed channel means the
// transcript was swapped out and the model must re-subscribe.
func waitTranscript(ch <-chan pubsub.Event[[]model.Message]) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return TranscriptClosedMsg{}
		}
		return TranscriptMsg{Messages: ev.Payload}
	}
}

// waitDirectory blocks on the directory event channel.
func waitDirectory(ch <-chan pubsub.Event[[]session.Summary]) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return DirectoryClosedMsg{}
		}
		return DirectoryMsg{Entries: ev.Payload}
	}
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// askCmd submits a question. The command blocks until the stream completes
// or aborts; the rendered chunks arrive independently via the transcript
// broker.
func askCmd(ctx context.Context, client *session.Client, question string) tea.Cmd {
	return func() tea.Msg {
		return AskFinishedMsg{Err: client.Ask(ctx, question)}
	}
}

func pauseCmd(ctx context.Context, client *session.Client) tea.Cmd {
	return func() tea.Msg {
		return PauseDoneMsg{Err: client.Pause(ctx)}
	}
}

func newSessionCmd(ctx context.Context, client *session.Client) tea.Cmd {
	return func() tea.Msg {
		return SessionSwitchedMsg{Err: client.StartNewSession(ctx)}
	}
}

func resumeCmd(ctx context.Context, client *session.Client, key string) tea.Cmd {
	return func() tea.Msg {
		return SessionSwitchedMsg{Err: client.ResumeSession(ctx, key)}
	}
}

func renameCmd(ctx context.Context, client *session.Client, key, title string) tea.Cmd {
	return func() tea.Msg {
		return RenameDoneMsg{Err: client.Rename(ctx, key, title)}
	}
}

func deleteCmd(ctx context.Context, client *session.Client, key string) tea.Cmd {
	return func() tea.Msg {
		return DeleteDoneMsg{Key: key, Err: client.Delete(ctx, key)}
	}
}

func refreshCmd(ctx context.Context, client *session.Client) tea.Cmd {
	return func() tea.Msg {
		return RefreshDoneMsg{Err: client.RefreshDirectory(ctx)}
	}
}

func exportCmd(ctx context.Context, client *session.Client, key, dir string) tea.Cmd {
	return func() tea.Msg {
		blob, err := client.ExportPDF(ctx, key)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		path, err := export.WritePDF(dir, key, blob)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// =============================================================================
// TIMERS
// =============================================================================

func clearNoticeCmd() tea.Cmd {
	return tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}
