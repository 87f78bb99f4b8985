// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/skverma/saaschat-tui/internal/model"
	"github.com/skverma/saaschat-tui/internal/session"
)

// =============================================================================
// BROKER EVENT MESSAGES
// =============================================================================

// TranscriptMsg delivers the latest transcript snapshot from the broker.
type TranscriptMsg struct {
	Messages []model.Message
}

// TranscriptClosedMsg signals that the subscribed transcript was retired,
// usually because the active session changed. The model re-subscribes to
// whatever transcript is current.
type TranscriptClosedMsg struct{}

// DirectoryMsg delivers the latest saved-session list from the broker.
type DirectoryMsg struct {
	Entries []session.Summary
}

// DirectoryClosedMsg signals that the directory broker shut down.
type DirectoryClosedMsg struct{}

// =============================================================================
// OPERATION RESULT MESSAGES
// =============================================================================

// AskFinishedMsg signals that a submission completed, successfully or not.
// An aborted stream arrives here with a nil error.
type AskFinishedMsg struct {
	Err error
}

// SessionSwitchedMsg signals that a new-session or resume operation finished.
type SessionSwitchedMsg struct {
	Err error
}

// PauseDoneMsg signals that a pause request completed.
type PauseDoneMsg struct {
	Err error
}

// RenameDoneMsg signals that a rename round-trip completed.
type RenameDoneMsg struct {
	Err error
}

// DeleteDoneMsg signals that a delete (including its grace period) resolved.
type DeleteDoneMsg struct {
	Key string
	Err error
}

// RefreshDoneMsg signals that a directory refresh completed.
type RefreshDoneMsg struct {
	Err error
}

// ExportDoneMsg signals that a PDF export finished.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// ClearNoticeMsg expires the transient error or info banner.
type ClearNoticeMsg struct{}
