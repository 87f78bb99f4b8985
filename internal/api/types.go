// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"github.com/skverma/saaschat-tui/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateSessionRequest asks the backend for a fresh session key.
type CreateSessionRequest struct {
	Email string `json:"email"`
}

// AskRequest is the body of a streaming ask. A session-creating ask carries
// ChatTitle and no SessionKey; a resume ask carries SessionKey and a short
// trailing window of prior messages as History. Guest asks omit Email.
type AskRequest struct {
	Email      string          `json:"email,omitempty"`
	SessionKey string          `json:"sessionKey,omitempty"`
	Question   string          `json:"question"`
	ChatTitle  string          `json:"chatTitle,omitempty"`
	History    []model.Message `json:"history,omitempty"`
}

// SessionKeyRequest addresses one saved session.
type SessionKeyRequest struct {
	Email      string `json:"email"`
	SessionKey string `json:"sessionKey"`
}

// UpdateTitleRequest renames a saved session.
type UpdateTitleRequest struct {
	Email      string `json:"email"`
	SessionKey string `json:"sessionKey"`
	NewTitle   string `json:"newTitle"`
}

// PauseStreamRequest persists the partially streamed bot message when the
// user pauses an in-flight response.
type PauseStreamRequest struct {
	Email       string `json:"email"`
	SessionKey  string `json:"sessionKey"`
	LastMessage string `json:"lastMessage"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CreateSessionResponse carries the key assigned by the backend.
type CreateSessionResponse struct {
	SessionKey string `json:"sessionKey"`
}

// SavedChat is one sidebar entry as the backend reports it.
type SavedChat struct {
	SessionKey string `json:"sessionKey"`
	ChatTitle  string `json:"chatTitle"`
}

// SavedChatsResponse is the saved-session list payload.
type SavedChatsResponse struct {
	SavedChatSessions []SavedChat `json:"savedChatSessions"`
}

// ChatBySessionResponse is a saved session's full transcript.
type ChatBySessionResponse struct {
	Messages []model.Message `json:"messages"`
}

// backendError is the JSON error body some endpoints return on failure.
type backendError struct {
	Error string `json:"error"`
}
