// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "SAAS Chatbot"
	default:
		return string(s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single entry in a transcript. The JSON field names are
// part of the backend compatibility surface and must not change.
type Message struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`

	// FirstGuess carries the model's initial short answer when the backend
	// provides one; optional.
	FirstGuess string `json:"firstGuess,omitempty"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) Message {
	return Message{Text: text, Sender: SenderUser}
}

// NewBotMessage creates a new bot message seeded with the first chunk.
func NewBotMessage(text string) Message {
	return Message{Text: text, Sender: SenderBot}
}

// IsBot reports whether the message was produced by the bot.
func (m Message) IsBot() bool {
	return m.Sender == SenderBot
}

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Text)
	if len(runes) <= maxLen {
		return m.Text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
