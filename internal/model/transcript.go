// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"sync"

	"github.com/skverma/saaschat-tui/internal/pubsub"
)

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript holds the ordered message list for one session. All mutations go
// through its methods so that every change is published to subscribers.
//
// A Transcript is safe for concurrent use; streaming happens in a goroutine
// while the UI reads from the Bubble Tea loop.
type Transcript struct {
	mu       sync.Mutex
	messages []Message
	broker   *pubsub.Broker[[]Message]
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		messages: make([]Message, 0),
		broker:   pubsub.NewBroker[[]Message](),
	}
}

// NewTranscriptWith creates a transcript pre-populated with messages, used
// when resuming a saved session from the backend copy.
func NewTranscriptWith(msgs []Message) *Transcript {
	t := NewTranscript()
	t.messages = append(t.messages, msgs...)
	return t
}

// Subscribe returns a channel of transcript snapshots, one per mutation.
// The channel closes when ctx is cancelled.
func (t *Transcript) Subscribe(ctx context.Context) <-chan pubsub.Event[[]Message] {
	return t.broker.Subscribe(ctx)
}

// Close shuts down the transcript's broker. Call when the session owning the
// transcript is torn down.
func (t *Transcript) Close() {
	t.broker.Close()
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AppendUser appends a user message (the optimistic update performed before
// the ask request is dispatched).
func (t *Transcript) AppendUser(text string) {
	t.mu.Lock()
	t.messages = append(t.messages, NewUserMessage(text))
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.broker.Publish(pubsub.UpdatedEvent, snapshot)
}

// ApplyChunk merges one streamed chunk into the transcript: if the last entry
// is already a bot message it is concatenated in place, otherwise a new bot
// message is created seeded with the chunk. Concatenation adds no separators.
func (t *Transcript) ApplyChunk(chunk string) {
	if chunk == "" {
		return
	}

	t.mu.Lock()
	n := len(t.messages)
	if n > 0 && t.messages[n-1].IsBot() {
		t.messages[n-1].Text += chunk
	} else {
		t.messages = append(t.messages, NewBotMessage(chunk))
	}
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.broker.Publish(pubsub.UpdatedEvent, snapshot)
}

// RollbackLastUser removes the trailing user message, undoing the optimistic
// append after a failed submission. It is a no-op when the last entry is not
// a user message, so a rollback arriving after streaming began cannot destroy
// bot output.
func (t *Transcript) RollbackLastUser() bool {
	t.mu.Lock()
	n := len(t.messages)
	if n == 0 || t.messages[n-1].Sender != SenderUser {
		t.mu.Unlock()
		return false
	}
	t.messages = t.messages[:n-1]
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.broker.Publish(pubsub.DeletedEvent, snapshot)
	return true
}

// Replace swaps the entire message list, used when loading a saved session's
// server-side transcript.
func (t *Transcript) Replace(msgs []Message) {
	t.mu.Lock()
	t.messages = append(t.messages[:0:0], msgs...)
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.broker.Publish(pubsub.UpdatedEvent, snapshot)
}

// Reset removes all messages.
func (t *Transcript) Reset() {
	t.Replace(nil)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns a copy of the message list.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Tail returns a copy of at most the last n messages, the short conversational
// context window sent with resume asks.
func (t *Transcript) Tail(n int) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || len(t.messages) == 0 {
		return nil
	}
	start := len(t.messages) - n
	if start < 0 {
		start = 0
	}
	return append([]Message(nil), t.messages[start:]...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// IsEmpty returns true if there are no messages.
func (t *Transcript) IsEmpty() bool {
	return t.Len() == 0
}

// LastBotText returns the text of the trailing bot message, or "" when the
// last entry is not a bot message. Used by pause to persist partial output.
func (t *Transcript) LastBotText() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.messages)
	if n == 0 || !t.messages[n-1].IsBot() {
		return ""
	}
	return t.messages[n-1].Text
}

// snapshotLocked copies the message slice; caller must hold the lock.
func (t *Transcript) snapshotLocked() []Message {
	return append([]Message(nil), t.messages...)
}
