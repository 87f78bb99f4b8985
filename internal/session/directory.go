// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/pubsub"
)

// =============================================================================
// ENTRY STATE
// =============================================================================

// EntryState is the sidebar state machine for one saved session:
// Saved -> Editing -> Saved (rename) and Saved -> PendingDelete -> removed,
// or PendingDelete -> Saved on cancel.
type EntryState int

const (
	StateSaved EntryState = iota
	StateEditing
	StatePendingDelete
)

// String returns the state name for logging.
func (s EntryState) String() string {
	switch s {
	case StateSaved:
		return "saved"
	case StateEditing:
		return "editing"
	case StatePendingDelete:
		return "pending_delete"
	default:
		return "unknown"
	}
}

// Summary is one sidebar entry.
type Summary struct {
	Key   string
	Title string
	State EntryState
}

// =============================================================================
// DIRECTORY
// =============================================================================

// defaultDeleteGrace is the pause between confirming a delete and issuing the
// backend call, long enough for the sidebar's removal transition.
const defaultDeleteGrace = 300 * time.Millisecond

// DirectoryConfig holds configuration for the session directory.
type DirectoryConfig struct {
	// DeleteGrace is how long a confirmed delete stays in PendingDelete
	// before the backend call (default: 300ms). Tests set it near zero.
	DeleteGrace time.Duration
}

// DefaultDirectoryConfig returns the default directory configuration.
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{DeleteGrace: defaultDeleteGrace}
}

// Directory is the sidebar model: the {key, title} pairs known to exist for
// the current user, unique by key, most recently created or touched first.
// It publishes a snapshot on every mutation.
type Directory struct {
	mu      sync.Mutex
	client  *api.Client
	email   string
	entries []Summary
	grace   time.Duration
	broker  *pubsub.Broker[[]Summary]
}

// NewDirectory creates a directory for the given user.
func NewDirectory(client *api.Client, email string, cfg DirectoryConfig) *Directory {
	if cfg.DeleteGrace == 0 {
		cfg.DeleteGrace = defaultDeleteGrace
	}
	return &Directory{
		client: client,
		email:  email,
		grace:  cfg.DeleteGrace,
		broker: pubsub.NewBroker[[]Summary](),
	}
}

// Subscribe returns a channel of directory snapshots, one per mutation.
func (d *Directory) Subscribe(ctx context.Context) <-chan pubsub.Event[[]Summary] {
	return d.broker.Subscribe(ctx)
}

// Close shuts down the directory's event broker.
func (d *Directory) Close() {
	d.broker.Close()
}

// Entries returns a copy of the current summary list.
func (d *Directory) Entries() []Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Find returns the entry for key, if present.
func (d *Directory) Find(key string) (Summary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries {
		if e.Key == key {
			return e, true
		}
	}
	return Summary{}, false
}

// =============================================================================
// BACKEND OPERATIONS
// =============================================================================

// Refresh replaces the local list with the backend's. Fail-closed: on fetch
// failure or malformed payload the list resets to empty rather than going
// stale, since a stale list risks operating on sessions that no longer exist.
func (d *Directory) Refresh(ctx context.Context) error {
	chats, err := d.client.GetSavedChats(ctx, d.email)

	d.mu.Lock()
	if err != nil {
		d.entries = nil
		snap := d.snapshotLocked()
		d.mu.Unlock()
		d.broker.Publish(pubsub.UpdatedEvent, snap)
		return err
	}

	entries := make([]Summary, 0, len(chats))
	for _, c := range chats {
		entries = append(entries, Summary{Key: c.SessionKey, Title: c.ChatTitle})
	}
	d.entries = entries
	snap := d.snapshotLocked()
	d.mu.Unlock()

	d.broker.Publish(pubsub.UpdatedEvent, snap)
	return nil
}

// Create requests a fresh session key from the backend. It does not touch
// the summary list; the title is unknown until the first ask.
func (d *Directory) Create(ctx context.Context) (string, error) {
	return d.client.CreateSession(ctx, d.email)
}

// InsertFront adds a new entry at the head of the list (most-recent-first).
// An existing entry with the same key is moved to the front instead, keeping
// keys unique.
func (d *Directory) InsertFront(key, title string) {
	d.mu.Lock()
	filtered := d.entries[:0]
	for _, e := range d.entries {
		if e.Key != key {
			filtered = append(filtered, e)
		}
	}
	d.entries = append([]Summary{{Key: key, Title: title}}, filtered...)
	snap := d.snapshotLocked()
	d.mu.Unlock()

	d.broker.Publish(pubsub.CreatedEvent, snap)
}

// Rename rejects empty titles, mutates the local entry immediately, then
// pushes the rename to the backend. The optimistic title is kept even if the
// backend call fails; the error is surfaced for the caller to report.
func (d *Directory) Rename(ctx context.Context, key, newTitle string) error {
	if strings.TrimSpace(newTitle) == "" {
		return api.ErrEmptyTitle
	}

	d.mu.Lock()
	for i := range d.entries {
		if d.entries[i].Key == key {
			d.entries[i].Title = newTitle
			d.entries[i].State = StateSaved
			break
		}
	}
	snap := d.snapshotLocked()
	d.mu.Unlock()

	d.broker.Publish(pubsub.UpdatedEvent, snap)
	return d.client.UpdateChatTitle(ctx, d.email, key, newTitle)
}

// SetTitle records a title locally and persists it to the backend. Used for
// the fire-and-forget title confirmation after a session's first exchange.
func (d *Directory) SetTitle(ctx context.Context, key, title string) error {
	d.mu.Lock()
	for i := range d.entries {
		if d.entries[i].Key == key {
			d.entries[i].Title = title
			break
		}
	}
	snap := d.snapshotLocked()
	d.mu.Unlock()

	d.broker.Publish(pubsub.UpdatedEvent, snap)
	return d.client.UpdateChatTitle(ctx, d.email, key, title)
}

// =============================================================================
// ENTRY STATE TRANSITIONS
// =============================================================================

// BeginEdit moves an entry into the rename-editing state.
func (d *Directory) BeginEdit(key string) {
	d.setState(key, StateEditing)
}

// CancelEdit discards an in-progress rename.
func (d *Directory) CancelEdit(key string) {
	d.setState(key, StateSaved)
}

// MarkPendingDelete transitions an entry to PendingDelete after the user
// confirmed deletion. The entry stays visible until Delete completes.
func (d *Directory) MarkPendingDelete(key string) {
	d.setState(key, StatePendingDelete)
}

// CancelDelete returns a PendingDelete entry to Saved.
func (d *Directory) CancelDelete(key string) {
	d.setState(key, StateSaved)
}

func (d *Directory) setState(key string, state EntryState) {
	d.mu.Lock()
	changed := false
	for i := range d.entries {
		if d.entries[i].Key == key {
			if d.entries[i].State != state {
				d.entries[i].State = state
				changed = true
			}
			break
		}
	}
	snap := d.snapshotLocked()
	d.mu.Unlock()

	if changed {
		d.broker.Publish(pubsub.UpdatedEvent, snap)
	}
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a confirmed PendingDelete entry: it waits the grace period,
// calls the backend, and drops the entry from the local list only after a
// success response. On failure the entry returns to Saved. Callers must have
// obtained user confirmation and called MarkPendingDelete first.
func (d *Directory) Delete(ctx context.Context, key string) error {
	select {
	case <-time.After(d.grace):
	case <-ctx.Done():
		d.CancelDelete(key)
		return ctx.Err()
	}

	if err := d.client.DeleteChat(ctx, d.email, key); err != nil {
		d.CancelDelete(key)
		return err
	}

	d.mu.Lock()
	filtered := d.entries[:0]
	for _, e := range d.entries {
		if e.Key != key {
			filtered = append(filtered, e)
		}
	}
	d.entries = filtered
	snap := d.snapshotLocked()
	d.mu.Unlock()

	d.broker.Publish(pubsub.DeletedEvent, snap)
	return nil
}

// snapshotLocked copies the entry list. Callers hold d.mu.
func (d *Directory) snapshotLocked() []Summary {
	snap := make([]Summary, len(d.entries))
	copy(snap, d.entries)
	return snap
}
