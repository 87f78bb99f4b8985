// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log"
	"sync"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/model"
)

// ErrGuestSession rejects directory and persistence operations in guest mode.
var ErrGuestSession = &api.ClientError{
	Type:    api.ErrTypeValidation,
	Message: "operation requires an authenticated session",
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for the session client.
type Config struct {
	// Email identifies the user for saved sessions. Ignored in guest mode.
	Email string

	// Guest switches all asks to the unauthenticated endpoint; saved-session
	// operations are rejected with ErrGuestSession.
	Guest bool

	// PreCreateSessions makes StartNewSession request a key immediately
	// instead of waiting for the first ask.
	PreCreateSessions bool

	// Directory configures the saved-session directory.
	Directory DirectoryConfig

	// Logger receives fire-and-forget failures (default: log.Default()).
	Logger *log.Logger
}

// =============================================================================
// SESSION CLIENT
// =============================================================================

// Client is the top-level façade the UI drives. It owns all mutable
// conversation state: the active session key, its transcript, the saved
// session directory, and the single in-flight stream token. Construct one
// per conversation context; there is no ambient global state.
//
// At most one stream is active at a time: StartNewSession, ResumeSession,
// and Pause all abort the current stream before proceeding. Each session
// switch installs a fresh Transcript instance, so a superseded stream keeps
// writing only into the transcript it was started with.
type Client struct {
	mu         sync.Mutex
	key        string
	transcript *model.Transcript

	api       *api.Client
	cfg       Config
	directory *Directory
	cancels   *CancelController
	submitter *Submitter
	logger    *log.Logger
}

// NewClient creates a session client around a backend client.
func NewClient(backend *api.Client, cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	cancels := NewCancelController()
	return &Client{
		transcript: model.NewTranscript(),
		api:        backend,
		cfg:        cfg,
		directory:  NewDirectory(backend, cfg.Email, cfg.Directory),
		cancels:    cancels,
		submitter:  NewSubmitter(backend, cancels, cfg.Email, cfg.Guest, cfg.Logger),
		logger:     cfg.Logger,
	}
}

// Transcript returns the active session's transcript. The pointer changes on
// every session switch; re-fetch after StartNewSession or ResumeSession.
func (c *Client) Transcript() *model.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// Directory returns the saved-session directory.
func (c *Client) Directory() *Directory {
	return c.directory
}

// SessionKey returns the active session's key, empty until assigned.
func (c *Client) SessionKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Guest reports whether the client runs unauthenticated.
func (c *Client) Guest() bool {
	return c.cfg.Guest
}

// Email returns the configured user identity, empty in guest mode.
func (c *Client) Email() string {
	if c.cfg.Guest {
		return ""
	}
	return c.cfg.Email
}

// StreamActive reports whether a stream is currently in flight.
func (c *Client) StreamActive() bool {
	return c.cancels.Active()
}

// Close aborts any in-flight stream and shuts down event brokers.
func (c *Client) Close() {
	c.cancels.Cancel()
	c.mu.Lock()
	t := c.transcript
	c.mu.Unlock()
	t.Close()
	c.directory.Close()
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// StartNewSession aborts any in-flight stream and makes a fresh empty session
// active. The key stays empty until the first ask unless PreCreateSessions is
// set.
func (c *Client) StartNewSession(ctx context.Context) error {
	c.cancels.Cancel()
	c.install("", model.NewTranscript())

	if c.cfg.PreCreateSessions && !c.cfg.Guest {
		key, err := c.directory.Create(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		// Only adopt the key if nothing switched sessions meanwhile.
		if c.key == "" {
			c.key = key
		}
		c.mu.Unlock()
	}
	return nil
}

// ResumeSession aborts any in-flight stream, makes the saved session active,
// and loads its stored transcript from the backend. On fetch failure the
// session is active with an empty transcript and the error is surfaced.
func (c *Client) ResumeSession(ctx context.Context, key string) error {
	if c.cfg.Guest {
		return ErrGuestSession
	}

	c.cancels.Cancel()
	c.install(key, model.NewTranscript())

	stored, err := c.api.GetChatBySession(ctx, c.cfg.Email, key)
	if err != nil {
		return err
	}

	c.mu.Lock()
	// A switch during the fetch makes this response stale.
	if c.key == key {
		c.transcript.Replace(stored.Messages)
	}
	c.mu.Unlock()
	return nil
}

// install swaps in a new active session under the lock, closing the previous
// transcript's broker.
func (c *Client) install(key string, t *model.Transcript) {
	c.mu.Lock()
	old := c.transcript
	c.key = key
	c.transcript = t
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// =============================================================================
// ASK / PAUSE
// =============================================================================

// Ask submits a question for the active session and blocks until the
// streamed answer completes, fails, or is aborted. Callers run it off the
// UI loop and watch the transcript for incremental updates.
func (c *Client) Ask(ctx context.Context, question string) error {
	c.mu.Lock()
	keyAtCall := c.key
	transcript := c.transcript
	c.mu.Unlock()

	_, err := c.submitter.Ask(ctx, transcript, c.directory, question, keyAtCall,
		c.SessionKey,
		func(assigned string) {
			c.mu.Lock()
			// Adopt the new key only if this ask's session is still active.
			if c.key == keyAtCall {
				c.key = assigned
			}
			c.mu.Unlock()
		},
	)
	return err
}

// Pause aborts the in-flight stream and persists the partially streamed bot
// message so it survives a resume. Calling Pause with no active stream is a
// no-op: no network call, no state change.
//
// The backend is only told to save the partial text; it is not told to stop
// generating, so it may keep producing tokens into the dropped connection.
func (c *Client) Pause(ctx context.Context) error {
	if !c.cancels.Active() {
		return nil
	}

	c.mu.Lock()
	key := c.key
	lastBot := c.transcript.LastBotText()
	c.mu.Unlock()

	c.cancels.Cancel()

	if c.cfg.Guest || key == "" || lastBot == "" {
		return nil
	}
	return c.api.PauseStream(ctx, api.PauseStreamRequest{
		Email:       c.cfg.Email,
		SessionKey:  key,
		LastMessage: lastBot,
	})
}

// =============================================================================
// DIRECTORY OPERATIONS
// =============================================================================

// RefreshDirectory reloads the saved-session list from the backend.
func (c *Client) RefreshDirectory(ctx context.Context) error {
	if c.cfg.Guest {
		return ErrGuestSession
	}
	return c.directory.Refresh(ctx)
}

// Rename updates a saved session's title, optimistically then on the backend.
func (c *Client) Rename(ctx context.Context, key, newTitle string) error {
	if c.cfg.Guest {
		return ErrGuestSession
	}
	return c.directory.Rename(ctx, key, newTitle)
}

// Delete removes a saved session after the caller obtained user
// confirmation: the entry enters PendingDelete, waits the grace period, and
// is dropped once the backend confirms. Deleting the active session clears
// it (empty transcript, no key) as part of the same operation.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c.cfg.Guest {
		return ErrGuestSession
	}

	c.directory.MarkPendingDelete(key)
	if err := c.directory.Delete(ctx, key); err != nil {
		return err
	}

	c.mu.Lock()
	wasActive := c.key == key
	c.mu.Unlock()
	if wasActive {
		c.cancels.Cancel()
		c.install("", model.NewTranscript())
	}
	return nil
}

// ExportPDF downloads the PDF rendering of a saved session.
func (c *Client) ExportPDF(ctx context.Context, key string) ([]byte, error) {
	if c.cfg.Guest {
		return nil, ErrGuestSession
	}
	return c.api.ExportPDF(ctx, c.cfg.Email, key)
}
