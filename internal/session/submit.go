// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log"
	"strings"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/model"
)

// historyWindow is the trailing message count sent as conversational context
// on a resume ask.
const historyWindow = 10

// =============================================================================
// SUBMISSION CONTROLLER
// =============================================================================

// Submitter orchestrates ask requests: it decides new-session vs resume,
// dispatches the request, wires the streamed body into the transcript, and
// reconciles the session's title in the directory.
type Submitter struct {
	client  *api.Client
	cancels *CancelController
	email   string
	guest   bool
	logger  *log.Logger
}

// NewSubmitter creates a submission controller. In guest mode asks go to the
// unauthenticated endpoint and nothing is persisted to the directory.
func NewSubmitter(client *api.Client, cancels *CancelController, email string, guest bool, logger *log.Logger) *Submitter {
	if logger == nil {
		logger = log.Default()
	}
	return &Submitter{
		client:  client,
		cancels: cancels,
		email:   email,
		guest:   guest,
		logger:  logger,
	}
}

// Ask submits a question for the session that was current at call time.
//
// sessionKeyAtCall is the key captured by the caller before Ask suspended,
// and currentKey reads whatever key the client holds now; comparing the two
// at each chunk boundary detects the user switching sessions mid-stream.
// onKeyAssigned fires as soon as a new session's key arrives, before any
// streaming is processed.
//
// Returns the session key the exchange ran under. A context.Canceled error
// means the stream was deliberately aborted: no rollback, nothing to surface.
func (s *Submitter) Ask(
	ctx context.Context,
	transcript *model.Transcript,
	directory *Directory,
	question string,
	sessionKeyAtCall string,
	currentKey func() string,
	onKeyAssigned func(string),
) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return sessionKeyAtCall, api.ErrEmptyQuestion
	}

	// Capture the context window before the optimistic append so the new
	// question is not its own history.
	history := transcript.Tail(historyWindow)

	transcript.AppendUser(question)

	streamCtx := s.cancels.Begin(ctx)
	defer s.cancels.Release()

	key := sessionKeyAtCall
	isNew := key == ""
	if isNew {
		assigned, err := s.client.RequestSessionKey(streamCtx, api.AskRequest{
			Email:     s.userEmail(),
			Question:  question,
			ChatTitle: question,
		}, s.guest)
		if err != nil {
			s.rollback(transcript, sessionKeyAtCall, currentKey, err)
			return "", err
		}
		key = assigned
		if onKeyAssigned != nil {
			onKeyAssigned(key)
		}
		if !s.guest && directory != nil {
			directory.InsertFront(key, question)
		}
	}

	req := api.AskRequest{
		Email:      s.userEmail(),
		SessionKey: key,
		Question:   question,
	}
	if !isNew && !s.guest {
		req.History = history
	}

	err := s.client.Ask(streamCtx, req, s.guest, func(chunk string) error {
		// The user may have switched sessions while this chunk was in
		// flight; if so, stop here. Chunks already applied stay in the
		// orphaned transcript.
		if currentKey() != key {
			s.cancels.Cancel()
			return context.Canceled
		}
		transcript.ApplyChunk(chunk)
		return nil
	})
	if err != nil {
		if api.IsSubmission(err) {
			// Failed before any bytes arrived: undo the optimistic append.
			s.rollback(transcript, key, currentKey, err)
		}
		// Stream errors keep whatever partial text arrived; aborts are
		// not failures at all.
		return key, err
	}

	if isNew && !s.guest && directory != nil {
		// Confirm the title with the backend off the critical path; a
		// persistence failure is logged, never surfaced.
		go func() {
			if err := directory.SetTitle(context.Background(), key, question); err != nil {
				s.logger.Printf("session %s: title persist failed: %v", key, err)
			}
		}()
	}

	return key, nil
}

// rollback removes the just-appended user message, but only when the caller
// is still looking at the same session; a stale callback must not clobber a
// newer session's transcript.
func (s *Submitter) rollback(transcript *model.Transcript, key string, currentKey func() string, cause error) {
	if api.IsAbort(cause) {
		return
	}
	if currentKey() != key {
		return
	}
	transcript.RollbackLastUser()
}

func (s *Submitter) userEmail() string {
	if s.guest {
		return ""
	}
	return s.email
}
