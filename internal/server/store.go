// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/model"
)

// ErrSessionNotFound is returned when a session key has no stored record.
var ErrSessionNotFound = errors.New("session not found")

// =============================================================================
// SESSION STORE
// =============================================================================

// sessionRecord is one saved chat session.
type sessionRecord struct {
	Key      string
	Email    string
	Title    string
	Messages []model.Message
	Created  time.Time
	Updated  time.Time
}

// SessionStore holds all saved sessions in memory, keyed by session key.
// Guest sessions are tracked separately and never appear in directory
// listings.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*sessionRecord
	guestKeys map[string]struct{}
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:  make(map[string]*sessionRecord),
		guestKeys: make(map[string]struct{}),
	}
}

// Create mints a session key and registers a new saved session for the email.
func (s *SessionStore) Create(email, title string) string {
	key := uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = &sessionRecord{
		Key:     key,
		Email:   email,
		Title:   title,
		Created: now,
		Updated: now,
	}
	return key
}

// CreateGuest mints a session key with no backing record. Guest sessions
// stream but persist nothing.
func (s *SessionStore) CreateGuest() string {
	key := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.guestKeys[key] = struct{}{}
	return key
}

// IsGuest reports whether the key belongs to a guest session.
func (s *SessionStore) IsGuest(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.guestKeys[key]
	return ok
}

// Exists reports whether the key names a saved or guest session.
func (s *SessionStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; ok {
		return true
	}
	_, ok := s.guestKeys[key]
	return ok
}

// AppendExchange stores a completed question/answer pair on the session.
// Guest keys are accepted and ignored.
func (s *SessionStore) AppendExchange(key, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.guestKeys[key]; ok {
		return nil
	}
	rec, ok := s.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}
	rec.Messages = append(rec.Messages,
		model.NewUserMessage(question),
		model.NewBotMessage(answer),
	)
	rec.Updated = time.Now()
	return nil
}

// AppendPartial stores a paused exchange: the question plus whatever bot text
// had streamed before the pause. An empty partial stores only the question.
func (s *SessionStore) AppendPartial(key, question, partial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.guestKeys[key]; ok {
		return nil
	}
	rec, ok := s.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}
	rec.Messages = append(rec.Messages, model.NewUserMessage(question))
	if partial != "" {
		rec.Messages = append(rec.Messages, model.NewBotMessage(partial))
	}
	rec.Updated = time.Now()
	return nil
}

// List returns the email's saved sessions, most recently updated first.
func (s *SessionStore) List(email string) []api.SavedChat {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []*sessionRecord
	for _, rec := range s.sessions {
		if rec.Email == email {
			recs = append(recs, rec)
		}
	}
	// Newest activity first, matching the sidebar ordering the client shows.
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].Updated.After(recs[j-1].Updated); j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}

	out := make([]api.SavedChat, 0, len(recs))
	for _, rec := range recs {
		out = append(out, api.SavedChat{SessionKey: rec.Key, ChatTitle: rec.Title})
	}
	return out
}

// Messages returns a copy of the session's stored transcript.
func (s *SessionStore) Messages(key string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]model.Message, len(rec.Messages))
	copy(out, rec.Messages)
	return out, nil
}

// Rename updates a session's title.
func (s *SessionStore) Rename(key, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}
	rec.Title = title
	rec.Updated = time.Now()
	return nil
}

// Delete removes a saved session. Deleting an unknown key is an error so the
// client's failure path can be exercised.
func (s *SessionStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[key]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, key)
	return nil
}

// Title returns the session's current title.
func (s *SessionStore) Title(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[key]
	if !ok {
		return "", ErrSessionNotFound
	}
	return rec.Title, nil
}

// Count returns the number of saved (non-guest) sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
