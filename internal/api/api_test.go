// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// =============================================================================
// STREAM READER TESTS
// =============================================================================

func TestStreamReader_Process(t *testing.T) {
	reader := NewStreamReader(strings.NewReader("Hello, world"))

	var got []string
	err := reader.Process(context.Background(), func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	joined := strings.Join(got, "")
	if joined != "Hello, world" {
		t.Errorf("accumulated chunks = %q, want 'Hello, world'", joined)
	}
	if reader.GetAccumulated() != "Hello, world" {
		t.Errorf("GetAccumulated() = %q, want 'Hello, world'", reader.GetAccumulated())
	}
}

func TestStreamReader_RuneSplitAcrossReads(t *testing.T) {
	// "é" is 0xC3 0xA9; split it across two reads.
	full := []byte("caf\xc3\xa9 ok")
	reader := NewStreamReader(&twoPartReader{a: full[:4], b: full[4:]})

	var got strings.Builder
	err := reader.Process(context.Background(), func(chunk string) error {
		// Each delivered chunk must be valid UTF-8 on its own.
		if !utf8.ValidString(chunk) {
			t.Errorf("chunk %q is not valid UTF-8", chunk)
		}
		got.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if got.String() != "café ok" {
		t.Errorf("accumulated = %q, want 'café ok'", got.String())
	}
}

// twoPartReader returns a on the first read, b on the second, then EOF.
type twoPartReader struct {
	a, b []byte
	step int
}

func (r *twoPartReader) Read(p []byte) (int, error) {
	switch r.step {
	case 0:
		r.step++
		return copy(p, r.a), nil
	case 1:
		r.step++
		return copy(p, r.b), nil
	default:
		return 0, io.EOF
	}
}

func TestStreamReader_CallbackError(t *testing.T) {
	reader := NewStreamReader(strings.NewReader("some content"))

	wantErr := errors.New("stop")
	err := reader.Process(context.Background(), func(chunk string) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Process() error = %v, want %v", err, wantErr)
	}
}

func TestStreamReader_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(strings.NewReader("content"))
	err := reader.Process(ctx, func(chunk string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestClientConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{})

	if client.config.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q, want 'http://127.0.0.1:8000'", client.config.BaseURL)
	}
	if client.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", client.config.Timeout)
	}
}

func TestClient_CreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/createSession" {
			t.Errorf("path = %q, want '/chat/createSession'", r.URL.Path)
		}
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Email != "user@example.com" {
			t.Errorf("email = %q, want 'user@example.com'", req.Email)
		}
		json.NewEncoder(w).Encode(CreateSessionResponse{SessionKey: "abc-123"})
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	key, err := client.CreateSession(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if key != "abc-123" {
		t.Errorf("session key = %q, want 'abc-123'", key)
	}
}

func TestClient_RequestSessionKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SessionKey != "" {
			t.Errorf("sessionKey = %q, want empty for phase one", req.SessionKey)
		}
		if req.ChatTitle == "" {
			t.Error("chatTitle should be set for a session-creating ask")
		}
		json.NewEncoder(w).Encode(CreateSessionResponse{SessionKey: "new-key"})
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	key, err := client.RequestSessionKey(context.Background(), AskRequest{
		Email:     "user@example.com",
		Question:  "hello",
		ChatTitle: "hello",
	}, false)
	if err != nil {
		t.Fatalf("RequestSessionKey() error = %v", err)
	}
	if key != "new-key" {
		t.Errorf("session key = %q, want 'new-key'", key)
	}
}

func TestClient_Ask_Streaming(t *testing.T) {
	chunks := []string{"The ", "answer ", "is 42."}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/ask" {
			t.Errorf("path = %q, want '/chat/ask'", r.URL.Path)
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("recorder does not support flushing")
		}
		for _, c := range chunks {
			w.Write([]byte(c))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	var got strings.Builder
	err := client.Ask(context.Background(), AskRequest{
		Email:      "user@example.com",
		SessionKey: "abc-123",
		Question:   "what is the answer?",
	}, false, func(chunk string) error {
		got.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.String() != "The answer is 42." {
		t.Errorf("accumulated = %q, want 'The answer is 42.'", got.String())
	}
}

func TestClient_Ask_GuestEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/askGuest" {
			t.Errorf("path = %q, want '/chat/askGuest'", r.URL.Path)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	err := client.Ask(context.Background(), AskRequest{
		SessionKey: "guest-key",
		Question:   "hi",
	}, true, func(string) error { return nil })
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
}

func TestClient_Ask_SubmissionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "model unavailable"})
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	err := client.Ask(context.Background(), AskRequest{
		Email:      "user@example.com",
		SessionKey: "abc-123",
		Question:   "hi",
	}, false, func(string) error { return nil })

	if !IsSubmission(err) {
		t.Fatalf("Ask() error = %v, want a submission error", err)
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Errorf("error = %q, should carry backend message", err.Error())
	}
}

func TestClient_Ask_AbortIsNotFailure(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("partial "))
		flusher.Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Ask(ctx, AskRequest{
			Email:      "user@example.com",
			SessionKey: "abc-123",
			Question:   "hi",
		}, false, func(string) error { return nil })
	}()

	<-started
	cancel()

	err := <-errCh
	if !IsAbort(err) {
		t.Errorf("Ask() after cancel = %v, want abort", err)
	}
	if IsStream(err) || IsSubmission(err) {
		t.Errorf("abort must not classify as stream or submission error, got %v", err)
	}
}

func TestClient_GetSavedChats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if got := r.URL.Query().Get("email"); got != "user@example.com" {
			t.Errorf("email query = %q, want 'user@example.com'", got)
		}
		json.NewEncoder(w).Encode(SavedChatsResponse{
			SavedChatSessions: []SavedChat{
				{SessionKey: "k2", ChatTitle: "newest"},
				{SessionKey: "k1", ChatTitle: "oldest"},
			},
		})
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	chats, err := client.GetSavedChats(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("GetSavedChats() error = %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("len(chats) = %d, want 2", len(chats))
	}
	if chats[0].SessionKey != "k2" {
		t.Errorf("first key = %q, want 'k2' (newest first)", chats[0].SessionKey)
	}
}

func TestClient_GetSavedChats_ErrorIsDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	_, err := client.GetSavedChats(context.Background(), "user@example.com")
	if !IsDirectory(err) {
		t.Errorf("GetSavedChats() error = %v, want a directory error", err)
	}
}

func TestClient_UpdateChatTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req UpdateTitleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.NewTitle != "renamed" {
			t.Errorf("newTitle = %q, want 'renamed'", req.NewTitle)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	if err := client.UpdateChatTitle(context.Background(), "user@example.com", "k1", "renamed"); err != nil {
		t.Fatalf("UpdateChatTitle() error = %v", err)
	}
}

func TestClient_PauseStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/pause_stream" {
			t.Errorf("path = %q, want '/chat/pause_stream'", r.URL.Path)
		}
		var req PauseStreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.LastMessage != "partial answer" {
			t.Errorf("lastMessage = %q, want 'partial answer'", req.LastMessage)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	err := client.PauseStream(context.Background(), PauseStreamRequest{
		Email:       "user@example.com",
		SessionKey:  "k1",
		LastMessage: "partial answer",
	})
	if err != nil {
		t.Fatalf("PauseStream() error = %v", err)
	}
}

func TestClient_ExportPDF(t *testing.T) {
	blob := []byte("%PDF-1.4 fake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(blob)
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	got, err := client.ExportPDF(context.Background(), "user@example.com", "k1")
	if err != nil {
		t.Fatalf("ExportPDF() error = %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("blob = %q, want %q", got, blob)
	}
}

// =============================================================================
// ERROR TAXONOMY TESTS
// =============================================================================

func TestClientError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := &ClientError{Type: ErrTypeStream, Message: "stream interrupted", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if err.Error() != "stream interrupted: underlying" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"validation sentinel", ErrEmptyQuestion, IsValidation, true},
		{"submission error", &ClientError{Type: ErrTypeSubmission}, IsSubmission, true},
		{"stream error", &ClientError{Type: ErrTypeStream}, IsStream, true},
		{"directory error", &ClientError{Type: ErrTypeDirectory}, IsDirectory, true},
		{"abort", context.Canceled, IsAbort, true},
		{"abort is not stream", context.Canceled, IsStream, false},
		{"plain error", errors.New("x"), IsValidation, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pred(tc.err); got != tc.want {
				t.Errorf("predicate(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
