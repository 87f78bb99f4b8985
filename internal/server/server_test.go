// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/config"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer() *Server {
	cfg := config.ServerConfig{
		Addr:         "127.0.0.1:0",
		RateLimit:    1000,
		RateBurst:    1000,
		ChunkDelayMs: 0,
	}
	return New(cfg, log.New(io.Discard, "", 0))
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler, email string) string {
	t.Helper()

	rec := postJSON(t, h, "/chat/createSession", api.CreateSessionRequest{Email: email})
	if rec.Code != http.StatusOK {
		t.Fatalf("createSession status = %d, want 200", rec.Code)
	}
	var resp api.CreateSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode createSession response: %v", err)
	}
	if resp.SessionKey == "" {
		t.Fatal("createSession returned empty session key")
	}
	return resp.SessionKey
}

// =============================================================================
// SESSION LIFECYCLE TESTS
// =============================================================================

func TestCreateSession(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	key := createSession(t, h, "user@example.com")
	if key == "" {
		t.Fatal("empty session key")
	}

	rec := postJSON(t, h, "/chat/createSession", api.CreateSessionRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing email status = %d, want 400", rec.Code)
	}
}

func TestAsk_TwoPhaseStreamsAndPersists(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	// Phase one: keyless ask returns a session key, no stream.
	rec := postJSON(t, h, "/chat/ask", api.AskRequest{
		Email:    "user@example.com",
		Question: "what is the airspeed of an unladen swallow",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("phase one status = %d, want 200", rec.Code)
	}
	var keyResp api.CreateSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &keyResp); err != nil {
		t.Fatalf("decode phase one response: %v", err)
	}
	if keyResp.SessionKey == "" {
		t.Fatal("phase one returned no session key")
	}

	// Phase two: re-ask with the key streams the raw answer text.
	rec = postJSON(t, h, "/chat/ask", api.AskRequest{
		Email:      "user@example.com",
		SessionKey: keyResp.SessionKey,
		Question:   "what is the airspeed of an unladen swallow",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("phase two status = %d, want 200", rec.Code)
	}
	want := answerFor("what is the airspeed of an unladen swallow")
	if got := rec.Body.String(); got != want {
		t.Errorf("streamed body = %q, want %q", got, want)
	}

	// The completed exchange must be stored.
	rec = postJSON(t, h, "/chat/get_chat_by_session", api.SessionKeyRequest{
		Email:      "user@example.com",
		SessionKey: keyResp.SessionKey,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("get_chat_by_session status = %d, want 200", rec.Code)
	}
	var chat api.ChatBySessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &chat); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(chat.Messages) != 2 {
		t.Fatalf("stored messages = %d, want 2", len(chat.Messages))
	}
	if chat.Messages[0].Text != "what is the airspeed of an unladen swallow" {
		t.Errorf("stored question = %q", chat.Messages[0].Text)
	}
	if chat.Messages[1].Text != want {
		t.Errorf("stored answer = %q", chat.Messages[1].Text)
	}

	// The session appears in the directory with a title derived from the
	// question.
	req := httptest.NewRequest(http.MethodGet, "/chat/get_saved_chats?email=user%40example.com", nil)
	listRec := httptest.NewRecorder()
	h.ServeHTTP(listRec, req)
	if listRec.Code != http.StatusOK {
		t.Fatalf("get_saved_chats status = %d, want 200", listRec.Code)
	}
	var saved api.SavedChatsResponse
	if err := json.Unmarshal(listRec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode saved chats: %v", err)
	}
	if len(saved.SavedChatSessions) != 1 {
		t.Fatalf("saved sessions = %d, want 1", len(saved.SavedChatSessions))
	}
	if !strings.HasPrefix(saved.SavedChatSessions[0].ChatTitle, "what is the airspeed") {
		t.Errorf("derived title = %q", saved.SavedChatSessions[0].ChatTitle)
	}
}

func TestAsk_UnknownSessionKey(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	rec := postJSON(t, h, "/chat/ask", api.AskRequest{
		Email:      "user@example.com",
		SessionKey: "no-such-key",
		Question:   "hello",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAsk_EmptyQuestionRejected(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	rec := postJSON(t, h, "/chat/ask", api.AskRequest{Email: "user@example.com", Question: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAskGuest_StreamsWithoutPersistence(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	rec := postJSON(t, h, "/chat/askGuest", api.AskRequest{Question: "hi there"})
	if rec.Code != http.StatusOK {
		t.Fatalf("guest phase one status = %d, want 200", rec.Code)
	}
	var keyResp api.CreateSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &keyResp); err != nil {
		t.Fatalf("decode guest key: %v", err)
	}

	rec = postJSON(t, h, "/chat/askGuest", api.AskRequest{
		SessionKey: keyResp.SessionKey,
		Question:   "hi there",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("guest phase two status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("guest stream produced no output")
	}

	if n := srv.store.Count(); n != 0 {
		t.Errorf("saved sessions after guest ask = %d, want 0", n)
	}
}

func TestAskGuest_KeyNotUsableOnSavedEndpoint(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	rec := postJSON(t, h, "/chat/askGuest", api.AskRequest{Question: "hi"})
	var keyResp api.CreateSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &keyResp); err != nil {
		t.Fatalf("decode guest key: %v", err)
	}

	rec = postJSON(t, h, "/chat/get_chat_by_session", api.SessionKeyRequest{SessionKey: keyResp.SessionKey})
	if rec.Code != http.StatusNotFound {
		t.Errorf("guest key on get_chat_by_session status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// TITLE / DELETE / PAUSE TESTS
// =============================================================================

func TestUpdateChatTitle(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	key := createSession(t, h, "user@example.com")

	rec := postJSON(t, h, "/chat/update_chat_title", api.UpdateTitleRequest{
		Email:      "user@example.com",
		SessionKey: key,
		NewTitle:   "Renamed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update title status = %d, want 200", rec.Code)
	}

	title, err := srv.store.Title(key)
	if err != nil {
		t.Fatalf("Title() error: %v", err)
	}
	if title != "Renamed" {
		t.Errorf("title = %q, want %q", title, "Renamed")
	}

	rec = postJSON(t, h, "/chat/update_chat_title", api.UpdateTitleRequest{
		SessionKey: key,
		NewTitle:   "  ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty title status = %d, want 400", rec.Code)
	}
}

func TestDeleteChat(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	key := createSession(t, h, "user@example.com")

	rec := postJSON(t, h, "/chat/delete_chat", api.SessionKeyRequest{
		Email:      "user@example.com",
		SessionKey: key,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}
	if srv.store.Count() != 0 {
		t.Error("session still stored after delete")
	}

	rec = postJSON(t, h, "/chat/delete_chat", api.SessionKeyRequest{SessionKey: key})
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func TestPauseStream_PersistsPartialExchange(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	key := createSession(t, h, "user@example.com")

	// Simulate an aborted stream: the question is pending, the full answer
	// never completed.
	srv.setPending(key, "tell me a long story")

	rec := postJSON(t, h, "/chat/pause_stream", api.PauseStreamRequest{
		Email:       "user@example.com",
		SessionKey:  key,
		LastMessage: "Once upon a",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d, want 200", rec.Code)
	}

	messages, err := srv.store.Messages(key)
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("stored messages = %d, want 2", len(messages))
	}
	if messages[0].Text != "tell me a long story" {
		t.Errorf("question = %q", messages[0].Text)
	}
	if messages[1].Text != "Once upon a" {
		t.Errorf("partial answer = %q", messages[1].Text)
	}
}

func TestPauseStream_IdleIsNoOp(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	key := createSession(t, h, "user@example.com")

	rec := postJSON(t, h, "/chat/pause_stream", api.PauseStreamRequest{
		Email:      "user@example.com",
		SessionKey: key,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("idle pause status = %d, want 200", rec.Code)
	}

	messages, err := srv.store.Messages(key)
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("stored messages = %d, want 0", len(messages))
	}
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestExportPDF(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	key := createSession(t, h, "user@example.com")

	if err := srv.store.AppendExchange(key, "hello (world)", "hi back"); err != nil {
		t.Fatalf("AppendExchange error: %v", err)
	}

	rec := postJSON(t, h, "/chat/export_single_chat_to_pdf", api.SessionKeyRequest{
		Email:      "user@example.com",
		SessionKey: key,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}

	body := rec.Body.Bytes()
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Error("export body is not a PDF")
	}
	if !bytes.Contains(body, []byte(`hello \(world\)`)) {
		t.Error("export body does not contain the escaped transcript text")
	}
	if !bytes.HasSuffix(bytes.TrimRight(body, "\n"), []byte("%%EOF")) {
		t.Error("export body missing PDF trailer")
	}
}

func TestExportPDF_UnknownSession(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	rec := postJSON(t, h, "/chat/export_single_chat_to_pdf", api.SessionKeyRequest{SessionKey: "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// MIDDLEWARE AND HELPER TESTS
// =============================================================================

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	if !rl.Allow("10.0.0.1") {
		t.Error("first request should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("second immediate request should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("different IP should have its own bucket")
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestSavedChats_RequiresEmail(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/chat/get_saved_chats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  []string
	}{
		{"empty", "", 10, []string{""}},
		{"fits", "short line", 20, []string{"short line"}},
		{"wraps", "one two three four", 9, []string{"one two", "three", "four"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.input, tt.width)
			if len(got) != len(tt.want) {
				t.Fatalf("lines = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
