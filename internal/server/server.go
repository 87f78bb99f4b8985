// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/config"
	"github.com/skverma/saaschat-tui/internal/util"
)

// maxRequestBody caps request bodies at 1 MiB. No /chat/* payload comes
// anywhere near this in normal use.
const maxRequestBody = 1 << 20

// defaultChatTitle names sessions created without an explicit title.
const defaultChatTitle = "New Chat"

// =============================================================================
// SERVER STATS
// =============================================================================

// ServerStats tracks request counters for the health endpoint.
type ServerStats struct {
	TotalRequests  int64
	StreamedChunks int64
	StartTime      time.Time
}

// NewServerStats creates stats with the start time set to now.
func NewServerStats() *ServerStats {
	return &ServerStats{StartTime: time.Now()}
}

// RecordRequest increments the request counter.
func (s *ServerStats) RecordRequest() {
	atomic.AddInt64(&s.TotalRequests, 1)
}

// RecordChunks adds n to the streamed chunk counter.
func (s *ServerStats) RecordChunks(n int64) {
	atomic.AddInt64(&s.StreamedChunks, n)
}

// Uptime returns time elapsed since the server started.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// =============================================================================
// SERVER
// =============================================================================

// Server is the in-memory development chat backend.
type Server struct {
	cfg    config.ServerConfig
	store  *SessionStore
	stats  *ServerStats
	logger *log.Logger

	// pending maps session key to the question of an in-flight stream so a
	// later pause_stream call can persist the partial exchange.
	pendingMu sync.Mutex
	pending   map[string]string

	httpServer *http.Server
}

// New creates a Server from the given config. A nil logger falls back to the
// standard logger.
func New(cfg config.ServerConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:     cfg,
		store:   NewSessionStore(),
		stats:   NewServerStats(),
		logger:  logger,
		pending: make(map[string]string),
	}
}

// Handler builds the routed handler with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeadersMiddleware)
	r.Use(RateLimitMiddleware(NewRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst)))
	r.Use(s.countRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/chat", func(chat chi.Router) {
		chat.Post("/createSession", s.handleCreateSession)
		chat.Post("/ask", s.handleAsk)
		chat.Post("/askGuest", s.handleAskGuest)
		chat.Get("/get_saved_chats", s.handleSavedChats)
		chat.Post("/get_chat_by_session", s.handleChatBySession)
		chat.Post("/update_chat_title", s.handleUpdateTitle)
		chat.Post("/delete_chat", s.handleDeleteChat)
		chat.Post("/pause_stream", s.handlePauseStream)
		chat.Post("/export_single_chat_to_pdf", s.handleExport)
	})

	return r
}

// Start begins listening on the configured address. Blocks until the server
// stops; http.ErrServerClosed is swallowed so a clean Shutdown returns nil.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: ask streams are open-ended by design of the
		// wire protocol and are bounded by the client disconnecting.
	}

	s.logger.Printf("SERVER_START | addr=%s rate_limit=%g", s.cfg.Addr, s.cfg.RateLimit)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Printf("SERVER_SHUTDOWN | uptime=%s requests=%d",
		s.stats.Uptime().Round(time.Second),
		atomic.LoadInt64(&s.stats.TotalRequests),
	)
	return s.httpServer.Shutdown(ctx)
}

// countRequests is middleware that feeds the stats counters.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.stats.RecordRequest()
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WRITE_JSON_FAILED | error=%v", err)
	}
}

// writeError writes a JSON error body in the shape the client parses.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody decodes a JSON request body into dst with a size cap.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime":   s.stats.Uptime().Round(time.Second).String(),
		"sessions": s.store.Count(),
		"requests": atomic.LoadInt64(&s.stats.TotalRequests),
		"chunks":   atomic.LoadInt64(&s.stats.StreamedChunks),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	key := s.store.Create(req.Email, defaultChatTitle)
	writeJSON(w, http.StatusOK, api.CreateSessionResponse{SessionKey: key})
}

func (s *Server) handleSavedChats(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	chats := s.store.List(email)
	if chats == nil {
		chats = []api.SavedChat{}
	}
	writeJSON(w, http.StatusOK, api.SavedChatsResponse{SavedChatSessions: chats})
}

func (s *Server) handleChatBySession(w http.ResponseWriter, r *http.Request) {
	var req api.SessionKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	messages, err := s.store.Messages(req.SessionKey)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, api.ChatBySessionResponse{Messages: messages})
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateTitleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.NewTitle) == "" {
		writeError(w, http.StatusBadRequest, "title must not be empty")
		return
	}

	if err := s.store.Rename(req.SessionKey, req.NewTitle); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	var req api.SessionKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.Delete(req.SessionKey); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.clearPending(req.SessionKey)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePauseStream(w http.ResponseWriter, r *http.Request) {
	var req api.PauseStreamRequest
	if !decodeBody(w, r, &req) {
		return
	}

	question := s.takePending(req.SessionKey)
	if question == "" {
		// Nothing was in flight; pausing an idle session is a no-op.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if err := s.store.AppendPartial(req.SessionKey, question, req.LastMessage); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ASK HANDLERS
// =============================================================================

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req api.AskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return
	}

	// Phase one: no session key yet. Mint one, register the session, and
	// return the key; the client re-asks with it to start the stream.
	if req.SessionKey == "" {
		if strings.TrimSpace(req.Email) == "" {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}
		title := req.ChatTitle
		if title == "" {
			title = util.TruncateTitle(req.Question, 53)
		}
		key := s.store.Create(req.Email, title)
		writeJSON(w, http.StatusOK, api.CreateSessionResponse{SessionKey: key})
		return
	}

	if !s.store.Exists(req.SessionKey) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	s.streamAnswer(w, r, req.SessionKey, req.Question)
}

func (s *Server) handleAskGuest(w http.ResponseWriter, r *http.Request) {
	var req api.AskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return
	}

	if req.SessionKey == "" {
		key := s.store.CreateGuest()
		writeJSON(w, http.StatusOK, api.CreateSessionResponse{SessionKey: key})
		return
	}

	if !s.store.IsGuest(req.SessionKey) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	s.streamAnswer(w, r, req.SessionKey, req.Question)
}

// streamAnswer writes the answer to the question as raw text chunks, one
// word at a time with a flush after each. The completed exchange is stored
// only if the whole answer was delivered; a client disconnect leaves the
// question pending for pause_stream to persist.
func (s *Server) streamAnswer(w http.ResponseWriter, r *http.Request, key, question string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	s.setPending(key, question)

	answer := answerFor(question)
	words := strings.Fields(answer)
	delay := time.Duration(s.cfg.ChunkDelayMs) * time.Millisecond

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	var sent int64
	for i, word := range words {
		select {
		case <-ctx.Done():
			s.stats.RecordChunks(sent)
			s.logger.Printf("STREAM_ABORTED | session=%s chunks=%d", key, sent)
			return
		default:
		}

		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if _, err := fmt.Fprint(w, chunk); err != nil {
			s.stats.RecordChunks(sent)
			return
		}
		flusher.Flush()
		sent++

		if delay > 0 && i < len(words)-1 {
			select {
			case <-ctx.Done():
				s.stats.RecordChunks(sent)
				s.logger.Printf("STREAM_ABORTED | session=%s chunks=%d", key, sent)
				return
			case <-time.After(delay):
			}
		}
	}

	s.stats.RecordChunks(sent)
	s.clearPending(key)
	if err := s.store.AppendExchange(key, question, answer); err != nil {
		s.logger.Printf("EXCHANGE_STORE_FAILED | session=%s error=%v", key, err)
	}
}

// =============================================================================
// PENDING QUESTION TRACKING
// =============================================================================

func (s *Server) setPending(key, question string) {
	s.pendingMu.Lock()
	s.pending[key] = question
	s.pendingMu.Unlock()
}

func (s *Server) takePending(key string) string {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	q := s.pending[key]
	delete(s.pending, key)
	return q
}

func (s *Server) clearPending(key string) {
	s.pendingMu.Lock()
	delete(s.pending, key)
	s.pendingMu.Unlock()
}

// =============================================================================
// ANSWER GENERATION
// =============================================================================

// answerFor produces a deterministic multi-sentence reply so streaming,
// pausing, and transcript tests see stable content.
func answerFor(question string) string {
	q := strings.TrimSpace(question)
	return fmt.Sprintf(
		"You asked: %q. This is a development backend, so the answer is canned, "+
			"but it streams word by word exactly the way the production service does. "+
			"Each word arrives as its own chunk with a short delay in between, which "+
			"gives the client something realistic to render, pause, and persist.",
		q,
	)
}
