// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeValidation
	ErrTypeSubmission
	ErrTypeStream
	ErrTypeDirectory
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrEmptyQuestion = &ClientError{Type: ErrTypeValidation, Message: "question must not be empty"}
	ErrEmptyTitle    = &ClientError{Type: ErrTypeValidation, Message: "chat title must not be empty"}
	ErrMissingEmail  = &ClientError{Type: ErrTypeValidation, Message: "email is required for saved sessions"}
	ErrNotReachable  = &ClientError{Type: ErrTypeConnection, Message: "chat backend is not reachable"}
)

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return isType(err, ErrTypeValidation) }

// IsSubmission reports whether err came from the submission phase, before
// any streamed bytes arrived.
func IsSubmission(err error) bool { return isType(err, ErrTypeSubmission) }

// IsStream reports whether err occurred mid-stream, after partial content
// may already have been applied.
func IsStream(err error) bool { return isType(err, ErrTypeStream) }

// IsDirectory reports whether err came from a saved-session directory call.
func IsDirectory(err error) bool { return isType(err, ErrTypeDirectory) }

// IsAbort reports whether err is a deliberate cancellation rather than a
// failure. Aborts never roll back or surface to the user.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled)
}

func isType(err error, t ErrorType) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the chat backend base URL (default: http://127.0.0.1:8000)
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6 resolution issues on Windows
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:8000",
		Timeout: 30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the SAAS chatbot backend.
//
// The Client is thread-safe for concurrent use.
//
// Example:
//
//	client := api.NewClient()
//	key, err := client.CreateSession(ctx, "user@example.com")
//	if err != nil {
//	    log.Fatal("backend not available:", err)
//	}
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CreateSession asks the backend to allocate a new session key.
func (c *Client) CreateSession(ctx context.Context, email string) (string, error) {
	var result CreateSessionResponse
	if err := c.postJSON(ctx, "/chat/createSession", CreateSessionRequest{Email: email}, &result); err != nil {
		return "", err
	}
	if result.SessionKey == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "backend returned empty session key"}
	}
	return result.SessionKey, nil
}

// RequestSessionKey performs the non-streaming first phase of a keyless ask:
// the backend creates a session for the question and returns its key. The
// caller then re-asks with the key to receive the streamed answer.
func (c *Client) RequestSessionKey(ctx context.Context, req AskRequest, guest bool) (string, error) {
	path := "/chat/ask"
	if guest {
		path = "/chat/askGuest"
	}
	var result CreateSessionResponse
	if err := c.postJSON(ctx, path, req, &result); err != nil {
		var ce *ClientError
		if errors.As(err, &ce) && ce.Type == ErrTypeConnection {
			return "", err
		}
		return "", &ClientError{Type: ErrTypeSubmission, Message: "session creation failed", Cause: err}
	}
	if result.SessionKey == "" {
		return "", &ClientError{Type: ErrTypeSubmission, Message: "backend returned empty session key"}
	}
	return result.SessionKey, nil
}

// =============================================================================
// STREAMING ASK
// =============================================================================

// Ask sends a streaming question and calls the callback for each text chunk.
// The request must carry a SessionKey; the keyless two-phase flow goes
// through RequestSessionKey first. Guest asks use the askGuest endpoint.
// The callback is called synchronously in the order chunks are received.
// Returns when streaming is complete or an error occurs.
func (c *Client) Ask(ctx context.Context, req AskRequest, guest bool, callback StreamCallback) error {
	path := "/chat/ask"
	if guest {
		path = "/chat/askGuest"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return &ClientError{Type: ErrTypeSubmission, Message: "failed to marshal request", Cause: err}
	}

	// Use a client without timeout for streaming (cancellation via context).
	// SECURITY: TLS not required - the dev backend runs locally over HTTP
	streamClient := &http.Client{}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeSubmission, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := streamClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &ClientError{Type: ErrTypeSubmission, Message: "ask request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ClientError{
			Type:    ErrTypeSubmission,
			Message: "ask request failed: " + readErrorBody(resp),
		}
	}

	// Once bytes start flowing, failures become stream errors so callers
	// know partial content may already be on screen.
	reader := NewStreamReader(resp.Body)
	if err := reader.Process(ctx, callback); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &ClientError{Type: ErrTypeStream, Message: "stream interrupted", Cause: err}
	}
	return nil
}

// PauseStream tells the backend to persist the partial bot message after the
// local stream consumer has been cancelled.
func (c *Client) PauseStream(ctx context.Context, req PauseStreamRequest) error {
	return c.postJSON(ctx, "/chat/pause_stream", req, nil)
}

// =============================================================================
// SAVED SESSION DIRECTORY
// =============================================================================

// GetSavedChats returns the user's saved sessions, newest first.
func (c *Client) GetSavedChats(ctx context.Context, email string) ([]SavedChat, error) {
	u := c.config.BaseURL + "/chat/get_saved_chats?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeDirectory, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &ClientError{Type: ErrTypeDirectory, Message: "failed to fetch saved chats", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeDirectory,
			Message: "failed to fetch saved chats: " + readErrorBody(resp),
		}
	}

	var result SavedChatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeDirectory, Message: "malformed saved chats payload", Cause: err}
	}
	return result.SavedChatSessions, nil
}

// GetChatBySession fetches the full stored transcript of a saved session.
func (c *Client) GetChatBySession(ctx context.Context, email, sessionKey string) (*ChatBySessionResponse, error) {
	var result ChatBySessionResponse
	req := SessionKeyRequest{Email: email, SessionKey: sessionKey}
	if err := c.postJSON(ctx, "/chat/get_chat_by_session", req, &result); err != nil {
		return nil, &ClientError{Type: ErrTypeDirectory, Message: "failed to fetch chat history", Cause: err}
	}
	return &result, nil
}

// UpdateChatTitle renames a saved session on the backend.
func (c *Client) UpdateChatTitle(ctx context.Context, email, sessionKey, newTitle string) error {
	req := UpdateTitleRequest{Email: email, SessionKey: sessionKey, NewTitle: newTitle}
	if err := c.postJSON(ctx, "/chat/update_chat_title", req, nil); err != nil {
		return &ClientError{Type: ErrTypeDirectory, Message: "failed to rename chat", Cause: err}
	}
	return nil
}

// DeleteChat removes a saved session on the backend.
func (c *Client) DeleteChat(ctx context.Context, email, sessionKey string) error {
	req := SessionKeyRequest{Email: email, SessionKey: sessionKey}
	if err := c.postJSON(ctx, "/chat/delete_chat", req, nil); err != nil {
		return &ClientError{Type: ErrTypeDirectory, Message: "failed to delete chat", Cause: err}
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportPDF downloads the PDF rendering of a saved session. The caller owns
// the returned bytes.
func (c *Client) ExportPDF(ctx context.Context, email, sessionKey string) ([]byte, error) {
	body, err := json.Marshal(SessionKeyRequest{Email: email, SessionKey: sessionKey})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/export_single_chat_to_pdf", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ClientError{Type: ErrTypeConnection, Message: "export request timed out", Cause: err}
		}
		return nil, ErrNotReachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "export failed: " + readErrorBody(resp),
		}
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read export body", Cause: err}
	}
	return blob, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// postJSON issues a non-streaming POST with a JSON body and optionally
// decodes a JSON response into result.
func (c *Client) postJSON(ctx context.Context, path string, reqBody, result any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return &ClientError{Type: ErrTypeConnection, Message: "request timed out", Cause: err}
		}
		return ErrNotReachable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "request failed: " + readErrorBody(resp),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
		}
	}
	return nil
}

// readErrorBody extracts a useful message from a failed response, preferring
// the backend's JSON error field over the bare status line.
func readErrorBody(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		var be backendError
		if json.Unmarshal(data, &be) == nil && be.Error != "" {
			return be.Error
		}
	}
	return resp.Status
}
