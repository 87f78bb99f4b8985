// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the chat session state machine: submission
// orchestration, stream cancellation, the saved-session directory, and the
// top-level client façade the UI drives.
//
// This file implements thread-safe cancel token handling. The cancel function
// is touched from both the UI update loop and the streaming goroutine, so all
// access goes through a mutex.
package session

import (
	"context"
	"sync"
)

// =============================================================================
// CANCELLATION CONTROLLER
// =============================================================================

// CancelController owns at most one cancellation token at a time. Begin mints
// a new token and aborts the previous one; starting a new stream therefore
// implicitly invalidates the old stream's ownership. Observers check token
// state at response start and every chunk boundary, not only at stream end.
// IMPORTANT: Must be used as a pointer to avoid copying the mutex when Bubble
// Tea's Update function returns model copies.
type CancelController struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// NewCancelController creates a new CancelController pointer.
// Always use this constructor to ensure proper initialization.
func NewCancelController() *CancelController {
	return &CancelController{}
}

// Begin aborts any in-flight token and mints a fresh one derived from parent.
// The returned context is the new stream's cancellation token.
func (cc *CancelController) Begin(parent context.Context) context.Context {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.cancelFunc != nil {
		cc.cancelFunc()
	}
	ctx, cancel := context.WithCancel(parent)
	cc.cancelFunc = cancel
	return ctx
}

// Cancel aborts the current token and clears it.
// Safe to call multiple times or with no token outstanding.
func (cc *CancelController) Cancel() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.cancelFunc != nil {
		cc.cancelFunc()
		cc.cancelFunc = nil
	}
}

// Release clears the token at the end of an attempt, cancelling the context
// to prevent leaks. Mandatory on every exit path: success, error, or abort.
func (cc *CancelController) Release() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.cancelFunc != nil {
		cc.cancelFunc() // Always cancel to prevent context leaks
		cc.cancelFunc = nil
	}
}

// Active reports whether a token is currently outstanding.
func (cc *CancelController) Active() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.cancelFunc != nil
}
