// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates chat sessions against the backend: the
// submission flow with its optimistic transcript updates and rollback, the
// single-active-stream cancellation token, the saved-session directory with
// its rename and delete state machines, and the SessionClient façade that
// ties them together for the UI.
package session
