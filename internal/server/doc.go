// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the development chat backend.
//
// It exposes the same /chat/* wire surface the TUI client speaks against in
// production: two-phase asks with raw chunked streaming, a per-email saved
// session directory, title updates, deletion, pause persistence, and PDF
// export. Sessions live in memory only; the server exists so the client can
// be developed and tested without the real backend.
package server
