// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for communicating with the SAAS
// chatbot backend.
//
// The backend exposes JSON endpoints for session management plus a streaming
// ask endpoint whose response body is raw chunked UTF-8 text with no framing.
// All request/response field names in this package are part of the backend
// compatibility surface.
package api
