// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat interface.
//
// The model renders a transcript viewport, a saved-session sidebar, and an
// input box. It owns no chat state of its own: the session client is the
// source of truth, and the model tracks it by subscribing to the transcript
// and directory brokers and folding their events back into the Bubble Tea
// loop as messages. Streamed chunks therefore arrive the same way every
// other update does, and an aborted stream stops repainting the moment its
// transcript is swapped out.
package chat
