// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
//
// A Transcript is the ordered, append-mostly message list for the active
// session. The single most-recent bot message is the only entry ever mutated
// in place (streaming chunk concatenation); everything else is immutable once
// appended. Mutations are published through a pubsub broker so that the UI
// layer can observe the transcript without the state machine knowing how it
// is rendered.
package model
