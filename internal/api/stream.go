// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// STREAM READER
// =============================================================================

// readBufferSize is the per-read buffer for streamed response bodies.
const readBufferSize = 4096

// StreamCallback is called for each text chunk received during streaming.
// Returning an error stops the stream; the error is propagated out of Process.
type StreamCallback func(chunk string) error

// StreamReader consumes a raw chunked UTF-8 response body. The backend sends
// no framing, so read boundaries can split a multi-byte rune; the reader
// carries the incomplete tail bytes into the next read so callbacks only ever
// see valid UTF-8.
type StreamReader struct {
	reader io.Reader
	// carry holds trailing bytes of an incomplete rune between reads
	carry []byte
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	chunkCount  int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: r,
		carry:  make([]byte, 0, utf8.UTFMax),
	}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete, the callback returns an error,
// or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			n, err := s.reader.Read(buf)
			if n > 0 {
				chunk := s.decode(buf[:n])
				if chunk != "" {
					s.accumulator.WriteString(chunk)
					s.chunkCount++
					if cbErr := callback(chunk); cbErr != nil {
						return cbErr
					}
				}
			}
			if err != nil {
				if err == io.EOF {
					// Flush any dangling carry bytes as-is; a truncated
					// rune at end of stream is the backend's bug, not ours.
					if len(s.carry) > 0 {
						tail := string(s.carry)
						s.carry = s.carry[:0]
						s.accumulator.WriteString(tail)
						if cbErr := callback(tail); cbErr != nil {
							return cbErr
						}
					}
					return nil
				}
				return err
			}
		}
	}
}

// decode appends the read bytes to any carried tail and returns the longest
// valid UTF-8 prefix, keeping incomplete trailing rune bytes for the next read.
func (s *StreamReader) decode(b []byte) string {
	data := b
	if len(s.carry) > 0 {
		data = append(s.carry, b...)
		s.carry = make([]byte, 0, utf8.UTFMax)
	}

	// Only the final rune can be incomplete; back up at most UTFMax bytes
	// to its start and hold it over if more bytes are needed.
	end := len(data)
	start := boundaryStart(data, end)
	if !utf8.FullRune(data[start:end]) {
		s.carry = append(s.carry[:0], data[start:end]...)
		end = start
	}

	return string(data[:end])
}

// boundaryStart returns the index of the start of the final (possibly
// incomplete) rune ending at end.
func boundaryStart(data []byte, end int) int {
	start := end - 1
	for start > 0 && end-start < utf8.UTFMax && !utf8.RuneStart(data[start]) {
		start--
	}
	return start
}

// GetAccumulated returns all content received so far.
func (s *StreamReader) GetAccumulated() string {
	return s.accumulator.String()
}

// GetChunkCount returns the number of chunks delivered to the callback.
func (s *StreamReader) GetChunkCount() int {
	return s.chunkCount
}
