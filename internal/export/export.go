// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes downloaded chat exports to disk.
package export

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/util"
)

var (
	ErrEmptyExport = errors.New("backend returned an empty export")
	ErrNotPDF      = errors.New("export is not a PDF document")
)

var pdfMagic = []byte("%PDF")

// PDFPath returns the destination path for a session's PDF export.
func PDFPath(dir, sessionKey string) string {
	return filepath.Join(dir, "chat_"+util.SanitizeFilename(sessionKey)+".pdf")
}

// WritePDF validates the downloaded blob and writes it atomically to
// chat_<sessionKey>.pdf under dir, returning the written path.
func WritePDF(dir, sessionKey string, blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", ErrEmptyExport
	}
	if !bytes.HasPrefix(blob, pdfMagic) {
		return "", ErrNotPDF
	}

	path := PDFPath(dir, sessionKey)
	if err := util.AtomicWriteFile(path, blob, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// SessionPDF downloads a saved session's PDF and writes it under dir.
func SessionPDF(ctx context.Context, client *api.Client, email, sessionKey, dir string) (string, error) {
	blob, err := client.ExportPDF(ctx, email, sessionKey)
	if err != nil {
		return "", err
	}
	return WritePDF(dir, sessionKey, blob)
}
