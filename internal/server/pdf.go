// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/model"
)

// pdfLineWidth is the rough character count per rendered line.
const pdfLineWidth = 90

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req api.SessionKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	messages, err := s.store.Messages(req.SessionKey)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	title, err := s.store.Title(req.SessionKey)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	blob := renderPDF(title, messages)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="chat.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob); err != nil {
		s.logger.Printf("EXPORT_WRITE_FAILED | session=%s error=%v", req.SessionKey, err)
	}
}

// renderPDF builds a single-page PDF of the transcript. The output is a
// genuinely parseable document: header, catalog, page tree, one content
// stream of Tj text operators, xref table, and trailer.
func renderPDF(title string, messages []model.Message) []byte {
	lines := []string{title, ""}
	for _, msg := range messages {
		prefix := "You: "
		if msg.IsBot() {
			prefix = "Bot: "
		}
		lines = append(lines, wrapText(prefix+msg.Text, pdfLineWidth)...)
		lines = append(lines, "")
	}

	var content bytes.Buffer
	content.WriteString("BT\n/F1 11 Tf\n50 780 Td\n13 TL\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj\nT*\n", escapePDFText(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefStart)

	return out.Bytes()
}

// escapePDFText escapes the characters that terminate a PDF string literal.
func escapePDFText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return s
}

// wrapText splits s into lines of at most width characters, breaking on
// word boundaries where possible.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
