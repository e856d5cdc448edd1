// Package textclean normalises whitespace in extracted document text.
package textclean

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Clean collapses runs of horizontal whitespace into one space, drops control
// characters, converts CRLF to LF, limits blank lines to one and trims the result.
// Paragraph breaks survive so the chunker can still split on them.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	newlines := 0
	for _, r := range s {
		switch {
		case r == '\n':
			pendingSpace = false
			newlines++
			continue
		case r == '\t' || r == ' ' || unicode.Is(unicode.Zs, r):
			pendingSpace = true
			continue
		case unicode.IsControl(r) || r == '\uFEFF':
			continue
		}

		if b.Len() > 0 {
			switch {
			case newlines >= 2:
				b.WriteString("\n\n")
			case newlines == 1:
				b.WriteByte('\n')
			case pendingSpace:
				b.WriteByte(' ')
			}
		}
		newlines = 0
		pendingSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// Truncate shortens s to at most n characters, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// TitleFromPath derives a human-readable title from a file path.
func TitleFromPath(path string) string {
	filename := filepath.Base(path)

	// Remove extension for cleaner title
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	// Replace underscores and dashes with spaces
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}

// CopyMetadata creates a shallow copy of metadata.
// The result is never nil so callers can add keys directly.
func CopyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+2)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
