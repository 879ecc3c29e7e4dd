package xbrl

import (
	"bytes"
	"strings"
)

// detectWindow bounds how much of the document the detector scans. Inline
// markers live in the head or the first body chunk; instance roots appear
// immediately after the prolog.
const detectWindow = 512 * 1024

var inlineMarkers = []string{
	"xmlns:ix",
	"<ix:",
	":nonfraction",
	":nonnumeric",
	"ix:header",
	"ix:references",
	"ix:resources",
	"ix:hidden",
	"ixbrl-viewer",
	"loadviewer",
}

// Detect classifies the document as inline XBRL, a raw instance, or unknown.
func Detect(data []byte) DocKind {
	window := data
	if len(window) > detectWindow {
		window = window[:detectWindow]
	}
	text := strings.ToLower(string(window))

	for _, marker := range inlineMarkers {
		if strings.Contains(text, marker) {
			return KindInline
		}
	}

	if instanceRoot(text) {
		return KindInstance
	}
	return KindUnknown
}

// instanceRoot reports whether the first element is an xbrl root in any
// namespace prefix.
func instanceRoot(text string) bool {
	rest := text
	for {
		i := strings.IndexByte(rest, '<')
		if i < 0 {
			return false
		}
		rest = rest[i+1:]
		// Skip prolog, comments and doctype.
		if strings.HasPrefix(rest, "?") || strings.HasPrefix(rest, "!") {
			continue
		}
		name := rest
		if j := strings.IndexAny(name, " \t\r\n>/"); j >= 0 {
			name = name[:j]
		}
		if k := strings.IndexByte(name, ':'); k >= 0 {
			name = name[k+1:]
		}
		return name == "xbrl"
	}
}

// looksLikeHTML reports whether the payload opens with an HTML shape. Used to
// sharpen rejection messages only.
func looksLikeHTML(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	lower := strings.ToLower(string(trimmed[:min(len(trimmed), 64)]))
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html")
}
