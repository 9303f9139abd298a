package redstone

import (
	"strings"
)

// ChunkKind names a region of a combined source file.
type ChunkKind string

const (
	ChunkServer   ChunkKind = "server"
	ChunkClient   ChunkKind = "client"
	ChunkUI       ChunkKind = "ui"
	ChunkCSS      ChunkKind = "css"
	ChunkSettings ChunkKind = "settings"
)

var chunkKinds = []ChunkKind{ChunkServer, ChunkClient, ChunkUI, ChunkCSS, ChunkSettings}

// Marker returns the comment that opens a chunk of kind k.
func (k ChunkKind) Marker() string { return "/* @" + string(k) + " */" }

// Chunks is a source file split by chunk markers. Each list keeps the order
// in which its chunks appear. Unknown holds text before the first marker.
type Chunks struct {
	Server   []string
	Client   []string
	UI       []string
	CSS      []string
	Settings []string
	Unknown  []string
}

func (c *Chunks) add(kind ChunkKind, text string) {
	switch kind {
	case ChunkServer:
		c.Server = append(c.Server, text)
	case ChunkClient:
		c.Client = append(c.Client, text)
	case ChunkUI:
		c.UI = append(c.UI, text)
	case ChunkCSS:
		c.CSS = append(c.CSS, text)
	case ChunkSettings:
		c.Settings = append(c.Settings, text)
	}
}

// Split cuts src at every chunk marker. A chunk runs from the end of its
// marker to the next marker or the end of input. A source without markers is
// all UI.
func Split(src string) Chunks {
	var chunks Chunks
	kind, at := nextMarker(src)
	if at < 0 {
		chunks.UI = []string{src}
		return chunks
	}
	if lead := src[:at]; strings.TrimSpace(lead) != "" {
		chunks.Unknown = append(chunks.Unknown, lead)
	}
	for at >= 0 {
		rest := src[at+len(kind.Marker()):]
		nextKind, next := nextMarker(rest)
		body := rest
		if next >= 0 {
			body = rest[:next]
		}
		chunks.add(kind, body)
		src, kind, at = rest, nextKind, next
	}
	return chunks
}

// nextMarker finds the earliest marker in s.
func nextMarker(s string) (ChunkKind, int) {
	var kind ChunkKind
	at := -1
	for _, k := range chunkKinds {
		if i := strings.Index(s, k.Marker()); i >= 0 && (at < 0 || i < at) {
			kind, at = k, i
		}
	}
	return kind, at
}

// UISource joins the UI chunks into one document. Each chunk's first line
// break, which follows its marker, is dropped.
func (c *Chunks) UISource() string {
	parts := make([]string, 0, len(c.UI))
	for _, ui := range c.UI {
		parts = append(parts, strings.TrimPrefix(strings.TrimPrefix(ui, "\r"), "\n"))
	}
	return strings.Join(parts, "\n")
}

// CSSSource joins the CSS chunks, trimmed.
func (c *Chunks) CSSSource() string {
	var parts []string
	for _, css := range c.CSS {
		if s := strings.TrimSpace(css); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
