package domain

import (
	"fmt"
	"strings"
)

// OriginType records where a document's text came from
type OriginType string

const (
	OriginTypeWebpage OriginType = "webpage"
	OriginTypePDF     OriginType = "pdf"
)

// Document is a normalized text record produced from exactly one RawArtifact.
// A multi-page PDF yields one Document per page. Immutable once created.
type Document struct {
	ID             string
	SourceFilename string
	OriginType     OriginType
	OriginURL      string // optional, empty when the source carried no URL
	PageNumber     int    // 1-based for PDF pages, 0 otherwise
	RawText        string
}

// Chunk is a bounded, overlapping text segment produced from a Document for
// indexing. Chunks from one Document carry increasing Ordinal values and,
// concatenated with overlap removed, reconstruct the parent's text.
type Chunk struct {
	ID         string
	DocumentID string
	Ordinal    int
	Text       string

	// Metadata inherited verbatim from the parent Document.
	Source     string
	OriginType OriginType
	OriginURL  string
	PageNumber int
}

// Metadata returns the chunk's citation metadata as a generic map, the shape
// returned to callers as a source reference.
func (c *Chunk) Metadata() map[string]interface{} {
	m := map[string]interface{}{
		"source":  c.Source,
		"type":    string(c.OriginType),
		"ordinal": c.Ordinal,
	}
	if c.OriginURL != "" {
		m["url"] = c.OriginURL
	}
	if c.OriginType == OriginTypePDF {
		m["page"] = c.PageNumber
	}
	return m
}

// EmbeddedChunk pairs a chunk with its embedding vector, ready for indexing.
type EmbeddedChunk struct {
	Chunk     Chunk
	Embedding []float32
}

// SearchResult is one retrieved chunk with its similarity score, higher
// meaning closer.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.SourceFilename == "" {
		return fmt.Errorf("document SourceFilename is required")
	}

	if !isValidOriginType(d.OriginType) {
		return fmt.Errorf("document OriginType is invalid: %s", d.OriginType)
	}

	if d.OriginType == OriginTypePDF && d.PageNumber < 1 {
		return fmt.Errorf("document PageNumber must be at least 1 for pdf documents")
	}

	if strings.TrimSpace(d.RawText) == "" {
		return fmt.Errorf("document RawText is required")
	}

	return nil
}

// isValidOriginType checks if an OriginType is valid
func isValidOriginType(t OriginType) bool {
	switch t {
	case OriginTypeWebpage, OriginTypePDF:
		return true
	}
	return false
}
