package domain

import (
	"fmt"
	"time"
)

// MediaType represents the media type of a fetched artifact
type MediaType string

const (
	MediaTypeHTML MediaType = "html"
	MediaTypePDF  MediaType = "pdf"
)

// RawArtifact represents one fetched unit of raw content (a web page
// response or a PDF file). Identity is ContentHash: two URLs yielding
// identical bytes collapse to one stored artifact.
type RawArtifact struct {
	ContentHash string
	SourceURL   string
	MediaType   MediaType
	Bytes       []byte
	FetchedAt   time.Time
}

// ManifestEntry is one row of the append-only acquisition log. Multiple
// entries may reference the same StoredFilename when already-stored content
// is re-discovered from another URL.
type ManifestEntry struct {
	SourceURL      string
	ContentHash    string
	StoredFilename string
	SizeBytes      int64
	HTTPStatus     int
	Timestamp      time.Time
}

// NewManifestEntry creates a new ManifestEntry instance
func NewManifestEntry(sourceURL, contentHash, storedFilename string, sizeBytes int64, httpStatus int, timestamp time.Time) *ManifestEntry {
	return &ManifestEntry{
		SourceURL:      sourceURL,
		ContentHash:    contentHash,
		StoredFilename: storedFilename,
		SizeBytes:      sizeBytes,
		HTTPStatus:     httpStatus,
		Timestamp:      timestamp,
	}
}

// ValidateManifestEntry validates a ManifestEntry instance
func ValidateManifestEntry(e *ManifestEntry) error {
	if e == nil {
		return fmt.Errorf("manifest entry cannot be nil")
	}

	if e.SourceURL == "" {
		return fmt.Errorf("manifest entry SourceURL is required")
	}

	if e.ContentHash == "" {
		return fmt.Errorf("manifest entry ContentHash is required")
	}

	if e.StoredFilename == "" {
		return fmt.Errorf("manifest entry StoredFilename is required")
	}

	if e.SizeBytes < 0 {
		return fmt.Errorf("manifest entry SizeBytes cannot be negative")
	}

	return nil
}

// IsValidMediaType checks if a MediaType is valid
func IsValidMediaType(m MediaType) bool {
	switch m {
	case MediaTypeHTML, MediaTypePDF:
		return true
	}
	return false
}
