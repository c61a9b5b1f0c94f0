// Package contentstore provides deduplicated, content-addressed storage of
// fetched artifacts with an append-only acquisition manifest.
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/crestbank/teller/internal/domain"
)

// ManifestRepository records what was acquired, from where, and when. The
// manifest is append-only: re-discovery of already-stored content produces a
// new entry pointing at the existing filename.
type ManifestRepository interface {
	Append(ctx context.Context, entry *domain.ManifestEntry) error
	FindFilenameByHash(ctx context.Context, contentHash string) (string, error)
}

// ObjectMirror replicates stored artifacts to object storage. Optional.
type ObjectMirror interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
}

// Store is a content-addressed artifact store rooted at a data directory.
// Artifacts land under site_text/ or pdfs/ depending on media type.
type Store struct {
	dir      string
	manifest ManifestRepository
	mirror   ObjectMirror

	// mu serializes hash-check-then-write so concurrent producers of
	// identical bytes cannot both write a file.
	mu sync.Mutex
}

// New creates a Store rooted at dir, creating the media subdirectories.
func New(dir string, manifest ManifestRepository) (*Store, error) {
	for _, sub := range []string{SubdirFor(domain.MediaTypeHTML), SubdirFor(domain.MediaTypePDF)} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return &Store{dir: dir, manifest: manifest}, nil
}

// WithMirror configures an object-storage mirror for newly stored artifacts.
func (s *Store) WithMirror(m ObjectMirror) *Store {
	s.mirror = m
	return s
}

// SubdirFor maps a media type to its storage subdirectory.
func SubdirFor(m domain.MediaType) string {
	if m == domain.MediaTypePDF {
		return "pdfs"
	}
	return "site_text"
}

// Dir returns the directory artifacts of the given media type are stored in.
func (s *Store) Dir(m domain.MediaType) string {
	return filepath.Join(s.dir, SubdirFor(m))
}

// HasHash reports whether an artifact with the given content hash is already
// stored, returning its filename when present.
func (s *Store) HasHash(ctx context.Context, contentHash string) (string, bool, error) {
	filename, err := s.manifest.FindFilenameByHash(ctx, contentHash)
	if err != nil {
		if err == domain.ErrArtifactNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return filename, true, nil
}

// Put stores the artifact bytes under a content-addressed filename and
// appends a manifest entry. When an artifact with the same hash already
// exists, no file is written: the entry references the existing filename.
func (s *Store) Put(ctx context.Context, sourceURL string, mediaType domain.MediaType, httpStatus int, data []byte) (string, error) {
	if !domain.IsValidMediaType(mediaType) {
		return "", domain.ErrInvalidMediaType
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	filename, exists, err := s.HasHash(ctx, contentHash)
	if err != nil {
		return "", fmt.Errorf("failed to check manifest for hash: %w", err)
	}

	if !exists {
		filename = storedFilename(contentHash, sourceURL, mediaType)
		target := filepath.Join(s.Dir(mediaType), filename)
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write artifact: %w", err)
		}

		if s.mirror != nil {
			key := path.Join(SubdirFor(mediaType), filename)
			if err := s.mirror.PutObject(ctx, key, contentTypeFor(mediaType), data); err != nil {
				// Mirroring is best-effort; local storage is authoritative.
				log.Printf("warning: failed to mirror %s: %v", key, err)
			}
		}
	}

	entry := domain.NewManifestEntry(sourceURL, contentHash, filename, int64(len(data)), httpStatus, time.Now().UTC())
	if err := s.manifest.Append(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to append manifest entry: %w", err)
	}

	return filename, nil
}

// storedFilename derives a deterministic, collision-free name from the hash
// prefix plus a sanitized basename of the source URL.
func storedFilename(contentHash, sourceURL string, mediaType domain.MediaType) string {
	ext := ".txt"
	if mediaType == domain.MediaTypePDF {
		ext = ".pdf"
	}

	base := "artifact"
	if u, err := url.Parse(sourceURL); err == nil {
		name := path.Base(u.Path)
		name = strings.TrimSuffix(name, path.Ext(name))
		if sanitized := sanitizeBasename(name); sanitized != "" {
			base = sanitized
		}
	}

	return contentHash[:12] + "_" + base + ext
}

func sanitizeBasename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == '.' || r == ' ':
			b.WriteRune('-')
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

func contentTypeFor(m domain.MediaType) string {
	if m == domain.MediaTypePDF {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}
