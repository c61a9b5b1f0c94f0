// Package loader converts stored raw artifacts into normalized Document
// records. One Loader implementation exists per media type; loading is
// dispatched on the artifact's file extension.
package loader

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crestbank/teller/internal/domain"
)

// Loader converts one stored artifact file into Documents. PDF artifacts
// produce one Document per page; text artifacts produce exactly one.
type Loader interface {
	Load(ctx context.Context, path string) ([]domain.Document, error)
}

// Registry dispatches loading by media type.
type Registry struct {
	text Loader
	pdf  Loader
}

// NewRegistry creates a Registry with the default loaders.
func NewRegistry() *Registry {
	return &Registry{
		text: NewTextLoader(),
		pdf:  NewPDFLoader(),
	}
}

// NewRegistryWithLoaders creates a Registry over explicit loaders, used in tests.
func NewRegistryWithLoaders(text, pdf Loader) *Registry {
	return &Registry{text: text, pdf: pdf}
}

// ForPath returns the loader responsible for the given file, or nil when the
// file is not a supported artifact type.
func (r *Registry) ForPath(path string) Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return r.text
	case ".pdf":
		return r.pdf
	default:
		return nil
	}
}

// LoadDir walks a corpus directory tree and loads every supported artifact.
// A load failure for one artifact is logged and skipped; it never aborts the
// batch.
func (r *Registry) LoadDir(ctx context.Context, dir string) ([]domain.Document, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if r.ForPath(path) != nil {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var documents []domain.Document
	for _, path := range paths {
		docs, err := r.ForPath(path).Load(ctx, path)
		if err != nil {
			log.Printf("loader: skipping %s: %v", filepath.Base(path), err)
			continue
		}
		documents = append(documents, docs...)
	}

	return documents, nil
}
