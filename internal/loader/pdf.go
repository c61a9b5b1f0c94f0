package loader

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/crestbank/teller/internal/domain"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFLoader extracts page text from PDF artifacts with pdftotext, producing
// one Document per page in page order. pdftotext separates pages with a
// form-feed character.
type PDFLoader struct {
	runner CommandRunner
}

func NewPDFLoader() *PDFLoader {
	return &PDFLoader{runner: execRunner{}}
}

// NewPDFLoaderWithRunner creates a PDFLoader over an explicit runner, used in tests.
func NewPDFLoaderWithRunner(runner CommandRunner) *PDFLoader {
	return &PDFLoader{runner: runner}
}

func (l *PDFLoader) Load(ctx context.Context, path string) ([]domain.Document, error) {
	// -layout keeps column text readable; "-" writes to stdout.
	out, err := l.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	filename := filepath.Base(path)
	pages := strings.Split(string(out), "\f")

	var documents []domain.Document
	for i, page := range pages {
		text := strings.TrimSpace(page)
		if text == "" {
			continue
		}

		doc := domain.Document{
			ID:             fmt.Sprintf("%s#page-%d", filename, i+1),
			SourceFilename: filename,
			OriginType:     domain.OriginTypePDF,
			PageNumber:     i + 1,
			RawText:        text,
		}
		if err := domain.ValidateDocument(&doc); err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("no extractable text in %s", filename)
	}

	return documents, nil
}
