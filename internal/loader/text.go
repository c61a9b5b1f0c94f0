package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crestbank/teller/internal/domain"
)

// TextLoader loads crawled page text files. The first line, when it is a
// URL, is the page's origin and is excluded from the document text.
type TextLoader struct{}

func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

func (l *TextLoader) Load(ctx context.Context, path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text artifact: %w", err)
	}

	content := string(data)
	filename := filepath.Base(path)

	var originURL string
	text := content
	if line, rest, found := strings.Cut(content, "\n"); found || line != "" {
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			originURL = strings.TrimSpace(line)
			text = rest
		}
	}

	doc := domain.Document{
		ID:             filename,
		SourceFilename: filename,
		OriginType:     domain.OriginTypeWebpage,
		OriginURL:      originURL,
		RawText:        strings.TrimSpace(text),
	}

	if err := domain.ValidateDocument(&doc); err != nil {
		return nil, err
	}

	return []domain.Document{doc}, nil
}
