package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/crestbank/teller/internal/domain"
)

// ChunkConfig controls document chunking for embeddings.
type ChunkConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// separators is the fixed preference order for recursive splitting: paragraph
// break, line break, sentence end, word boundary, and finally character
// boundary as a last resort.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits Documents into ordered, overlapping Chunks.
type Chunker struct {
	cfg ChunkConfig
}

// NewChunker creates a Chunker, applying defaults for unset or inconsistent
// configuration.
func NewChunker(cfg ChunkConfig) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = DefaultChunkConfig().ChunkOverlap
		if cfg.ChunkOverlap >= cfg.ChunkSize {
			cfg.ChunkOverlap = cfg.ChunkSize / 5
		}
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits one Document into chunks in left-to-right order. Ordinals are
// 0-based; metadata is propagated verbatim from the parent. Chunk texts are
// emitted raw, so concatenating them with the overlap trimmed reconstructs
// the document text exactly. A document shorter than the chunk size yields
// exactly one chunk.
func (c *Chunker) Chunk(doc domain.Document) []domain.Chunk {
	if strings.TrimSpace(doc.RawText) == "" {
		return nil
	}

	texts := splitWithOverlap(doc.RawText, c.cfg.ChunkSize, c.cfg.ChunkOverlap)

	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Ordinal:    i,
			Text:       text,
			Source:     doc.SourceFilename,
			OriginType: doc.OriginType,
			OriginURL:  doc.OriginURL,
			PageNumber: doc.PageNumber,
		})
	}

	return chunks
}

// splitWithOverlap produces chunk texts of at most chunkSize runes. The text
// is first split into atomic pieces at the coarsest separator that keeps
// every piece within bounds; chunks are then windows of whole pieces, with
// each window after the first opening on the trailing pieces of its
// predecessor (at most overlap runes of them).
func splitWithOverlap(text string, chunkSize, overlap int) []string {
	pieces := splitRecursive(text, separators, chunkSize)
	if len(pieces) == 0 {
		return nil
	}

	lengths := make([]int, len(pieces))
	for i, p := range pieces {
		lengths[i] = len([]rune(p))
	}

	var chunks []string
	i := 0
	for i < len(pieces) {
		j := i
		size := 0
		for j < len(pieces) && (j == i || size+lengths[j] <= chunkSize) {
			size += lengths[j]
			j++
		}

		chunks = append(chunks, strings.Join(pieces[i:j], ""))

		if j >= len(pieces) {
			break
		}

		// Back up over whole trailing pieces of this chunk, up to the
		// overlap budget, so the next chunk repeats them for context.
		k := j
		taken := 0
		for k > i+1 && taken+lengths[k-1] <= overlap {
			taken += lengths[k-1]
			k--
		}
		i = k
	}

	return chunks
}

// splitRecursive splits text into pieces no longer than max runes, trying
// separators coarsest-first and recursing into oversized pieces with the
// finer ones. Separators stay attached to the piece they terminate, so the
// pieces concatenate back to the input exactly.
func splitRecursive(text string, seps []string, max int) []string {
	if len([]rune(text)) <= max {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	if len(seps) == 0 || seps[0] == "" {
		return splitRunes(text, max)
	}

	parts := splitAfter(text, seps[0])
	if len(parts) == 1 {
		return splitRecursive(text, seps[1:], max)
	}

	var pieces []string
	for _, part := range parts {
		if len([]rune(part)) > max {
			pieces = append(pieces, splitRecursive(part, seps[1:], max)...)
		} else if part != "" {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// splitAfter splits text after every occurrence of sep, keeping sep at the
// end of the preceding part.
func splitAfter(text, sep string) []string {
	var parts []string
	for {
		idx := strings.Index(text, sep)
		if idx < 0 {
			if text != "" {
				parts = append(parts, text)
			}
			break
		}
		parts = append(parts, text[:idx+len(sep)])
		text = text[idx+len(sep):]
	}
	return parts
}

// splitRunes slices text into consecutive runs of at most max runes.
func splitRunes(text string, max int) []string {
	runes := []rune(text)
	var parts []string
	for start := 0; start < len(runes); start += max {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
