package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestbank/teller/internal/domain"
)

// fakeRunner stands in for pdftotext. Pages in its output are separated by
// form feeds, matching the real tool.
type fakeRunner struct {
	output []byte
	err    error
	calls  [][]string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.err != nil {
		return nil, r.err
	}
	return r.output, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextLoader_OriginURLFromFirstLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "abc123_accounts.txt",
		"https://www.crestbank.com.au/personal/accounts.html\n\nEveryday accounts with no monthly fees.")

	docs, err := NewTextLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "abc123_accounts.txt", doc.ID)
	assert.Equal(t, "abc123_accounts.txt", doc.SourceFilename)
	assert.Equal(t, domain.OriginTypeWebpage, doc.OriginType)
	assert.Equal(t, "https://www.crestbank.com.au/personal/accounts.html", doc.OriginURL)
	assert.Equal(t, "Everyday accounts with no monthly fees.", doc.RawText)
}

func TestTextLoader_NoURLFirstLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "Plain notes without a provenance line.\nSecond line.")

	docs, err := NewTextLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Empty(t, docs[0].OriginURL)
	assert.Equal(t, "Plain notes without a provenance line.\nSecond line.", docs[0].RawText)
}

func TestTextLoader_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.txt", "   \n \n")

	_, err := NewTextLoader().Load(context.Background(), path)
	assert.Error(t, err)
}

func TestPDFLoader_OneDocumentPerPage(t *testing.T) {
	runner := &fakeRunner{output: []byte("Page one text.\fPage two text.\f\fPage four text.\f")}
	l := NewPDFLoaderWithRunner(runner)

	docs, err := l.Load(context.Background(), "/data/pdfs/abc123_rates.pdf")
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "abc123_rates.pdf#page-1", docs[0].ID)
	assert.Equal(t, 1, docs[0].PageNumber)
	assert.Equal(t, "Page one text.", docs[0].RawText)

	assert.Equal(t, "abc123_rates.pdf#page-2", docs[1].ID)
	assert.Equal(t, "Page two text.", docs[1].RawText)

	// Blank page three is skipped but page four keeps its real number.
	assert.Equal(t, "abc123_rates.pdf#page-4", docs[2].ID)
	assert.Equal(t, 4, docs[2].PageNumber)

	for _, doc := range docs {
		assert.Equal(t, domain.OriginTypePDF, doc.OriginType)
		assert.Equal(t, "abc123_rates.pdf", doc.SourceFilename)
	}

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "pdftotext", runner.calls[0][0])
	assert.Contains(t, runner.calls[0], "/data/pdfs/abc123_rates.pdf")
}

func TestPDFLoader_NoExtractableText(t *testing.T) {
	runner := &fakeRunner{output: []byte(" \f \f")}
	l := NewPDFLoaderWithRunner(runner)

	_, err := l.Load(context.Background(), "/data/pdfs/scanned.pdf")
	assert.ErrorContains(t, err, "no extractable text")
}

func TestPDFLoader_RunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	l := NewPDFLoaderWithRunner(runner)

	_, err := l.Load(context.Background(), "/data/pdfs/broken.pdf")
	assert.ErrorContains(t, err, "pdftotext failed")
}

func TestRegistry_ForPath(t *testing.T) {
	r := NewRegistry()

	assert.IsType(t, &TextLoader{}, r.ForPath("/data/site_text/abc_page.txt"))
	assert.IsType(t, &PDFLoader{}, r.ForPath("/data/pdfs/abc_doc.PDF"))
	assert.Nil(t, r.ForPath("/data/manifest.json"))
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "site_text"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pdfs"), 0o755))

	writeFile(t, filepath.Join(dir, "site_text"), "a_page.txt",
		"https://www.crestbank.com.au/a.html\n\nPage A text.")
	writeFile(t, filepath.Join(dir, "site_text"), "b_page.txt",
		"https://www.crestbank.com.au/b.html\n\nPage B text.")
	writeFile(t, filepath.Join(dir, "pdfs"), "c_doc.pdf", "raw pdf bytes")
	writeFile(t, dir, "README.md", "not an artifact")

	runner := &fakeRunner{output: []byte("PDF page text.")}
	r := NewRegistryWithLoaders(NewTextLoader(), NewPDFLoaderWithRunner(runner))

	docs, err := r.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// Walk order is sorted by path: pdfs/ before site_text/.
	assert.Equal(t, "c_doc.pdf#page-1", docs[0].ID)
	assert.Equal(t, "a_page.txt", docs[1].ID)
	assert.Equal(t, "b_page.txt", docs[2].ID)
}

func TestRegistry_LoadDir_SkipsFailingArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "https://www.crestbank.com.au/g.html\n\nGood page text.")
	writeFile(t, dir, "broken.pdf", "raw pdf bytes")

	runner := &fakeRunner{err: errors.New("exit status 1")}
	r := NewRegistryWithLoaders(NewTextLoader(), NewPDFLoaderWithRunner(runner))

	docs, err := r.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.txt", docs[0].ID)
}

func TestRegistry_LoadDir_MissingDirectory(t *testing.T) {
	r := NewRegistry()
	_, err := r.LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
