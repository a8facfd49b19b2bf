package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-rag/internal/pipeline/common"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessor_ProcessFile_Metadata(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("Transformers rely on self-attention to model long range dependencies.\n\n")
	}
	path := writeFile(t, dir, "notes.md", b.String())

	p := NewProcessor(300, 50, nil)
	chunks, err := p.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, path, c.MetaData[common.MetaSource])
		assert.Equal(t, ".md", c.MetaData[common.MetaFileType])
		assert.Equal(t, "notes.md", c.MetaData[common.MetaFileName])
		assert.Equal(t, i, c.MetaData[common.MetaChunkID])
		assert.Equal(t, len(chunks), c.MetaData[common.MetaTotalChunks])
		assert.NotNil(t, c.MetaData[common.MetaFileSize])
	}
}

func TestProcessor_ProcessFile_Errors(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(0, 0, nil)

	_, err := p.ProcessFile(context.Background(), writeFile(t, dir, "slides.pptx", "x"))
	assert.True(t, errors.Is(err, common.ErrUnsupportedFormat))

	_, err = p.ProcessFile(context.Background(), writeFile(t, dir, "empty.txt", "  \n\t "))
	assert.True(t, errors.Is(err, common.ErrEmptyContent))

	_, err = p.ProcessFile(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	_, err = p.ProcessFile(context.Background(), writeFile(t, dir, "bad.json", "{not json"))
	assert.Error(t, err)
}

func TestProcessor_ProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha document about attention")
	writeFile(t, dir, "nested/b.csv", "name,role\nada,engineer\n")
	writeFile(t, dir, "nested/c.json", `{"title":"paper"}`)
	writeFile(t, dir, "skip.docx", "binary")
	writeFile(t, dir, "empty.md", "")

	results, err := NewProcessor(0, 0, nil).ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 4)

	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		ok++
		assert.NotEmpty(t, r.Chunks)
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 1, failed)

	_, err = NewProcessor(0, 0, nil).ProcessDirectory(context.Background(), filepath.Join(dir, "nope"))
	assert.Error(t, err)
}

func TestFileLoader_SupportedFormats(t *testing.T) {
	l := NewFileLoader()
	assert.Equal(t, []string{".csv", ".json", ".md", ".pdf", ".txt"}, l.SupportedFormats())
	assert.True(t, l.Supported("/x/REPORT.PDF"))
	assert.False(t, l.Supported("image.png"))
}

func TestParseCSV(t *testing.T) {
	text, err := parseCSV([]byte("name,role\nada,engineer\ngrace,admiral\n"))
	require.NoError(t, err)
	assert.Equal(t, "name: ada, role: engineer\nname: grace, role: admiral\n", text)
}

func TestCleanText(t *testing.T) {
	in := "Title\r\n\r\n\r\n\r\nFirst   line\t\twith  spaces  \nsecond"
	assert.Equal(t, "Title\n\nFirst line with spaces\nsecond", CleanText(in))
}
