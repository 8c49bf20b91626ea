package document

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createPDF 生成包含指定文本的PDF
func createPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		pdf.MultiCell(0, 10, text, "", "", false)
	}

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestPlainTextParser(t *testing.T) {
	content := "Hello, this is a plain text file.\nSecond line."

	text, err := NewPlainTextParser().Parse([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, content, text)

	// BOM会被去掉
	text, err = NewPlainTextParser().Parse(append([]byte("\xef\xbb\xbf"), content...))
	require.NoError(t, err)
	assert.Equal(t, content, text)

	_, err = NewPlainTextParser().Parse([]byte{0xff, 0xfe, 0xfd})
	var extErr *ExtractionError
	assert.ErrorAs(t, err, &extErr)
}

func TestMarkdownParser(t *testing.T) {
	content := "# Title\n\nThis is a **markdown** file.\n\n- Item 1\n- Item 2"

	text, err := NewMarkdownParser().Parse([]byte(content))
	require.NoError(t, err)

	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "This is a markdown file.")
	assert.Contains(t, text, "- Item 1")
	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, "**")
}

func TestPDFParser(t *testing.T) {
	data := createPDF(t, "This is a PDF test.", "Second page content.")

	parser := NewPDFParser().(*PDFParser)
	pages, err := parser.PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	text, err := parser.Parse(data)
	require.NoError(t, err)
	assert.Contains(t, text, "PDF test")
	assert.Contains(t, text, "Second page")
}

func TestPDFParserMalformed(t *testing.T) {
	_, err := NewPDFParser().Parse([]byte("%PDF-1.4\nthis is not really a pdf"))
	require.Error(t, err)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, PDF, extErr.Type)
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		contentType string
		filename    string
		expected    ContentType
	}{
		{"application/pdf", "paper.bin", PDF},
		{"text/plain; charset=utf-8", "notes.txt", PlainText},
		{"text/plain", "README.md", Markdown},
		{"text/markdown", "", Markdown},
		{"", "paper.PDF", PDF},
		{"application/octet-stream", "notes.txt", PlainText},
		{"", "image.png", Unknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectContentType(tt.contentType, tt.filename), "%s %s", tt.contentType, tt.filename)
	}
}

func TestExtract(t *testing.T) {
	t.Run("pdf", func(t *testing.T) {
		text, err := Extract(createPDF(t, "PDF content"), "application/pdf", "doc.pdf")
		require.NoError(t, err)
		assert.Contains(t, text, "PDF content")
	})

	t.Run("plain text", func(t *testing.T) {
		text, err := Extract([]byte("plain text"), "text/plain", "doc.txt")
		require.NoError(t, err)
		assert.Equal(t, "plain text", text)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Extract([]byte{0x89, 'P', 'N', 'G'}, "image/png", "img.png")
		var extErr *ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.True(t, errors.Is(err, ErrUnsupportedType))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Extract(nil, "text/plain", "doc.txt")
		var extErr *ExtractionError
		assert.ErrorAs(t, err, &extErr)
	})
}
