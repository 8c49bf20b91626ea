package document

import (
	"bytes"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFParser PDF文档解析器
// 先用pdfcpu做结构校验，再逐页提取文本
type PDFParser struct {
	conf *model.Configuration
}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser() Parser {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFParser{conf: conf}
}

// Parse 解析PDF内容并提取其文本
func (p *PDFParser) Parse(data []byte) (text string, err error) {
	pages, err := p.PageCount(data)
	if err != nil {
		return "", err
	}
	if pages == 0 {
		return "", extractionErr(PDF, "document has no pages")
	}

	// 损坏的内容流可能导致底层库panic
	defer func() {
		if r := recover(); r != nil {
			text, err = "", extractionErr(PDF, "malformed content: %v", r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extractionErr(PDF, "open: %v", err)
	}

	var allText strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", extractionErr(PDF, "page %d: %v", i, err)
		}
		allText.WriteString(pageText)
		allText.WriteString("\n")
	}

	result := strings.TrimSpace(allText.String())
	if result == "" {
		return "", extractionErr(PDF, "no text content found in PDF")
	}
	return result, nil
}

// PageCount 校验PDF结构并返回页数
func (p *PDFParser) PageCount(data []byte) (int, error) {
	rs := bytes.NewReader(data)
	if err := pdfapi.Validate(rs, p.conf); err != nil {
		return 0, extractionErr(PDF, "validate: %v", err)
	}

	if _, err := rs.Seek(0, 0); err != nil {
		return 0, fmt.Errorf("rewind pdf: %w", err)
	}
	n, err := pdfapi.PageCount(rs, p.conf)
	if err != nil {
		return 0, extractionErr(PDF, "page count: %v", err)
	}
	return n, nil
}
