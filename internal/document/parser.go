package document

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Parser 文档解析器接口
// 负责将不同格式的文档解析为纯文本
type Parser interface {
	// Parse 解析文档内容，返回文本
	Parse(data []byte) (string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ErrUnsupportedType 不支持的文档类型
var ErrUnsupportedType = errors.New("unsupported document type")

// ExtractionError 文档文本提取失败
type ExtractionError struct {
	Type ContentType // 文档类型
	Err  error       // 底层错误
}

// Error 实现error接口
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Type, e.Err)
}

// Unwrap 返回底层错误
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func extractionErr(t ContentType, format string, args ...interface{}) error {
	return &ExtractionError{Type: t, Err: fmt.Errorf(format, args...)}
}

// NewParser 根据文档类型创建解析器
func NewParser(t ContentType) (Parser, error) {
	switch t {
	case PDF:
		return NewPDFParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	default:
		return nil, &ExtractionError{Type: t, Err: ErrUnsupportedType}
	}
}

// DetectContentType 根据MIME类型和文件名确定内容类型
// MIME类型优先，无法识别时退回到扩展名
func DetectContentType(contentType, filename string) ContentType {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch mediaType {
			case "application/pdf":
				return PDF
			case "text/markdown", "text/x-markdown":
				return Markdown
			case "text/plain":
				if t := detectByExtension(filename); t == Markdown {
					return Markdown
				}
				return PlainText
			}
		}
	}

	return detectByExtension(filename)
}

// detectByExtension 根据文件扩展名检测内容类型
func detectByExtension(filename string) ContentType {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// Extract 从上传的文档内容中提取纯文本
// 任何格式错误都以 *ExtractionError 返回
func Extract(data []byte, contentType, filename string) (string, error) {
	t := DetectContentType(contentType, filename)

	parser, err := NewParser(t)
	if err != nil {
		return "", err
	}

	if len(data) == 0 {
		return "", extractionErr(t, "empty document")
	}

	text, err := parser.Parse(data)
	if err != nil {
		var extErr *ExtractionError
		if errors.As(err, &extErr) {
			return "", err
		}
		return "", &ExtractionError{Type: t, Err: err}
	}

	return text, nil
}
