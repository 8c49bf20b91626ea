package document

import (
	"bytes"
	"unicode/utf8"
)

// PlainTextParser 纯文本解析器
type PlainTextParser struct{}

// NewPlainTextParser 创建一个新的纯文本解析器
func NewPlainTextParser() Parser {
	return &PlainTextParser{}
}

// Parse 校验编码并去掉BOM
func (p *PlainTextParser) Parse(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", extractionErr(PlainText, "content is not valid UTF-8")
	}
	return string(data), nil
}
