package document

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownParser Markdown文档解析器
type MarkdownParser struct{}

// NewMarkdownParser 创建新的Markdown解析器
func NewMarkdownParser() Parser {
	return &MarkdownParser{}
}

// Parse 渲染Markdown后去掉标记，保留段落结构
func (p *MarkdownParser) Parse(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", extractionErr(Markdown, "content is not valid UTF-8")
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)
	doc := mdParser.Parse(data)

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	htmlContent := markdown.Render(doc, renderer)

	return extractTextFromHTML(string(htmlContent)), nil
}

var (
	blockBreak = strings.NewReplacer(
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
		"</p>", "\n\n", "<li>", "- ", "</li>", "\n",
		"</ul>", "\n", "</ol>", "\n", "</pre>", "\n\n",
		"</h1>", "\n\n", "</h2>", "\n\n", "</h3>", "\n\n",
		"</h4>", "\n\n", "</h5>", "\n\n", "</h6>", "\n\n",
	)
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
	inlineSpace = regexp.MustCompile(`[ \t]+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
	entities    = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'")
)

// extractTextFromHTML 从渲染结果中提取纯文本
func extractTextFromHTML(h string) string {
	result := blockBreak.Replace(h)
	result = htmlTag.ReplaceAllString(result, "")
	result = entities.Replace(result)

	lines := strings.Split(result, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	result = strings.Join(lines, "\n")
	result = blankLines.ReplaceAllString(result, "\n\n")

	return strings.TrimSpace(result)
}
