package document

import (
	"fmt"
	"os"
	"strings"

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

// Parse 解析Markdown文件并提取文本内容
// 整个文件作为一个文本单元返回
func (p *MarkdownParser) Parse(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown file: %v", err)
	}

	// 先渲染为HTML再剥离标签，保留段落结构
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)
	doc := mdParser.Parse(content)

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	htmlContent := markdown.Render(doc, renderer)

	plainText := stripHTML(string(htmlContent))
	if plainText == "" {
		return nil, fmt.Errorf("no text content found in markdown file")
	}
	return []string{plainText}, nil
}

// blockTags 需要转换为段落/行分隔的HTML标签
var blockTags = []struct {
	Old string
	New string
}{
	{"<br>", "\n"},
	{"<br/>", "\n"},
	{"<br />", "\n"},
	{"</p>", "\n\n"},
	{"<li>", "- "},
	{"</li>", "\n"},
	{"</h1>", "\n\n"},
	{"</h2>", "\n\n"},
	{"</h3>", "\n\n"},
	{"</h4>", "\n\n"},
	{"</h5>", "\n\n"},
	{"</h6>", "\n\n"},
}

// stripHTML 从HTML中提取纯文本
// 简化实现：块级标签转为分隔符，其余标签直接移除
func stripHTML(content string) string {
	for _, t := range blockTags {
		content = strings.ReplaceAll(content, t.Old, t.New)
	}

	var sb strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteRune(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}

	return normalizeWhitespace(sb.String())
}

// normalizeWhitespace 规范化文本中的空白符
// 保留段落边界（空行），折叠行内多余空白
func normalizeWhitespace(text string) string {
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")

	var cleaned []string
	for _, p := range paragraphs {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "\n\n")
}
