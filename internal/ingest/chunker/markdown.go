package chunker

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownStrategy walks the document AST: headings build the section
// hierarchy, paragraphs/lists/code blocks accumulate into the current
// section, external image refs are skipped.
type MarkdownStrategy struct {
	md goldmark.Markdown
}

// NewMarkdownStrategy builds a Markdown chunking strategy over goldmark's
// default CommonMark parser.
func NewMarkdownStrategy() *MarkdownStrategy {
	return &MarkdownStrategy{md: goldmark.New()}
}

func (s *MarkdownStrategy) Supports(mimeType string) bool {
	switch mimeType {
	case "text/markdown", "text/x-markdown":
		return true
	default:
		return false
	}
}

func (s *MarkdownStrategy) Priority() int { return 20 }

type markdownSection struct {
	breadcrumb []string
	content    strings.Builder
}

func (s *MarkdownStrategy) Chunk(raw []byte) ([]RawChunk, []ExtractedImage, string, error) {
	doc := s.md.Parser().Parse(text.NewReader(raw))

	var sections []*markdownSection
	current := &markdownSection{}
	sections = append(sections, current)

	var stack []string // current heading breadcrumb, indexed by level-1

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			label := headingText(node, raw)
			level := node.Level
			if level > len(stack)+1 {
				level = len(stack) + 1
			}
			stack = append(stack[:level-1], label)

			breadcrumb := make([]string, len(stack))
			copy(breadcrumb, stack)
			current = &markdownSection{breadcrumb: breadcrumb}
			sections = append(sections, current)
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.List, *ast.ListItem, *ast.FencedCodeBlock, *ast.CodeBlock, *ast.Blockquote:
			if content := blockText(node, raw); content != "" {
				if current.content.Len() > 0 {
					current.content.WriteString("\n\n")
				}
				current.content.WriteString(content)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("chunker: walk markdown ast: %w", err)
	}

	var chunks []RawChunk
	var fullText strings.Builder
	for _, sec := range sections {
		content := strings.TrimSpace(sec.content.String())
		if content == "" {
			continue
		}
		chunks = append(chunks, RawChunk{Content: content, SectionBreadcrumb: sec.breadcrumb})
		fullText.WriteString(content)
		fullText.WriteString("\n\n")
	}

	return chunks, nil, fullText.String(), nil
}

func headingText(n *ast.Heading, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
	}
	return strings.TrimSpace(sb.String())
}

// linesNode is satisfied by any goldmark block whose content lives in raw
// source lines rather than inline child nodes (code blocks).
type linesNode interface {
	Lines() *text.Segments
}

// blockText renders a block's own text, skipping embedded images since
// external image refs are dropped by the Markdown strategy.
func blockText(n ast.Node, source []byte) string {
	var sb bytes.Buffer
	writeLines := func(node linesNode) {
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			sb.Write(lines.At(i).Value(source))
		}
	}

	var walk func(ast.Node)
	walk = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.Image:
				continue
			case *ast.Text:
				sb.Write(v.Segment.Value(source))
				if v.SoftLineBreak() || v.HardLineBreak() {
					sb.WriteString("\n")
				}
			case *ast.FencedCodeBlock:
				writeLines(v)
			case *ast.CodeBlock:
				writeLines(v)
			default:
				walk(v)
			}
		}
	}

	if ln, ok := n.(linesNode); ok {
		switch n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			writeLines(ln)
			return strings.TrimSpace(sb.String())
		}
	}
	walk(n)

	return strings.TrimSpace(sb.String())
}
