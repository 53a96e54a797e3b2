package chunker

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLStrategy chunks HTML documents the same way the Markdown strategy
// chunks Markdown: headings (h1-h6) build the section hierarchy, block-level
// text accumulates into the current section, <img> tags are dropped rather
// than followed.
type HTMLStrategy struct{}

// NewHTMLStrategy builds an HTML chunking strategy.
func NewHTMLStrategy() *HTMLStrategy {
	return &HTMLStrategy{}
}

func (s *HTMLStrategy) Supports(mimeType string) bool {
	switch mimeType {
	case "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

func (s *HTMLStrategy) Priority() int { return 20 }

var headingSelector = "h1, h2, h3, h4, h5, h6, p, li, pre, blockquote"

func (s *HTMLStrategy) Chunk(raw []byte) ([]RawChunk, []ExtractedImage, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, "", fmt.Errorf("chunker: parse html: %w", err)
	}
	doc.Find("script, style, img").Remove()

	var chunks []RawChunk
	var fullText strings.Builder
	var current *RawChunk
	var stack []string

	flush := func(content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		if current == nil {
			chunks = append(chunks, RawChunk{Content: content})
			return
		}
		if current.Content != "" {
			current.Content += "\n\n"
		}
		current.Content += content
	}

	doc.Find("body").Find(headingSelector).Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}

		if level, ok := headingLevel(tag); ok {
			if current != nil {
				chunks = append(chunks, *current)
			}
			if level > len(stack)+1 {
				level = len(stack) + 1
			}
			stack = append(stack[:level-1], text)
			breadcrumb := make([]string, len(stack))
			copy(breadcrumb, stack)
			current = &RawChunk{SectionBreadcrumb: breadcrumb}
			return
		}

		flush(text)
		fullText.WriteString(text)
		fullText.WriteString("\n\n")
	})
	if current != nil {
		chunks = append(chunks, *current)
	}

	var out []RawChunk
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) != "" {
			out = append(out, c)
		}
	}

	return out, nil, fullText.String(), nil
}

func headingLevel(tag string) (int, bool) {
	switch tag {
	case "h1":
		return 1, true
	case "h2":
		return 2, true
	case "h3":
		return 3, true
	case "h4":
		return 4, true
	case "h5":
		return 5, true
	case "h6":
		return 6, true
	default:
		return 0, false
	}
}
