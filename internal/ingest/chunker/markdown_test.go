package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownStrategySupports(t *testing.T) {
	s := NewMarkdownStrategy()
	assert.True(t, s.Supports("text/markdown"))
	assert.False(t, s.Supports("text/plain"))
}

func TestMarkdownStrategyBuildsHeadingHierarchy(t *testing.T) {
	s := NewMarkdownStrategy()
	raw := []byte("# Title\n\nIntro paragraph.\n\n## Section One\n\nContent under section one.\n\n## Section Two\n\nContent under section two.\n")

	chunks, images, fullText, err := s.Chunk(raw)
	assert.NoError(t, err)
	assert.Nil(t, images)
	assert.NotEmpty(t, fullText)
	assert.GreaterOrEqual(t, len(chunks), 2)

	var sawSectionOne bool
	for _, c := range chunks {
		if len(c.SectionBreadcrumb) == 2 && c.SectionBreadcrumb[1] == "Section One" {
			sawSectionOne = true
			assert.Contains(t, c.Content, "Content under section one")
		}
	}
	assert.True(t, sawSectionOne)
}

func TestMarkdownStrategySkipsImages(t *testing.T) {
	s := NewMarkdownStrategy()
	raw := []byte("# Title\n\nSome text ![alt](image.png) more text.\n")

	chunks, _, _, err := s.Chunk(raw)
	assert.NoError(t, err)
	for _, c := range chunks {
		assert.NotContains(t, c.Content, "image.png")
	}
}
