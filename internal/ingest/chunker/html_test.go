package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLStrategySupports(t *testing.T) {
	s := NewHTMLStrategy()
	assert.True(t, s.Supports("text/html"))
	assert.False(t, s.Supports("text/markdown"))
}

func TestHTMLStrategyBuildsSectionsAndDropsImages(t *testing.T) {
	s := NewHTMLStrategy()
	raw := []byte(`<html><body>
		<h1>Title</h1>
		<p>Intro text.</p>
		<h2>Section One</h2>
		<p>Body of section one.</p>
		<img src="pic.png">
	</body></html>`)

	chunks, _, fullText, err := s.Chunk(raw)
	assert.NoError(t, err)
	assert.NotEmpty(t, chunks)
	assert.NotContains(t, fullText, "pic.png")

	var sawSectionOne bool
	for _, c := range chunks {
		if len(c.SectionBreadcrumb) == 2 && c.SectionBreadcrumb[1] == "Section One" {
			sawSectionOne = true
			assert.Contains(t, c.Content, "Body of section one")
		}
	}
	assert.True(t, sawSectionOne)
}
