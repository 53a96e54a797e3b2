package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStrategy struct {
	mime     string
	priority int
}

func (f *fakeStrategy) Supports(mimeType string) bool { return mimeType == f.mime }
func (f *fakeStrategy) Priority() int                 { return f.priority }
func (f *fakeStrategy) Chunk(raw []byte) ([]RawChunk, []ExtractedImage, string, error) {
	return nil, nil, "", nil
}

func TestRegistrySelectsHighestPrioritySupporter(t *testing.T) {
	md := &fakeStrategy{mime: "text/markdown", priority: 20}
	plain := &fakeStrategy{mime: "*", priority: 0}
	// plain's Supports doesn't match "*" literally, swap in a catch-all.
	catchAll := catchAllStrategy{priority: 0}

	registry := NewRegistry(md, catchAll)
	assert.Same(t, Strategy(md), registry.Select("text/markdown"))
	assert.Equal(t, catchAll, registry.Select("application/pdf"))
	_ = plain
}

type catchAllStrategy struct{ priority int }

func (c catchAllStrategy) Supports(mimeType string) bool { return true }
func (c catchAllStrategy) Priority() int                 { return c.priority }
func (c catchAllStrategy) Chunk(raw []byte) ([]RawChunk, []ExtractedImage, string, error) {
	return nil, nil, "", nil
}

func TestRegistryReturnsNilWithNoSupporter(t *testing.T) {
	registry := NewRegistry(&fakeStrategy{mime: "text/markdown", priority: 20})
	assert.Nil(t, registry.Select("application/pdf"))
}
