// Package chunker implements the per-format chunking strategies of the
// Ingestion Pipeline: a priority-ordered registry routes a document's
// MIME type to the highest-priority strategy that supports it, with a
// catch-all plain-text strategy always last.
package chunker

import "sort"

// RawChunk is one section-scoped piece of extracted content before
// embedding, as returned by a Strategy.
type RawChunk struct {
	Content            string
	SectionBreadcrumb  []string
	AssociatedImageIDs []string
}

// ExtractedImage is an image pulled out of a document during chunking,
// carried alongside the chunks that reference it.
type ExtractedImage struct {
	ID  string
	URL string
}

// Strategy turns raw document bytes into chunks, per-document extracted
// images, and the concatenated full text (used for title extraction).
type Strategy interface {
	// Supports reports whether this strategy can handle mimeType.
	Supports(mimeType string) bool
	// Priority orders strategies within the Registry; higher runs first.
	Priority() int
	// Chunk extracts chunks, images, and full text from raw document bytes.
	Chunk(raw []byte) (chunks []RawChunk, images []ExtractedImage, fullText string, err error)
}

// Registry selects a Strategy for a MIME type by descending priority,
// falling back to whichever strategy reports Supports(mimeType) == true
// last in priority order — the plain-text strategy is registered with the
// lowest priority and Supports always true.
type Registry struct {
	strategies []Strategy
}

// NewRegistry builds a Registry from strategies, sorted by priority
// descending so Select always tries the most specific supporter first.
func NewRegistry(strategies ...Strategy) *Registry {
	sorted := make([]Strategy, len(strategies))
	copy(sorted, strategies)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() > sorted[j].Priority() })
	return &Registry{strategies: sorted}
}

// Select returns the highest-priority Strategy supporting mimeType, or nil
// if none do (which should never happen once a catch-all is registered).
func (r *Registry) Select(mimeType string) Strategy {
	for _, s := range r.strategies {
		if s.Supports(mimeType) {
			return s
		}
	}
	return nil
}
