package chunker

import (
	"regexp"
	"strings"

	"github.com/anchoredrag/core/internal/types"
)

// paragraphSplitRegex splits on blank lines.
var paragraphSplitRegex = regexp.MustCompile(`\n\s*\n+`)

// sentenceBoundaryRegex finds a terminator run directly followed by
// whitespace. Go's RE2 engine has no lookbehind, so instead of a
// `(?<=[.!?])\s+` style pattern this captures the terminator in group 1 and
// splits after it rather than discarding it — the terminator stays attached
// to the sentence it ends.
var sentenceBoundaryRegex = regexp.MustCompile(`([.!?])\s+`)

// PlaintextConfig holds the chunking tunables this strategy consumes.
type PlaintextConfig struct {
	MaxChunkChars int
	TokenBudget   int // sliding window budget in estimated tokens per chunk
	OverlapTokens int // token-equivalent tail text carried into the next chunk
}

// DefaultPlaintextConfig matches the reference chunking config.
func DefaultPlaintextConfig() PlaintextConfig {
	return PlaintextConfig{MaxChunkChars: 3500, TokenBudget: 512, OverlapTokens: 50}
}

// PlaintextStrategy is the Tika-equivalent catch-all fallback:
// splits by paragraph, then by sentence boundary for oversize paragraphs,
// then hard-splits any still-oversize sentence, then packs sentences into a
// sliding token-budget window with an overlapping tail.
type PlaintextStrategy struct {
	cfg PlaintextConfig
}

// NewPlaintextStrategy builds the fallback strategy. Priority is always the
// lowest so it only ever wins when nothing more specific supports the MIME
// type.
func NewPlaintextStrategy(cfg PlaintextConfig) *PlaintextStrategy {
	return &PlaintextStrategy{cfg: cfg}
}

func (s *PlaintextStrategy) Supports(mimeType string) bool { return true }
func (s *PlaintextStrategy) Priority() int                 { return 0 }

func (s *PlaintextStrategy) Chunk(raw []byte) ([]RawChunk, []ExtractedImage, string, error) {
	text := string(raw)
	sentences := s.sentences(text)

	var chunks []RawChunk
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		content := strings.TrimSpace(current.String())
		if content == "" {
			return
		}
		// overlapTail prepended to a sentence that was already at or near
		// MaxChunkChars can push the assembled chunk over the limit;
		// hardSplit is a no-op when content already fits.
		for _, piece := range s.hardSplit(content) {
			chunks = append(chunks, RawChunk{Content: piece})
		}
		current.Reset()
		currentTokens = 0
	}

	overlapTail := ""
	for _, sentence := range sentences {
		sentenceTokens := types.EstimateTokenCount(sentence)
		if currentTokens > 0 && currentTokens+sentenceTokens > s.cfg.TokenBudget {
			flush()
			if overlapTail != "" {
				current.WriteString(overlapTail)
				current.WriteString(" ")
				currentTokens += types.EstimateTokenCount(overlapTail)
			}
		}
		current.WriteString(sentence)
		current.WriteString(" ")
		currentTokens += sentenceTokens
		overlapTail = tailTokens(current.String(), s.cfg.OverlapTokens)
	}
	flush()

	return chunks, nil, text, nil
}

// sentences splits text into paragraph-then-sentence units, hard-splitting
// anything still over MaxChunkChars.
func (s *PlaintextStrategy) sentences(text string) []string {
	var out []string
	for _, paragraph := range paragraphSplitRegex.Split(text, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len([]rune(paragraph)) <= s.cfg.MaxChunkChars {
			out = append(out, paragraph)
			continue
		}
		for _, sentence := range splitSentences(paragraph) {
			out = append(out, s.hardSplit(sentence)...)
		}
	}
	return out
}

// hardSplit breaks a sentence still over MaxChunkChars into
// MaxChunkChars-100 rune windows.
func (s *PlaintextStrategy) hardSplit(sentence string) []string {
	limit := s.cfg.MaxChunkChars - 100
	runes := []rune(sentence)
	if len(runes) <= s.cfg.MaxChunkChars || limit <= 0 {
		return []string{sentence}
	}
	var out []string
	for len(runes) > 0 {
		n := limit
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

// splitSentences breaks text on sentence terminators, attaching each
// terminator to the sentence it ends.
func splitSentences(text string) []string {
	parts := sentenceBoundaryRegex.Split(text, -1)
	terms := sentenceBoundaryRegex.FindAllStringSubmatch(text, -1)

	out := make([]string, 0, len(parts))
	for i, part := range parts {
		sentence := part
		if i < len(terms) {
			sentence += terms[i][1]
		}
		sentence = strings.TrimSpace(sentence)
		if sentence != "" {
			out = append(out, sentence)
		}
	}
	return out
}

// tailTokens returns the trailing estimated-tokenCount-bounded slice of s,
// approximated by rune count since the estimate is chars/4.
func tailTokens(s string, tokenBudget int) string {
	runes := []rune(strings.TrimSpace(s))
	maxRunes := tokenBudget * 4
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return string(runes[len(runes)-maxRunes:])
}
