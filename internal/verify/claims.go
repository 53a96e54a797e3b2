package verify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

const maxCitedContentChars = 1000

// citationRegex matches [Source N], [N], (Source N), (N), case-insensitive on
// "Source".
var citationRegex = regexp.MustCompile(`(?i)[\[(](?:source\s+)?(\d+)[\])]`)

// sentenceSplitRegex breaks generated text into sentences on a terminator
// followed by whitespace. Go's RE2 engine has no lookbehind, so the
// terminator is consumed and re-attached to the sentence it ends rather than
// matched via a zero-width boundary.
var sentenceSplitRegex = regexp.MustCompile(`([.!?][\s]+|[。！？])`)

// VerificationConfig holds the "Verification" tunables.
type VerificationConfig struct {
	Enabled         bool
	SupportThreshold float64
}

// DefaultVerificationConfig matches the reference config.
func DefaultVerificationConfig() VerificationConfig {
	return VerificationConfig{Enabled: true, SupportThreshold: 0.7}
}

// ClaimScorer asks an LLM how well a sentence is supported by a chunk of
// cited content, returning a score in [0,1].
type ClaimScorer interface {
	ScoreSupport(ctx context.Context, sentence, citedContent string) (float64, error)
}

// LLMClaimScorer implements ClaimScorer over an interfaces.Generator.
type LLMClaimScorer struct {
	generator interfaces.Generator
}

// NewLLMClaimScorer builds a claim scorer backed by a chat generator.
func NewLLMClaimScorer(generator interfaces.Generator) *LLMClaimScorer {
	return &LLMClaimScorer{generator: generator}
}

const scorerSystemPrompt = `You judge whether a sentence is supported by a source passage. Respond with only a number between 0 and 1: 1 means fully supported, 0 means unsupported or contradicted. No words, no punctuation, just the number.`

func (s *LLMClaimScorer) ScoreSupport(ctx context.Context, sentence, citedContent string) (float64, error) {
	messages := []interfaces.ChatTurn{
		{Role: "system", Content: scorerSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Source passage:\n%s\n\nSentence:\n%s", citedContent, sentence)},
	}
	resp, err := s.generator.Chat(ctx, messages)
	if err != nil {
		return 0, err
	}
	score, parseErr := strconv.ParseFloat(strings.TrimSpace(resp.Content), 64)
	if parseErr != nil {
		return 0, fmt.Errorf("verify: parse claim score: %w", parseErr)
	}
	return score, nil
}

// VerifyAnswer implements Answer Verification: parses citation
// markers out of a generated answer, scores each cited sentence's support
// against the chunk it cites, and flags claims below supportThreshold.
// A per-sentence scoring failure defaults the score to 0.5 (uncertain; below
// the default 0.7 threshold, so flagged) rather than aborting verification
// for the whole answer.
func VerifyAnswer(ctx context.Context, answer string, citedChunks []types.ScoredChunk, scorer ClaimScorer, cfg VerificationConfig) []types.ClaimVerification {
	if !cfg.Enabled {
		return nil
	}

	sentences := splitSentences(answer)
	var claims []types.ClaimVerification

	for _, sentence := range sentences {
		refs := citationRegex.FindAllStringSubmatch(sentence, -1)
		if len(refs) == 0 {
			continue
		}

		for _, ref := range refs {
			idx, err := strconv.Atoi(ref[1])
			if err != nil || idx < 1 || idx > len(citedChunks) {
				continue
			}
			chunk := citedChunks[idx-1]
			content := truncate(chunk.Doc.Content, maxCitedContentChars)

			score, err := scorer.ScoreSupport(ctx, sentence, content)
			if err != nil {
				logger.Warnf(ctx, "verify: claim scoring failed, defaulting to uncertain: %v", err)
				score = 0.5
			}
			if score < 0 {
				score = 0
			} else if score > 1 {
				score = 1
			}

			claims = append(claims, types.ClaimVerification{
				Sentence:  strings.TrimSpace(sentence),
				SourceRef: ref[0],
				Score:     score,
				Flagged:   score < cfg.SupportThreshold,
			})
		}
	}
	return claims
}

// Verifier bundles a ClaimScorer with its VerificationConfig so callers (the
// conversation Core) don't need to hold the config separately.
type Verifier struct {
	scorer ClaimScorer
	cfg    VerificationConfig
}

// NewVerifier builds a Verifier.
func NewVerifier(scorer ClaimScorer, cfg VerificationConfig) *Verifier {
	return &Verifier{scorer: scorer, cfg: cfg}
}

// Verify runs Answer Verification over one generated answer.
func (v *Verifier) Verify(ctx context.Context, answer string, citedChunks []types.ScoredChunk) []types.ClaimVerification {
	return VerifyAnswer(ctx, answer, citedChunks, v.scorer, v.cfg)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// splitSentences breaks text on sentence terminators, keeping the
// terminator attached to the sentence it ends.
func splitSentences(text string) []string {
	parts := sentenceSplitRegex.Split(text, -1)
	seps := sentenceSplitRegex.FindAllString(text, -1)

	sentences := make([]string, 0, len(parts))
	for i, part := range parts {
		sentence := part
		if i < len(seps) {
			sentence += seps[i]
		}
		sentence = strings.TrimSpace(sentence)
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}
	return sentences
}
