package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anchoredrag/core/internal/types"
)

type fakeScorer struct {
	score float64
	err   error
}

func (f *fakeScorer) ScoreSupport(ctx context.Context, sentence, citedContent string) (float64, error) {
	return f.score, f.err
}

func chunks(contents ...string) []types.ScoredChunk {
	out := make([]types.ScoredChunk, len(contents))
	for i, c := range contents {
		out[i] = types.ScoredChunk{Doc: types.Chunk{ID: string(rune('a' + i)), Content: c}}
	}
	return out
}

func TestVerifyAnswerDoesNotFlagWellSupportedClaims(t *testing.T) {
	answer := "Go was released in 2009 [Source 1]. It has goroutines [2]."
	cited := chunks("Go was released in 2009.", "Channels synchronize goroutines.")

	claims := VerifyAnswer(context.Background(), answer, cited, &fakeScorer{score: 0.9}, DefaultVerificationConfig())
	assert.Len(t, claims, 2)
	for _, c := range claims {
		assert.False(t, c.Flagged)
	}
}

func TestVerifyAnswerFlagsBelowThreshold(t *testing.T) {
	answer := "The sky is green according to the source (1)."
	cited := chunks("The sky is blue.")

	claims := VerifyAnswer(context.Background(), answer, cited, &fakeScorer{score: 0.2}, DefaultVerificationConfig())
	assert.Len(t, claims, 1)
	assert.True(t, claims[0].Flagged)
}

func TestVerifyAnswerDefaultsToUncertainOnScorerError(t *testing.T) {
	answer := "Claim cited here [1]."
	cited := chunks("Some content.")

	claims := VerifyAnswer(context.Background(), answer, cited, &fakeScorer{err: errors.New("boom")}, DefaultVerificationConfig())
	assert.Len(t, claims, 1)
	assert.Equal(t, 0.5, claims[0].Score)
	assert.True(t, claims[0].Flagged)
}

func TestVerifyAnswerDisabledReturnsNil(t *testing.T) {
	cfg := DefaultVerificationConfig()
	cfg.Enabled = false
	claims := VerifyAnswer(context.Background(), "anything [1]", chunks("x"), &fakeScorer{score: 1}, cfg)
	assert.Nil(t, claims)
}

func TestVerifyAnswerIgnoresUncitedSentences(t *testing.T) {
	answer := "This sentence has no citation at all."
	claims := VerifyAnswer(context.Background(), answer, chunks("x"), &fakeScorer{score: 1}, DefaultVerificationConfig())
	assert.Empty(t, claims)
}

func TestVerifyAnswerIgnoresOutOfRangeCitation(t *testing.T) {
	answer := "Claim cited here [5]."
	claims := VerifyAnswer(context.Background(), answer, chunks("only one chunk"), &fakeScorer{score: 1}, DefaultVerificationConfig())
	assert.Empty(t, claims)
}
