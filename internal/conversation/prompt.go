package conversation

import (
	"fmt"
	"strings"

	"github.com/anchoredrag/core/internal/types"
)

const commonPreamble = "You are a helpful AI assistant for document Q&A. "

const modeExploring = "In EXPLORING mode, encourage broad discovery. Suggest related topics and connections. Help the user discover new insights from their documents."
const modeResearch = "In RESEARCH mode, focus on precision and citations. Always cite specific sources. Provide fact-focused, accurate responses with clear references."
const modeLearning = "In LEARNING mode, use the Socratic method. Ask clarifying questions. Build understanding progressively. Explain concepts step by step."
const modeDefault = "Provide helpful, accurate responses based on the available information."
const groundingSuffix = "\n\nProvide helpful, accurate responses based on the available information. If you don't know something or it's not in the provided context, say so clearly."

// systemPrompt builds the mode-specific system prompt, appending the
// document context block (if any) followed by the grounding suffix.
func systemPrompt(mode types.Mode, contextBlock string) string {
	var sb strings.Builder
	sb.WriteString(commonPreamble)

	switch mode {
	case types.ModeExploring:
		sb.WriteString(modeExploring)
	case types.ModeResearch:
		sb.WriteString(modeResearch)
	case types.ModeLearning:
		sb.WriteString(modeLearning)
	default:
		sb.WriteString(modeDefault)
	}

	if contextBlock != "" {
		sb.WriteString("\n\n")
		sb.WriteString(contextBlock)
		sb.WriteString(groundingSuffix)
	}
	return sb.String()
}

// buildContextBlock renders the "Context block format" from a search's
// final results. An empty result set returns "" so the caller skips the
// document-context section entirely.
func buildContextBlock(results []types.ScoredChunk) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("=== DOCUMENT CONTEXT ===\n")
	for i, sc := range results {
		sb.WriteString(fmt.Sprintf("[Source %d: %s", i+1, sc.Doc.FileName))
		if sc.Doc.DocumentTitle != "" && sc.Doc.DocumentTitle != sc.Doc.FileName {
			sb.WriteString(" - ")
			sb.WriteString(sc.Doc.DocumentTitle)
		}
		if sc.Doc.SectionTitle != "" {
			sb.WriteString(" > Section: ")
			sb.WriteString(sc.Doc.SectionTitle)
		}
		sb.WriteString("]\n")
		sb.WriteString(sc.Doc.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("=== DOCUMENT CONTEXT END ===")
	return sb.String()
}

const citationSnippetLen = 100

// citationFor builds the citation event payload for one final-result chunk.
func citationFor(sc types.ScoredChunk) types.Citation {
	snippet := sc.Doc.Content
	if runes := []rune(snippet); len(runes) > citationSnippetLen {
		snippet = string(runes[:citationSnippetLen]) + "..."
	}
	return types.Citation{SourceFileName: sc.Doc.FileName, SourceURL: nil, ContentSnippet: snippet}
}
