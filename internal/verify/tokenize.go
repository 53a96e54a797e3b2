// Package verify implements Retrieval Confidence and Answer Verification
//.
package verify

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/yanyiwu/gojieba"
)

var commonStopwords = []string{
	"的", "了", "和", "是", "在", "我", "你", "他", "她", "它",
	"这", "那", "什么", "怎么", "如何", "为什么", "哪里", "什么时候",
	"the", "is", "are", "am", "i", "you", "he", "she", "it", "this",
	"that", "what", "how", "a", "an", "and", "or", "but", "if", "of",
	"to", "in", "on", "at", "by", "for", "with", "about", "from",
	"有", "无", "好", "来", "去", "说", "看", "想", "会", "可以",
	"吗", "呢", "啊", "吧", "的话", "就是", "只是", "因为", "所以",
}

var punctRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// QueryTokenizer segments a query into content words, dropping punctuation,
// short terms, and stopwords, via CJK+English mixed tokenization (Jieba
// search-mode cut) followed by a stopword filter. Used by the coverage
// component of retrieval confidence ("query terms (length > 2,
// non-stopword)").
type QueryTokenizer struct {
	jieba     *gojieba.Jieba
	stopwords map[string]struct{}
}

// NewQueryTokenizer constructs a tokenizer. Call Close when done.
func NewQueryTokenizer() *QueryTokenizer {
	stopwords := make(map[string]struct{}, len(commonStopwords))
	for _, w := range commonStopwords {
		stopwords[w] = struct{}{}
	}
	return &QueryTokenizer{jieba: gojieba.NewJieba(), stopwords: stopwords}
}

// Close releases the underlying Jieba dictionary.
func (t *QueryTokenizer) Close() {
	if t.jieba != nil {
		t.jieba.Free()
		t.jieba = nil
	}
}

// ContentTerms returns the query's content words: length > 2 runes,
// not punctuation-only, not a stopword.
func (t *QueryTokenizer) ContentTerms(query string) []string {
	cleaned := strings.TrimSpace(punctRegex.ReplaceAllString(query, " "))
	segments := t.jieba.CutForSearch(cleaned, true)

	terms := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.ToLower(strings.TrimSpace(seg))
		if isBlank(seg) || len([]rune(seg)) <= 2 {
			continue
		}
		if _, stop := t.stopwords[seg]; stop {
			continue
		}
		terms = append(terms, seg)
	}
	return terms
}

func isBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
