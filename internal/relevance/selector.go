package relevance

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jacfrist/student-support-assistant/internal/entity"
)

// Excerpt window sizes. The window is asymmetric: policy answers usually
// follow a heading, so trailing context matters more than leading.
const (
	leadingWindow    = 1000
	trailingWindow   = 4000
	fallbackLength   = 2000
	fallbackPosition = 0.6
)

// topicBuckets map common query intents to curated search phrases. A query
// matching a bucket searches documents for the bucket's phrases instead of
// its own words.
var topicBuckets = []struct {
	triggers []string
	phrases  []string
}{
	{
		triggers: []string{"refund", "withdraw", "drop out", "money back", "tuition back"},
		phrases:  []string{"refunds of tuition", "refund of tuition", "tuition refund", "refund policy", "refund", "withdrawal"},
	},
	{
		triggers: []string{"financial aid", "fafsa", "scholarship", "grant", "loan"},
		phrases:  []string{"financial aid", "satisfactory academic progress", "scholarship", "grant"},
	},
	{
		triggers: []string{"housing", "dorm", "residence hall", "room and board"},
		phrases:  []string{"residence hall", "housing", "room and board"},
	},
}

// Selector scores and extracts bounded excerpts likely to answer a query.
type Selector struct {
	scorer Scorer
}

func NewSelector(scorer Scorer) *Selector {
	if scorer == nil {
		scorer = PolicyScorer{}
	}
	return &Selector{scorer: scorer}
}

// DocumentExcerpt is one document's contribution to an assembled context.
type DocumentExcerpt struct {
	Document *entity.Document
	Excerpt  string
	Score    float64
}

// SelectForDocuments extracts at most one excerpt per document, skipping
// documents with no usable text.
func (s *Selector) SelectForDocuments(docs []*entity.Document, query string) []DocumentExcerpt {
	results := make([]DocumentExcerpt, 0, len(docs))
	for _, doc := range docs {
		excerpt, score := s.selectScored(doc.Content, query)
		if excerpt == "" {
			continue
		}
		results = append(results, DocumentExcerpt{
			Document: doc,
			Excerpt:  excerpt,
			Score:    score,
		})
	}
	return results
}

// SelectContext assembles the per-document excerpts into a single context
// block. Total length is the caller's concern; only per-document excerpts
// are bounded here.
func (s *Selector) SelectContext(docs []*entity.Document, query string) string {
	excerpts := s.SelectForDocuments(docs, query)
	if len(excerpts) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, e := range excerpts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[Source: %s]\n%s", e.Document.Filename, e.Excerpt))
	}
	return sb.String()
}

// SelectExcerpt extracts the single best bounded excerpt from one
// document's text for the query.
func (s *Selector) SelectExcerpt(text, query string) string {
	excerpt, _ := s.selectScored(text, query)
	return excerpt
}

func (s *Selector) selectScored(text, query string) (string, float64) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0
	}

	var best string
	var bestScore float64

	for _, phrase := range phrasesFor(query) {
		candidate := windowAround(text, phrase)
		if candidate == "" {
			continue
		}
		if looksLikeTableOfContents(candidate) {
			continue
		}
		if score := s.scorer.Score(candidate); score > bestScore {
			best, bestScore = candidate, score
		}
	}

	if best != "" {
		return best, bestScore
	}

	// No phrase survived. Front matter is disproportionately tables of
	// contents and boilerplate, so fall back to a slice deeper in the
	// document.
	fallback := fixedOffsetSlice(text)
	return fallback, s.scorer.Score(fallback)
}

// phrasesFor classifies the query into a topic bucket; with no bucket
// match, the query's own significant words become the phrase set.
func phrasesFor(query string) []string {
	lower := strings.ToLower(query)

	for _, bucket := range topicBuckets {
		for _, trigger := range bucket.triggers {
			if strings.Contains(lower, trigger) {
				return bucket.phrases
			}
		}
	}

	var phrases []string
	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if len(word) > 3 {
			phrases = append(phrases, word)
		}
	}
	return phrases
}

// windowAround extracts a bounded window around the first case-insensitive
// occurrence of phrase.
func windowAround(text, phrase string) string {
	idx := indexFold(text, phrase)
	if idx < 0 {
		return ""
	}

	start := idx - leadingWindow
	if start < 0 {
		start = 0
	}
	end := idx + len(phrase) + trailingWindow
	if end > len(text) {
		end = len(text)
	}
	start = runeStart(text, start)
	end = runeStart(text, end)

	return strings.TrimSpace(text[start:end])
}

// indexFold reports the byte offset in text of the first case-insensitive
// occurrence of phrase, or -1. Offsets refer to text itself: lowercasing
// can change byte lengths (dotted capital I, the Kelvin sign), so an index
// found in the lowered string has to be mapped back onto the original.
func indexFold(text, phrase string) int {
	lowerText := strings.ToLower(text)
	idx := strings.Index(lowerText, strings.ToLower(phrase))
	if idx < 0 {
		return -1
	}
	if len(lowerText) == len(text) {
		return idx
	}

	// strings.ToLower maps rune by rune, so walking both strings a rune
	// at a time keeps the offsets in step.
	orig, lowered := 0, 0
	for lowered < idx && orig < len(text) {
		r, size := utf8.DecodeRuneInString(text[orig:])
		orig += size
		if r == utf8.RuneError && size == 1 {
			lowered++
			continue
		}
		lowered += utf8.RuneLen(unicode.ToLower(r))
	}
	return orig
}

// runeStart moves i back to the nearest rune boundary so slicing cannot
// split a multi-byte character.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// looksLikeTableOfContents rejects candidates that are ToC material rather
// than substantive text: dot-leader sequences, a literal heading, or runs
// of very short lines.
func looksLikeTableOfContents(excerpt string) bool {
	lower := strings.ToLower(excerpt)

	if strings.Contains(lower, "table of contents") {
		return true
	}
	if strings.Contains(excerpt, "....") || strings.Contains(excerpt, ". . . .") {
		return true
	}

	lines := strings.Split(excerpt, "\n")
	if len(lines) < 10 {
		return false
	}
	short := 0
	nonEmpty := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		nonEmpty++
		if len(line) < 40 {
			short++
		}
	}
	return nonEmpty > 10 && short*10 >= nonEmpty*8
}

func fixedOffsetSlice(text string) string {
	if len(text) <= fallbackLength {
		return text
	}
	start := runeStart(text, int(float64(len(text))*fallbackPosition))
	end := start + fallbackLength
	if end > len(text) {
		end = len(text)
	}
	end = runeStart(text, end)
	return strings.TrimSpace(text[start:end])
}
