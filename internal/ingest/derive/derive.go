package derive

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	maxTitleLength   = 100
	maxKeywords      = 10
	minKeywordLength = 4
	maxKeywordLength = 20
	minKeywordCount  = 3
)

// Checksum returns a fixed-length hex digest of the raw file bytes. xxhash
// is enough here: the digest only detects accidental modification, not
// tampering.
func Checksum(raw []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}

// Metadata holds the lightweight descriptors derived from extracted text.
type Metadata struct {
	Title    string
	Keywords []string
}

// DeriveMetadata guesses a title and builds a coarse keyword histogram
// from extracted text.
func DeriveMetadata(path, text string) Metadata {
	return Metadata{
		Title:    deriveTitle(path, text),
		Keywords: deriveKeywords(text),
	}
}

// deriveTitle takes the first non-empty line when it is short enough to be
// a heading, otherwise a normalized form of the filename.
func deriveTitle(path, text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) < maxTitleLength {
			return line
		}
		break
	}

	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

// deriveKeywords returns the most frequent case-folded words, punctuation
// stripped and length filtered. A frequency heuristic, not TF-IDF.
func deriveKeywords(text string) []string {
	counts := make(map[string]int)
	for _, field := range strings.Fields(strings.ToLower(text)) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !isWordRune(r)
		})
		if len(word) < minKeywordLength || len(word) > maxKeywordLength {
			continue
		}
		counts[word]++
	}

	type wordCount struct {
		word  string
		count int
	}
	candidates := make([]wordCount, 0, len(counts))
	for word, count := range counts {
		if count >= minKeywordCount {
			candidates = append(candidates, wordCount{word, count})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].word < candidates[j].word
	})

	if len(candidates) > maxKeywords {
		candidates = candidates[:maxKeywords]
	}

	keywords := make([]string, len(candidates))
	for i, c := range candidates {
		keywords[i] = c.word
	}
	return keywords
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
