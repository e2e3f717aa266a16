package moderation

import (
	"slices"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Blocklist is a local dictionary check run before the external moderation call.
type Blocklist struct {
	matcher *goahocorasick.Machine
	words   map[string]string
}

type TextMapping struct {
	Normalized []rune
	OrigIdx    []int
}

// NewBlocklist initializes the Aho-Corasick automaton with a normalized version of the provided words.
// Words made only of noise are ignored.
func NewBlocklist(words []string) (Blocklist, error) {
	byPattern := make(map[string]string, len(words))
	var patterns [][]rune
	for _, word := range words {
		pattern := normalizeRunes([]rune(word))
		if len(pattern) == 0 {
			continue
		}
		if _, ok := byPattern[string(pattern)]; ok {
			continue
		}
		byPattern[string(pattern)] = word
		patterns = append(patterns, pattern)
	}
	if len(patterns) == 0 {
		return Blocklist{}, nil
	}

	// The double-array trie expects its keys in lexical order.
	slices.SortFunc(patterns, func(a, b []rune) int {
		return strings.Compare(string(a), string(b))
	})
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Blocklist{}, err
	}
	return Blocklist{matcher: m, words: byPattern}, nil
}

func (b Blocklist) Empty() bool {
	return b.matcher == nil
}

// Match returns the dictionary words found in text, each reported once, in order of appearance.
func (b Blocklist) Match(text string) []string {
	if b.Empty() {
		return nil
	}
	mapping := normalize(text)
	if len(mapping.Normalized) == 0 {
		return nil
	}
	spans := b.matcher.MultiPatternSearch(mapping.Normalized, false)
	if len(spans) == 0 {
		return nil
	}
	return lo.Uniq(lo.Map(spans, func(span *goahocorasick.Term, _ int) string {
		return b.words[string(span.Word)]
	}))
}

// Censor replaces the original characters of every match with censoredChar while preserving spacing.
func (b Blocklist) Censor(original string, censoredChar rune) string {
	if b.Empty() {
		return original
	}
	mapping := normalize(original)
	if len(mapping.Normalized) == 0 {
		return original
	}

	origRunes := []rune(original)
	for _, span := range b.matcher.MultiPatternSearch(mapping.Normalized, false) {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.OrigIdx) {
			continue
		}
		origEnd := mapping.OrigIdx[normEnd-1] + 1
		for i := mapping.OrigIdx[normStart]; i < origEnd; i++ {
			origRunes[i] = censoredChar
		}
	}
	return string(origRunes)
}

// normalize transforms the input string into a searchable format and tracks original rune positions.
func normalize(input string) TextMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return TextMapping{Normalized: norm, OrigIdx: origIdx}
}

// normalizeRunes applies simplification and noise removal to a slice of runes.
func normalizeRunes(input []rune) []rune {
	return normalize(string(input)).Normalized
}

// simplifyRune maps common Leet speak characters back to their standard alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters that should be ignored during the pattern matching phase.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
