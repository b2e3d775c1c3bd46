package captions

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// HangulSyllables is the precomposed Hangul block U+AC00..U+D7A3 (가-힣).
var HangulSyllables = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0xAC00, Hi: 0xD7A3, Stride: 1}},
}

var alphabets = map[string]*unicode.RangeTable{
	"hangul":   HangulSyllables,
	"cyrillic": unicode.Cyrillic,
	"greek":    unicode.Greek,
	"hiragana": unicode.Hiragana,
	"none":     nil,
}

// Alphabet resolves the extended block kept by the sanitizer next to ASCII
// letters, digits and space.
func Alphabet(name string) (*unicode.RangeTable, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return HangulSyllables, nil
	}
	tbl, ok := alphabets[key]
	if !ok {
		return nil, fmt.Errorf("unknown alphabet %q (want one of %s)", name, strings.Join(AlphabetNames(), ", "))
	}
	return tbl, nil
}

func AlphabetNames() []string {
	names := make([]string, 0, len(alphabets))
	for k := range alphabets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Sanitizer drops every rune outside its whitelist.
type Sanitizer struct {
	block *unicode.RangeTable
}

// NewSanitizer keeps [A-Za-z0-9], space and the runes of block. A nil block
// keeps ASCII only.
func NewSanitizer(block *unicode.RangeTable) Sanitizer {
	return Sanitizer{block: block}
}

var defaultSanitizer = NewSanitizer(HangulSyllables)

// Sanitize filters s with the default (Hangul) whitelist.
func Sanitize(s string) string { return defaultSanitizer.Sanitize(s) }

func (z Sanitizer) Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if z.allowed(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (z Sanitizer) allowed(r rune) bool {
	switch {
	case r == ' ':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case z.block != nil:
		return unicode.Is(z.block, r)
	}
	return false
}
