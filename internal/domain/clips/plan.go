package clips

import (
	"strings"
	"unicode"

	"github.com/forPelevin/ycsp/internal/types"
)

// Plan turns one caption interval into a clip. The id is built from the raw
// attribute tokens so file names never depend on float formatting.
func Plan(iv types.Interval, title, caption string) types.ClipPlan {
	return types.ClipPlan{
		ID:      ID(title, iv.StartToken, iv.DurationToken),
		Start:   iv.Start,
		End:     iv.Start + iv.Duration,
		Caption: caption,
	}
}

func ID(title, startToken, durationToken string) string {
	return title + "-" + startToken + "-" + durationToken
}

// NormalizeTitle strips whitespace, path separators and control characters
// from a display title so it can be used as a single path element.
func NormalizeTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r), unicode.IsControl(r):
		case r == '/', r == '\\':
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	switch out {
	case "", ".", "..":
		return "untitled"
	}
	return out
}
