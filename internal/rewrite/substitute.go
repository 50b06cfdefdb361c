package rewrite

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"git.home.luguber.info/inful/linktext/internal/budget"
)

// substitute applies the resolution plan in one combined pass.
//
// All plan entries are matched simultaneously against the original markup
// with earliest-match precedence (longest pattern wins at equal positions),
// so replacement text is never rescanned by a later pattern. The same
// trailing-letter exclusion used by the scanner applies at substitution time.
// The net growth is charged against the inclusion-size budget; on overrun the
// substitution is discarded entirely and the original markup returned.
func (s *Session) substitute(markup string, plan []plannedReplacement, b *budget.IncludeSizeBudget) (string, int, error) {
	if len(plan) == 0 {
		return markup, 0, nil
	}

	replacements := make(map[string]string, len(plan))
	for _, p := range plan {
		if _, dup := replacements[p.whole]; dup {
			continue
		}
		replacements[p.whole] = s.deps.Sanitizer.Sanitize(p.replacement)
	}

	var out strings.Builder
	out.Grow(len(markup))
	count := 0

	for i := 0; i < len(markup); {
		rel := strings.Index(markup[i:], "[[")
		if rel < 0 {
			out.WriteString(markup[i:])
			break
		}
		pos := i + rel
		out.WriteString(markup[i:pos])
		i = pos

		best := ""
		for whole := range replacements {
			if len(whole) > len(best) && strings.HasPrefix(markup[pos:], whole) {
				best = whole
			}
		}
		if best == "" {
			out.WriteString("[[")
			i = pos + 2
			continue
		}
		if r, _ := utf8.DecodeRuneInString(markup[pos+len(best):]); unicode.IsLetter(r) {
			// Link trail: this occurrence is not bare here.
			out.WriteString("[[")
			i = pos + 2
			continue
		}

		out.WriteString(replacements[best])
		i = pos + len(best)
		count++
	}

	result := out.String()
	if delta := int64(len(result) - len(markup)); delta > 0 && b != nil {
		if err := b.Charge(delta); err != nil {
			// Partial replacement is never acceptable: roll back fully.
			return markup, 0, err
		}
	}
	return result, count, nil
}
