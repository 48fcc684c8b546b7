package promptfit

import "strings"

// StitchProse joins prose segments produced from successive chunks of the
// same oversize input. Adjacent segments are joined with a single blank
// line; the first half of the configured overlap (in words, as a proxy for
// tokens) is discarded from every non-initial segment, since it restates
// context the previous segment already covered.
func StitchProse(segments []string, overlapTokens int) string {
	if len(segments) == 0 {
		return ""
	}

	discardWords := overlapTokens / 2

	var out strings.Builder

	out.WriteString(segments[0])

	for _, seg := range segments[1:] {
		trimmed := dropLeadingWords(seg, discardWords)
		if trimmed == "" {
			continue
		}

		out.WriteString("\n\n")
		out.WriteString(trimmed)
	}

	return out.String()
}

func dropLeadingWords(text string, n int) string {
	if n <= 0 {
		return strings.TrimSpace(text)
	}

	words := strings.Fields(text)
	if n >= len(words) {
		return ""
	}

	return strings.TrimSpace(strings.Join(words[n:], " "))
}
