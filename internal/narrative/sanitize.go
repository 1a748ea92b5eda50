package narrative

import (
	"regexp"
	"strings"
)

var (
	// zero-width and other invisible characters models occasionally emit
	reInvisible = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)
	// a single newline wedged between two non-space characters, i.e. a word
	// broken across a line ('T\nh\ni\ns' -> 'This')
	reSplitChar = regexp.MustCompile(`(\S)\n(\S)`)
	reBlankRuns = regexp.MustCompile(`\n{2,}`)
	reSpaceRuns = regexp.MustCompile(`[ ]{2,}`)
)

// CleanText normalizes model output: strips invisible characters, rejoins
// characters incorrectly split across line breaks, and collapses runs of
// blank lines and interior spaces.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}
	text := reInvisible.ReplaceAllString(raw, "")

	// RE2 has no lookarounds, so each pass consumes the second character of a
	// match; repeat until the text is stable.
	for {
		joined := reSplitChar.ReplaceAllString(text, "$1$2")
		if joined == text {
			break
		}
		text = joined
	}

	text = reBlankRuns.ReplaceAllString(text, "\n")
	text = reSpaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
