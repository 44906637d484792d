package orchestrator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// #region patterns

var (
	bracketRe     = regexp.MustCompile(`\[[^\]]*\]`)
	asteriskRe    = regexp.MustCompile(`\*[^*\s](?:[^*]*[^*\s])?\*`) // hugs its words, so a lone "5 * 3" survives
	parenRe       = regexp.MustCompile(`\([^)]*\)`)
	emDashAsideRe = regexp.MustCompile(`\s*—[^—]*—\s*`)
	spaceRe       = regexp.MustCompile(`\s+`)
	spacePunctRe  = regexp.MustCompile(`\s+([,.!?;:])`)
	speakerTagRe  = regexp.MustCompile(`^(?i)(prospect|counterpart|client|customer)\s*:\s*`)
)

// #endregion patterns

// #region sanitize

// Sanitize strips stage directions and narration from a generated reply so
// only spoken words remain. Bracketed spans that open with a currency symbol
// or a digit are kept, so "[£2,000]" survives while "[sighs]" does not.
func Sanitize(text string) string {
	out := strings.TrimSpace(text)
	out = speakerTagRe.ReplaceAllString(out, "")
	out = bracketRe.ReplaceAllStringFunc(out, keepAmountBracket)
	out = asteriskRe.ReplaceAllString(out, " ")
	out = parenRe.ReplaceAllString(out, " ")
	out = emDashAsideRe.ReplaceAllString(out, " ")
	out = spaceRe.ReplaceAllString(out, " ")
	out = spacePunctRe.ReplaceAllString(out, "$1")
	out = strings.TrimSpace(out)
	return trimWrappingQuotes(out)
}

func keepAmountBracket(m string) string {
	inner := strings.TrimSpace(m[1 : len(m)-1])
	r, _ := utf8.DecodeRuneInString(inner)
	if unicode.Is(unicode.Sc, r) || unicode.IsDigit(r) {
		return m
	}
	return " "
}

func trimWrappingQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && strings.Count(s, `"`) == 2 {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// #endregion sanitize
