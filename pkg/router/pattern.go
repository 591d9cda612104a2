package router

import (
	"regexp"
	"strings"
)

// Pattern is a compiled topic-matching expression supporting `*` (exactly
// one dot-separated token) and a trailing `#` (zero or more trailing
// tokens). Compilation happens once per subscription and is cached here.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// Compile translates a topic pattern into a matchable Pattern. `#`, if
// present, must be the final token.
func Compile(pattern string) *Pattern {
	tokens := strings.Split(pattern, ".")
	var reStr string

	if len(tokens) > 0 && tokens[len(tokens)-1] == "#" {
		prefix := quoteJoin(tokens[:len(tokens)-1])
		if prefix == "" {
			reStr = "^.*$"
		} else {
			reStr = "^" + prefix + `(\..*)?$`
		}
	} else {
		parts := make([]string, len(tokens))
		for i, tok := range tokens {
			if tok == "*" {
				parts[i] = `[^.]+`
			} else {
				parts[i] = regexp.QuoteMeta(tok)
			}
		}
		reStr = "^" + strings.Join(parts, `\.`) + "$"
	}

	return &Pattern{raw: pattern, re: regexp.MustCompile(reStr)}
}

func quoteJoin(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		if tok == "*" {
			parts[i] = `[^.]+`
		} else {
			parts[i] = regexp.QuoteMeta(tok)
		}
	}
	return strings.Join(parts, `\.`)
}

// Matches reports whether topic satisfies the pattern. Matching is a pure
// function of the pattern and topic strings — it never depends on
// subscription id or registration order.
func (p *Pattern) Matches(topic string) bool {
	return p.re.MatchString(topic)
}

// String returns the original, uncompiled pattern text.
func (p *Pattern) String() string { return p.raw }
