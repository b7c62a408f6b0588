package vocab

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"transbuddy/internal/domain"
)

// DefaultIterationLimit bounds how often the substitution set is re-applied.
const DefaultIterationLimit = 30

// Engine rewrites transcripts with user vocabulary substitutions.
type Engine struct {
	rules     []rule
	loopLimit int
}

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// Compile builds an engine from persisted substitutions. Literal sources match
// case-insensitively; regex sources are case-insensitive unless they set flags.
func Compile(substitutions []domain.Substitution, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = DefaultIterationLimit
	}

	rules := make([]rule, 0, len(substitutions))
	for index, sub := range substitutions {
		compiled, err := compileRule(sub)
		if err != nil {
			return nil, fmt.Errorf("substitution %d: %w", index+1, err)
		}
		rules = append(rules, compiled)
	}
	return &Engine{rules: rules, loopLimit: loopLimit}, nil
}

func compileRule(sub domain.Substitution) (rule, error) {
	from := strings.TrimSpace(sub.From)
	if from == "" {
		return rule{}, errors.New("source cannot be empty")
	}

	pattern := "(?i)" + regexp.QuoteMeta(from)
	if sub.Regex {
		pattern = from
		if !strings.HasPrefix(pattern, "(?") {
			pattern = "(?i)" + pattern
		}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return rule{}, fmt.Errorf("invalid pattern %q: %w", from, err)
	}
	if re.MatchString("") {
		return rule{}, fmt.Errorf("pattern %q matches empty text", from)
	}
	return rule{re: re, replacement: sub.To}, nil
}

// Len reports the number of compiled substitutions.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply transforms text until no substitution changes it or the iteration
// limit is reached.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, r := range e.rules {
			next := r.re.ReplaceAllString(result, r.replacement)
			if next != result {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}
