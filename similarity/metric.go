// Package similarity finds near-duplicate translation keys.
//
// Scoring is pluggable: a Metric maps two strings to a similarity in [0,1].
// Grouping is advisory; nothing is merged automatically.
package similarity

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Metric scores the similarity of two strings, 1 meaning identical.
type Metric func(a, b string) float64

// Metric names accepted by MetricByName.
const (
	MetricLevenshtein = "levenshtein"
	MetricTokens      = "tokens"
	MetricJapanese    = "japanese"
)

// MetricNames lists the built-in metrics.
var MetricNames = []string{MetricLevenshtein, MetricTokens, MetricJapanese}

// MetricByName returns a built-in metric.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "", MetricLevenshtein:
		return Levenshtein, nil
	case MetricTokens:
		return TokenSet(WordTokenizer{}), nil
	case MetricJapanese:
		tok, err := japaneseTokenizer()
		if err != nil {
			return nil, err
		}
		return TokenSet(tok), nil
	}
	return nil, fmt.Errorf("unknown similarity metric %q (valid: %s)", name, strings.Join(MetricNames, ", "))
}

// Normalize folds case, applies NFKC and collapses whitespace so that
// "Hello  World" and "ｈｅｌｌｏ world" compare equal.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// ---------------------------------------------------------------------------
// Edit distance
// ---------------------------------------------------------------------------

// Levenshtein is 1 - editDistance/maxLen over normalized runes.
func Levenshtein(a, b string) float64 {
	ra := []rune(Normalize(a))
	rb := []rune(Normalize(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(editDistance(ra, rb))/float64(longest)
}

func editDistance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// ---------------------------------------------------------------------------
// Token overlap
// ---------------------------------------------------------------------------

// Tokenizer splits text into comparable tokens.
type Tokenizer interface {
	Tokens(s string) []string
}

// WordTokenizer splits on anything that is not a letter or digit.
type WordTokenizer struct{}

// Tokens implements Tokenizer.
func (WordTokenizer) Tokens(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// TokenSet returns a Jaccard metric over the tokens produced by tok.
func TokenSet(tok Tokenizer) Metric {
	return func(a, b string) float64 {
		ta := toSet(tok.Tokens(a))
		tb := toSet(tok.Tokens(b))
		if len(ta) == 0 && len(tb) == 0 {
			if Normalize(a) == Normalize(b) {
				return 1
			}
			return 0
		}
		shared := 0
		for t := range ta {
			if tb[t] {
				shared++
			}
		}
		return float64(shared) / float64(len(ta)+len(tb)-shared)
	}
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// JapaneseTokenizer uses kagome with the IPA dictionary and compares
// dictionary base forms, so inflected verbs match their plain form.
type JapaneseTokenizer struct {
	t *tokenizer.Tokenizer
}

// NewJapaneseTokenizer loads the IPA dictionary.
func NewJapaneseTokenizer() (*JapaneseTokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("loading kagome tokenizer: %w", err)
	}
	return &JapaneseTokenizer{t: t}, nil
}

var japaneseTokenizer = sync.OnceValues(NewJapaneseTokenizer)

// Tokens implements Tokenizer.
func (j *JapaneseTokenizer) Tokens(s string) []string {
	var out []string
	for _, token := range j.t.Tokenize(Normalize(s)) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		features := token.Features()
		if len(features) > 0 && features[0] == "記号" {
			continue
		}
		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		out = append(out, base)
	}
	return out
}
