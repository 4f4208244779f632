package tokenizer

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// punctuation is the ASCII punctuation set removed by Normalize.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var stripPunctuation = func() *strings.Replacer {
	pairs := make([]string, 0, len(punctuation)*2)
	for _, r := range punctuation {
		pairs = append(pairs, string(r), "")
	}
	return strings.NewReplacer(pairs...)
}()

// Normalize composes text to NFC, lower-cases it and deletes ASCII
// punctuation. Whitespace is left for the caller to split on.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFC.String(text)
	text = strings.ToLower(text)
	return stripPunctuation.Replace(text)
}
