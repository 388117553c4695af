package textenc

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// tokenize lowercases and splits text on non-alphanumeric runes. It is a
// simple stand-in for the pretrained encoder's real subword tokenizer;
// since token identities only ever feed a hashing trick (never a fixed
// vocabulary lookup table), the exact tokenization scheme does not affect
// the encoder's determinism contract.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return fields
}

// hashToken maps a token to a stable, uniformly distributed bucket index.
func hashToken(tok string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tok))
	return h.Sum64()
}
