package munge

import "strings"

// Render writes the token sequence back out, substituting the text of every
// edited token. Untouched tokens are copied verbatim.
func Render(tokens []Token, edits []Edit) string {
	replaced := make(map[int]string, len(edits))
	size := 0
	for _, e := range edits {
		replaced[e.Index] = e.Text
		size += len(e.Text)
	}
	for _, tok := range tokens {
		size += len(tok.Text)
	}

	var b strings.Builder
	b.Grow(size)
	for i, tok := range tokens {
		if text, ok := replaced[i]; ok {
			b.WriteString(text)
			continue
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}
