package munge

import (
	"regexp"
	"strings"
)

// markerPattern is the sentinel comment grammar. Group 1 is the indentation
// of a whole-line comment, group 2 the comment text that is kept. VERSION
// must not be followed by a letter, digit, mark or underscore of any script.
var markerPattern = regexp.MustCompile(`^(\s*)(#{1,2}\s*VERSION(?:(?:\s|[^\p{L}\p{N}\p{M}_\p{Cc}])[\P{Cc}\s]*)?)$`)

var versionWord = regexp.MustCompile(`\bVERSION\b`)

// MarkerSite is one sentinel comment found in a token sequence.
type MarkerSite struct {
	TokenIndex int
	Whitespace string
	Comment    string
	Line       int
	// WholeLine is set when nothing but indentation precedes the comment.
	WholeLine bool
}

// FindMarkers returns a site for every comment token matching the sentinel
// grammar, in source order.
func FindMarkers(tokens []Token) []MarkerSite {
	var sites []MarkerSite
	for i, tok := range tokens {
		if tok.Kind != Comment {
			continue
		}
		m := markerPattern.FindStringSubmatch(tok.Text)
		if m == nil {
			continue
		}
		sites = append(sites, MarkerSite{
			TokenIndex: i,
			Whitespace: m[1],
			Comment:    m[2],
			Line:       tok.Line,
			WholeLine:  tok.StartsLine,
		})
	}
	return sites
}

// annotateTrial inserts "TRIAL " before the first VERSION word of comment.
func annotateTrial(comment string) string {
	loc := versionWord.FindStringIndex(comment)
	if loc == nil {
		return comment
	}
	var b strings.Builder
	b.Grow(len(comment) + len("TRIAL "))
	b.WriteString(comment[:loc[0]])
	b.WriteString("TRIAL ")
	b.WriteString(comment[loc[0]:])
	return b.String()
}
