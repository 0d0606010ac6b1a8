package munge

// Kind classifies a token.
type Kind uint8

const (
	Other Kind = iota
	Comment
	Whitespace
	Identifier
	Operator
	Literal
	Terminator
	Pod  // embedded documentation block, =head1 ... =cut
	Data // everything after __END__ or __DATA__
)

var kindNames = [...]string{
	Other:      "Other",
	Comment:    "Comment",
	Whitespace: "Whitespace",
	Identifier: "Identifier",
	Operator:   "Operator",
	Literal:    "Literal",
	Terminator: "Terminator",
	Pod:        "Pod",
	Data:       "Data",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Token is a single span of source text. Concatenating the Text of every
// token produced by Tokenize yields the original input.
type Token struct {
	Kind Kind
	Text string
	// Line is the 1-based line of the token's first byte.
	Line int
	// StartsLine is true when the token's first byte is at column 0.
	StartsLine bool
}

// IsWhitespace reports whether the token is whitespace.
func (t Token) IsWhitespace() bool { return t.Kind == Whitespace }
