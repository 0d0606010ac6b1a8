package munge

// assignmentShape is the statement the locator looks for:
//
//	our $VERSION = <value> ;
//
// An empty entry captures whatever token sits in that position.
var assignmentShape = [...]struct {
	kind Kind
	text string
}{
	{Identifier, "our"},
	{Identifier, "$VERSION"},
	{Operator, "="},
	{Other, ""},
	{Terminator, ";"},
}

const captureStep = 3

// LocateAssignment looks for an existing "our $VERSION = ...;" statement on
// the given line and returns the index of its value token.
//
// The match runs forward once over the line's non-whitespace tokens. A token
// that breaks a partial match resets the machine and is then tried again as
// the start of a new statement.
func LocateAssignment(tokens []Token, line int) (int, bool) {
	step, value := 0, -1
	for i, tok := range tokens {
		if tok.Line < line {
			continue
		}
		if tok.Line > line {
			break
		}
		if tok.IsWhitespace() {
			continue
		}
		if step > 0 && !stepMatches(step, tok) {
			step, value = 0, -1
		}
		if !stepMatches(step, tok) {
			continue
		}
		if step == captureStep {
			value = i
		}
		step++
		if step == len(assignmentShape) {
			return value, true
		}
	}
	return -1, false
}

func stepMatches(step int, tok Token) bool {
	want := assignmentShape[step]
	if step == captureStep {
		return true
	}
	return tok.Kind == want.kind && tok.Text == want.text
}
