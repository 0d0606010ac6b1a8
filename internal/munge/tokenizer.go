package munge

import (
	"strings"
	"unicode/utf8"
)

// scanner splits Perl-flavoured source into tokens. It only understands as
// much of the language as is needed to tell comments from code: quotes,
// quote-like operators, heredocs, POD and the data section. Anything it cannot
// make sense of becomes an Other token.
type scanner struct {
	src   string
	start int // start of the current token
	pos   int // current position in src
	line  int // line of src[start]
	toks  []Token

	// last significant (non-whitespace, non-comment) token, for the
	// regex-versus-divide decision
	last    Token
	hasLast bool
	// heredoc terminators waiting for the end of the current line
	heredocs []heredoc
}

type heredoc struct {
	tag    string
	indent bool // <<~ form, terminator may be indented
}

// Tokenize converts src into an ordered token sequence. It never fails:
// unterminated or unknown constructs are emitted as Other tokens and the
// concatenation of all token texts always equals src.
func Tokenize(src string) []Token {
	s := &scanner{src: src, line: 1}
	s.run()
	return s.toks
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		if s.atLineStart() {
			if len(s.heredocs) > 0 {
				s.scanHeredocBodies()
				continue
			}
			if s.atPodStart() {
				s.scanPod()
				continue
			}
			if s.atDataMarker() {
				s.pos = len(s.src)
				s.emit(Data)
				return
			}
			if s.scanLineComment() {
				continue
			}
		}
		s.scanToken()
	}
}

func (s *scanner) atLineStart() bool {
	return s.pos == 0 || s.src[s.pos-1] == '\n'
}

func (s *scanner) peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

// emit appends src[start:pos] as a token of the given kind.
func (s *scanner) emit(kind Kind) {
	if s.pos <= s.start {
		return
	}
	text := s.src[s.start:s.pos]
	s.toks = append(s.toks, Token{
		Kind:       kind,
		Text:       text,
		Line:       s.line,
		StartsLine: s.start == 0 || s.src[s.start-1] == '\n',
	})
	s.line += strings.Count(text, "\n")
	s.start = s.pos
	if kind != Whitespace && kind != Comment {
		s.last = s.toks[len(s.toks)-1]
		s.hasLast = true
	}
}

// endOfLine returns the index of the next '\n' at or after pos, or len(src).
func (s *scanner) endOfLine() int {
	if i := strings.IndexByte(s.src[s.pos:], '\n'); i >= 0 {
		return s.pos + i
	}
	return len(s.src)
}

// scanLineComment handles a comment that is the first non-blank content of a
// line. The indentation is folded into the comment token.
func (s *scanner) scanLineComment() bool {
	j := s.pos
	for j < len(s.src) && (s.src[j] == ' ' || s.src[j] == '\t') {
		j++
	}
	if j >= len(s.src) || s.src[j] != '#' {
		return false
	}
	s.pos = j
	s.scanComment()
	return true
}

// scanComment consumes a comment up to, but not including, the line ending.
func (s *scanner) scanComment() {
	end := s.endOfLine()
	if end > s.pos && end < len(s.src) && s.src[end-1] == '\r' {
		end--
	}
	s.pos = end
	s.emit(Comment)
}

func (s *scanner) atPodStart() bool {
	return s.peek() == '=' && isAlpha(s.peekAt(1))
}

// scanPod consumes a documentation block through its =cut line.
func (s *scanner) scanPod() {
	for s.pos < len(s.src) {
		lineEnd := s.endOfLine()
		line := s.src[s.pos:lineEnd]
		if lineEnd < len(s.src) {
			lineEnd++
		}
		s.pos = lineEnd
		if strings.HasPrefix(line, "=cut") && (len(line) == 4 || !isAlpha(line[4])) {
			break
		}
	}
	s.emit(Pod)
}

func (s *scanner) atDataMarker() bool {
	line := strings.TrimRight(s.src[s.pos:s.endOfLine()], " \t\r")
	return line == "__END__" || line == "__DATA__"
}

// scanHeredocBodies consumes the bodies of every heredoc opened on the
// previous line, one Literal token per body.
func (s *scanner) scanHeredocBodies() {
	pending := s.heredocs
	s.heredocs = nil
	for _, h := range pending {
		for s.pos < len(s.src) {
			lineEnd := s.endOfLine()
			line := strings.TrimRight(s.src[s.pos:lineEnd], "\r")
			if h.indent {
				line = strings.TrimLeft(line, " \t")
			}
			if lineEnd < len(s.src) {
				lineEnd++
			}
			s.pos = lineEnd
			if line == h.tag {
				break
			}
		}
		s.emit(Literal)
	}
}

func (s *scanner) scanToken() {
	c := s.peek()
	switch {
	case c == '\n' || isBlank(c):
		s.scanWhitespace()
	case c == '#':
		s.scanComment()
	case c == ';':
		s.pos++
		s.emit(Terminator)
	case c == '\'' || c == '"' || c == '`':
		s.pos++
		s.scanDelimitedOrDegrade(c)
	case isDigit(c):
		s.scanNumber()
	case isIdentStart(c):
		s.scanWord()
	case c == '$' || c == '@' || c == '%' || c == '&':
		if !s.scanVariable() {
			s.scanOperator()
		}
	case c == '/' && s.regexAllowed():
		s.pos++
		s.scanDelimitedOrDegrade('/')
		s.scanModifiers()
		s.emit(Literal)
	case c == '<' && s.scanHeredocStart():
		// body follows at the next line start
	case isOperatorByte(c):
		s.scanOperator()
	default:
		_, w := utf8.DecodeRuneInString(s.src[s.pos:])
		s.pos += w
		s.emit(Other)
	}
}

// scanWhitespace consumes blanks up to and including a single newline, so
// that the next line starts a fresh token.
func (s *scanner) scanWhitespace() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\n' {
			s.pos++
			break
		}
		if !isBlank(c) {
			break
		}
		s.pos++
	}
	s.emit(Whitespace)
}

// scanDelimitedOrDegrade finishes a quoted construct whose opening delimiter
// has been consumed. Quotes are emitted as Literal; a construct that never
// closes is emitted as Other up to the end of input. The '/' form leaves the
// token unemitted so the caller can pick up trailing modifiers.
func (s *scanner) scanDelimitedOrDegrade(open byte) {
	if !s.scanDelimited(open) {
		s.pos = len(s.src)
		s.emit(Other)
		return
	}
	if open != '/' {
		s.emit(Literal)
	}
}

// scanDelimited advances past the closing delimiter matching open. Bracketing
// delimiters nest. It reports false when input ends first.
func (s *scanner) scanDelimited(open byte) bool {
	closer, nests := closingDelimiter(open)
	depth := 1
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		s.pos++
		switch {
		case c == '\\':
			if s.pos < len(s.src) {
				s.pos++
			}
		case nests && c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func closingDelimiter(open byte) (byte, bool) {
	switch open {
	case '(':
		return ')', true
	case '[':
		return ']', true
	case '{':
		return '}', true
	case '<':
		return '>', true
	}
	return open, false
}

func (s *scanner) scanModifiers() {
	for s.pos < len(s.src) && isAlpha(s.src[s.pos]) {
		s.pos++
	}
}

func (s *scanner) scanNumber() {
	if s.peek() == '0' && (s.peekAt(1) == 'x' || s.peekAt(1) == 'X' || s.peekAt(1) == 'b' || s.peekAt(1) == 'B') {
		s.pos += 2
		for s.pos < len(s.src) && (isHex(s.src[s.pos]) || s.src[s.pos] == '_') {
			s.pos++
		}
		s.emit(Literal)
		return
	}
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isDigit(c) || c == '_':
			s.pos++
		case c == '.' && isDigit(s.peekAt(1)):
			s.pos++
		case (c == 'e' || c == 'E') && (isDigit(s.peekAt(1)) || ((s.peekAt(1) == '-' || s.peekAt(1) == '+') && isDigit(s.peekAt(2)))):
			s.pos += 2
		default:
			s.emit(Literal)
			return
		}
	}
	s.emit(Literal)
}

// quoteLike maps each quote-like operator to the number of delimited parts
// it takes.
var quoteLike = map[string]int{
	"q": 1, "qq": 1, "qw": 1, "qr": 1, "m": 1,
	"s": 2, "tr": 2, "y": 2,
}

// regexWords are barewords after which a '/' starts a pattern rather than a
// division.
var regexWords = map[string]bool{
	"split": true, "grep": true, "map": true, "if": true, "unless": true,
	"and": true, "or": true, "not": true, "return": true, "while": true,
	"until": true, "when": true,
}

func (s *scanner) scanWord() {
	s.scanName()
	word := s.src[s.start:s.pos]

	if parts, ok := quoteLike[word]; ok && s.scanQuoteLike(parts) {
		return
	}
	if isVString(word) && s.peek() == '.' && isDigit(s.peekAt(1)) {
		for s.pos < len(s.src) && (isDigit(s.src[s.pos]) || (s.src[s.pos] == '.' && isDigit(s.peekAt(1)))) {
			s.pos++
		}
		s.emit(Literal)
		return
	}
	s.emit(Identifier)
}

// scanName consumes an identifier, including package separators.
func (s *scanner) scanName() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isIdentByte(c):
			s.pos++
		case c == ':' && s.peekAt(1) == ':' && isIdentStart(s.peekAt(2)):
			s.pos += 2
		default:
			return
		}
	}
}

// scanQuoteLike finishes q//, s///, tr/// and friends. It reports false, with
// the position untouched, when the word is not followed by a usable
// delimiter (for example a hash key "s =>").
func (s *scanner) scanQuoteLike(parts int) bool {
	save := s.pos
	for s.pos < len(s.src) && isBlank(s.src[s.pos]) {
		s.pos++
	}
	open := s.peek()
	spaced := s.pos != save
	if !isQuoteDelimiter(open) || (spaced && (open == '#' || open == '=')) || (open == '=' && s.peekAt(1) == '>') {
		s.pos = save
		return false
	}
	// method calls (->s) and file tests (-s $file)
	if s.hasLast && (s.last.Text == "->" || (s.last.Text == "-" && s.start > 0 && s.src[s.start-1] == '-')) {
		s.pos = save
		return false
	}
	s.pos++
	if !s.scanDelimited(open) {
		s.pos = len(s.src)
		s.emit(Other)
		return true
	}
	if parts == 2 {
		if _, nests := closingDelimiter(open); nests {
			for s.pos < len(s.src) && (isBlank(s.src[s.pos]) || s.src[s.pos] == '\n') {
				s.pos++
			}
			second := s.peek()
			if !isQuoteDelimiter(second) {
				s.pos = len(s.src)
				s.emit(Other)
				return true
			}
			s.pos++
			open = second
		}
		if !s.scanDelimited(open) {
			s.pos = len(s.src)
			s.emit(Other)
			return true
		}
	}
	s.scanModifiers()
	s.emit(Literal)
	return true
}

func isQuoteDelimiter(c byte) bool {
	if c == 0 || c >= utf8.RuneSelf || isIdentByte(c) || isBlank(c) || c == '\n' {
		return false
	}
	switch c {
	case ',', ';', ')', ']', '}', '>':
		return false
	}
	return true
}

// scanVariable consumes a sigil and the name it introduces. It reports false
// when the sigil stands alone (the modulus or bitwise-and operators).
func (s *scanner) scanVariable() bool {
	sigil := s.peek()
	next := s.peekAt(1)
	switch {
	case sigil == '$' && next == '#' && (s.peekAt(2) == '$' || s.peekAt(2) == '{' || isIdentStart(s.peekAt(2))):
		s.pos += 2
		if s.peek() == '$' {
			s.pos++
		}
		if s.peek() == '{' {
			s.pos++
			if !s.scanDelimited('{') {
				s.pos = len(s.src)
				s.emit(Other)
				return true
			}
		} else {
			s.scanName()
		}
	case next == '{':
		s.pos += 2
		if !s.scanDelimited('{') {
			s.pos = len(s.src)
			s.emit(Other)
			return true
		}
	case isIdentStart(next) || (next == ':' && s.peekAt(2) == ':'):
		s.pos++
		if s.peek() == ':' {
			s.pos += 2
		}
		s.scanName()
	case sigil == '$' && next == '$':
		s.pos += 2
		if isIdentStart(s.peek()) {
			s.scanName()
		}
	case sigil == '$' && isDigit(next):
		s.pos++
		for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
			s.pos++
		}
	case sigil == '$' && next == '^' && isAlpha(s.peekAt(2)):
		s.pos += 3
	case sigil == '$' && next != 0 && strings.IndexByte(`!@/\,.&0`, next) >= 0:
		s.pos += 2
	default:
		return false
	}
	s.emit(Identifier)
	return true
}

// scanHeredocStart recognises <<"TAG", <<'TAG', <<~TAG and <<TAG. The body is
// collected once the current line ends.
func (s *scanner) scanHeredocStart() bool {
	if s.peekAt(1) != '<' {
		return false
	}
	i := s.pos + 2
	h := heredoc{}
	if i < len(s.src) && s.src[i] == '~' {
		h.indent = true
		i++
	}
	if i >= len(s.src) {
		return false
	}
	switch q := s.src[i]; {
	case q == '"' || q == '\'':
		end := strings.IndexByte(s.src[i+1:], q)
		if end < 0 || strings.ContainsRune(s.src[i+1:i+1+end], '\n') {
			return false
		}
		h.tag = s.src[i+1 : i+1+end]
		s.pos = i + end + 2
	case isIdentStart(q):
		j := i
		for j < len(s.src) && isIdentByte(s.src[j]) {
			j++
		}
		h.tag = s.src[i:j]
		s.pos = j
	default:
		return false
	}
	s.heredocs = append(s.heredocs, h)
	s.emit(Literal)
	return true
}

// operators is ordered longest first.
var operators = []string{
	"<=>", "**=", "||=", "//=", "&&=", "...", "<<=", ">>=",
	"=>", "->", "==", "!=", "<=", ">=", "=~", "!~", "::", "..", "++", "--",
	"**", "&&", "||", "//", "+=", "-=", "*=", "/=", ".=", "%=", "|=", "&=",
	"^=", "<<", ">>",
}

func (s *scanner) scanOperator() {
	rest := s.src[s.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			s.pos += len(op)
			s.emit(Operator)
			return
		}
	}
	s.pos++
	s.emit(Operator)
}

// regexAllowed reports whether a '/' at the current position starts a
// pattern. Perl decides this from the parser state; the previous significant
// token is a close enough approximation.
func (s *scanner) regexAllowed() bool {
	if !s.hasLast {
		return true
	}
	switch s.last.Kind {
	case Terminator:
		return true
	case Operator:
		switch s.last.Text {
		case ")", "]", "}":
			return false
		}
		return true
	case Identifier:
		return regexWords[s.last.Text]
	}
	return false
}

func isOperatorByte(c byte) bool {
	return strings.IndexByte("=+-*/.<>!~\\?:,(){}[]|&^%", c) >= 0
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isIdentStart(c byte) bool { return isAlpha(c) || c == '_' }

func isIdentByte(c byte) bool { return isIdentStart(c) || isDigit(c) }

// isVString matches the "v1" prefix of a v-string such as v1.2.3.
func isVString(word string) bool {
	if len(word) < 2 || word[0] != 'v' {
		return false
	}
	for i := 1; i < len(word); i++ {
		if !isDigit(word[i]) {
			return false
		}
	}
	return true
}

// PodOnly reports whether src holds documentation and nothing that would
// execute: only POD, comments, whitespace and a data section.
func PodOnly(src string) bool {
	sawPod := false
	for _, tok := range Tokenize(src) {
		switch tok.Kind {
		case Pod:
			sawPod = true
		case Whitespace, Comment, Data:
		default:
			return false
		}
	}
	return sawPod
}
