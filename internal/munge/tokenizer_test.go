package munge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "Empty", src: ""},
		{name: "No trailing newline", src: "package Foo;\n1;"},
		{name: "Assignment with comment", src: "our $VERSION = '0.01'; # VERSION\n"},
		{name: "Indented comment", src: "\t  # VERSION\n"},
		{name: "CRLF", src: "package Foo;\r\n# VERSION\r\n1;\r\n"},
		{name: "Unterminated string", src: "my $x = 'abc\n# VERSION\n"},
		{name: "Unterminated quote-like", src: "my $x = q{abc\n"},
		{name: "Heredoc", src: "print <<\"EOF\";\nbody # VERSION\nEOF\n1;\n"},
		{name: "Unterminated heredoc", src: "print <<EOF;\nnever ends\n"},
		{name: "Pod", src: "=head1 NAME\n\nFoo\n\n=cut\n\n1;\n"},
		{name: "Data section", src: "1;\n__END__\n# VERSION\n"},
		{name: "Unicode", src: "my $s = \"héllo\"; # VERSION — ünïcode\n"},
		{name: "Stray bytes", src: "\x00\x01 our ¤ $VERSION\n"},
		{name: "Substitution", src: "s{a}\n  {b}gx; tr/a-z/A-Z/;\n"},
		{name: "Regex and division", src: "my $r = $a / 2; $x =~ /#/; split /,/, $s;\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			toks := Tokenize(tc.src)
			var b strings.Builder
			for _, tok := range toks {
				b.WriteString(tok.Text)
			}
			assert.Equal(t, tc.src, b.String())
			assert.Equal(t, tc.src, Render(toks, nil))
		})
	}
}

func TestTokenizeAssignmentLine(t *testing.T) {
	toks := Tokenize("our $VERSION = '0.01'; # VERSION\n")

	type kt struct {
		Kind Kind
		Text string
	}
	got := make([]kt, 0, len(toks))
	for _, tok := range toks {
		got = append(got, kt{tok.Kind, tok.Text})
		assert.Equal(t, 1, tok.Line, "token %q", tok.Text)
	}
	want := []kt{
		{Identifier, "our"},
		{Whitespace, " "},
		{Identifier, "$VERSION"},
		{Whitespace, " "},
		{Operator, "="},
		{Whitespace, " "},
		{Literal, "'0.01'"},
		{Terminator, ";"},
		{Whitespace, " "},
		{Comment, "# VERSION"},
		{Whitespace, "\n"},
	}
	assert.Equal(t, want, got)
	assert.True(t, toks[0].StartsLine)
	assert.False(t, toks[9].StartsLine)
}

func TestTokenizeWholeLineCommentKeepsIndent(t *testing.T) {
	toks := Tokenize("sub x {\n    # VERSION\n}\n")
	var comment Token
	for _, tok := range toks {
		if tok.Kind == Comment {
			comment = tok
		}
	}
	require.Equal(t, Comment, comment.Kind)
	assert.Equal(t, "    # VERSION", comment.Text)
	assert.Equal(t, 2, comment.Line)
	assert.True(t, comment.StartsLine)
}

func TestTokenizeLineNumbers(t *testing.T) {
	src := "package Foo;\n\n=pod\n\ntext\n\n=cut\n\nmy $s = \"a\nb\";\n# VERSION\n"
	toks := Tokenize(src)
	lines := map[string]int{}
	for _, tok := range toks {
		lines[tok.Text] = tok.Line
	}
	assert.Equal(t, 1, lines["package"])
	assert.Equal(t, 3, lines["=pod\n\ntext\n\n=cut\n"])
	assert.Equal(t, 9, lines["\"a\nb\""])
	assert.Equal(t, 11, lines["# VERSION"])
}

func TestTokenizeVariables(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{name: "Scalar", src: "$VERSION", want: "$VERSION"},
		{name: "Package scalar", src: "$Foo::Bar::VERSION", want: "$Foo::Bar::VERSION"},
		{name: "Array last index", src: "$#array", want: "$#array"},
		{name: "Array last index ref", src: "$#{$ref}", want: "$#{$ref}"},
		{name: "Braced", src: "${name}", want: "${name}"},
		{name: "Special", src: "$@", want: "$@"},
		{name: "Caret", src: "$^W", want: "$^W"},
		{name: "Array", src: "@ISA", want: "@ISA"},
		{name: "Hash", src: "%ENV", want: "%ENV"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			toks := Tokenize(tc.src + ";")
			require.Len(t, toks, 2)
			assert.Equal(t, Identifier, toks[0].Kind)
			assert.Equal(t, tc.want, toks[0].Text)
			assert.Equal(t, Terminator, toks[1].Kind)
		})
	}
}

func TestTokenizeHidesNonComments(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "Single quotes", src: "my $s = '# VERSION';\n"},
		{name: "Double quotes", src: "my $s = \"# VERSION\";\n"},
		{name: "q braces", src: "my $s = q{# VERSION};\n"},
		{name: "q hash delimiter", src: "my $s = q# VERSION #;\n"},
		{name: "qw multi-line", src: "my @w = qw(\n  # VERSION\n);\n"},
		{name: "Regex match", src: "$x =~ /# VERSION/;\n"},
		{name: "Substitution", src: "$x =~ s/# VERSION/x/g;\n"},
		{name: "Heredoc", src: "print <<EOF;\n# VERSION\nEOF\n"},
		{name: "Indented heredoc", src: "print <<~'EOT';\n    # VERSION\n    EOT\n"},
		{name: "Pod", src: "=head1 VERSION\n\n# VERSION\n\n=cut\n"},
		{name: "End section", src: "1;\n__END__\n# VERSION\n"},
		{name: "Data section", src: "1;\n__DATA__\n## VERSION\n"},
		{name: "Last index", src: "my $n = $#array;\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, FindMarkers(Tokenize(tc.src)))
		})
	}
}

func TestTokenizeDivisionIsNotRegex(t *testing.T) {
	sites := FindMarkers(Tokenize("my $half = $total / 2; # VERSION\n"))
	require.Len(t, sites, 1)
	assert.Equal(t, "# VERSION", sites[0].Comment)
}

func TestTokenizeDegradesUnterminated(t *testing.T) {
	toks := Tokenize("my $x = \"open\n# VERSION\n")
	last := toks[len(toks)-1]
	assert.Equal(t, Other, last.Kind)
	assert.Equal(t, "\"open\n# VERSION\n", last.Text)
}

func TestPodOnly(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want bool
	}{
		{name: "Pod only", src: "=head1 NAME\n\nFoo - bar\n\n=cut\n", want: true},
		{name: "Pod with comments", src: "# comment\n\n=pod\n\ntext\n", want: true},
		{name: "Code", src: "package Foo;\n1;\n", want: false},
		{name: "Pod and code", src: "=pod\n\n=cut\n\n1;\n", want: false},
		{name: "Empty", src: "", want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PodOnly(tc.src))
		})
	}
}
