// Package munge embeds "our $VERSION = '...';" assignments into Perl sources
// at "# VERSION" marker comments.
//
// A file is tokenized, the marker comments are located, a rewrite is planned
// for each of them and the token stream is written back out with only the
// planned tokens replaced. Whole-line markers are rewritten in place, so the
// line count of the file does not change.
package munge

import "fmt"

// Role says what kind of file is being processed.
type Role uint8

const (
	RoleModule Role = iota
	RoleExecutable
	RoleDocOnly
)

func (r Role) String() string {
	switch r {
	case RoleModule:
		return "module"
	case RoleExecutable:
		return "executable"
	case RoleDocOnly:
		return "doc-only"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Options is the run-wide configuration. It is read-only once a run starts.
type Options struct {
	Version        string
	Trial          bool
	Overwrite      bool
	UnderscoreEval bool
}

// Validate reports a configuration error that must abort the whole run.
func (o Options) Validate() error {
	return ValidateVersion(o.Version)
}

// Status is the result class of processing one file.
type Status uint8

const (
	StatusSkipped Status = iota
	StatusMunged
)

func (s Status) String() string {
	if s == StatusMunged {
		return "munged"
	}
	return "skipped"
}

// Skip reasons.
const (
	ReasonDocOnly  = "consists only of POD"
	ReasonNoMarker = "no # VERSION comment"
)

// Outcome is the result of processing one file. Text is the rewritten
// source when Status is StatusMunged and the original source otherwise.
type Outcome struct {
	Status    Status
	Reason    string
	Text      string
	Mutations int
	Plans     []Plan
}

// Munged reports whether the file was rewritten.
func (o Outcome) Munged() bool { return o.Status == StatusMunged }

// Process rewrites the marker comments of a single file. It fails only when
// opts does not validate; every per-file condition is expressed in the
// Outcome.
func Process(text string, role Role, opts Options) (Outcome, error) {
	if err := opts.Validate(); err != nil {
		return Outcome{}, err
	}
	return process(text, role, opts), nil
}

func process(text string, role Role, opts Options) Outcome {
	if role == RoleDocOnly {
		return Outcome{Status: StatusSkipped, Reason: ReasonDocOnly, Text: text}
	}
	tokens := Tokenize(text)
	sites := FindMarkers(tokens)
	if len(sites) == 0 {
		return Outcome{Status: StatusSkipped, Reason: ReasonNoMarker, Text: text}
	}

	plans := PlanRewrites(tokens, sites, opts)
	var edits []Edit
	for _, p := range plans {
		edits = append(edits, p.Edits(opts.Version)...)
	}
	return Outcome{
		Status:    StatusMunged,
		Text:      Render(tokens, edits),
		Mutations: len(edits),
		Plans:     plans,
	}
}

// Munger processes many files with one validated configuration. It holds no
// per-file state and is safe for concurrent use.
type Munger struct {
	opts     Options
	reporter Reporter
}

// New validates opts and returns a Munger reporting to r. A nil r discards
// reports.
func New(opts Options, r Reporter) (*Munger, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = nopReporter{}
	}
	return &Munger{opts: opts, reporter: r}, nil
}

// Options returns the configuration the Munger was built with.
func (m *Munger) Options() Options { return m.opts }

// Munge processes the contents of the file called name.
func (m *Munger) Munge(name, text string, role Role) Outcome {
	out := process(text, role, m.opts)
	if out.Munged() {
		m.reporter.Munged(name, out.Mutations)
	} else {
		m.reporter.Skipped(name, out.Reason)
	}
	return out
}
