package munge

import "strings"

const evalStatement = "$VERSION = eval $VERSION;"

// Action is the rewrite chosen for a marker site.
type Action uint8

const (
	// ActionInsert replaces the comment with a new assignment followed by
	// the comment.
	ActionInsert Action = iota
	// ActionOverwrite rewrites the value of an assignment already on the
	// marker's line and leaves the comment in place.
	ActionOverwrite
)

func (a Action) String() string {
	if a == ActionOverwrite {
		return "overwrite"
	}
	return "insert"
}

// Plan is the rewrite decided for one marker site.
type Plan struct {
	Site   MarkerSite
	Action Action
	// ValueIndex is the token holding the existing value; only set for
	// ActionOverwrite.
	ValueIndex int
	// Comment is the comment text to emit, TRIAL annotation included.
	Comment string
	// Eval requests the "$VERSION = eval $VERSION;" normalisation.
	Eval bool
}

// Edit replaces the text of a single token.
type Edit struct {
	Index int
	Text  string
}

// PlanRewrites decides one Plan per site. opts must already be validated.
func PlanRewrites(tokens []Token, sites []MarkerSite, opts Options) []Plan {
	plans := make([]Plan, 0, len(sites))
	eval := opts.UnderscoreEval && strings.Contains(opts.Version, "_")
	for _, site := range sites {
		p := Plan{
			Site:       site,
			Action:     ActionInsert,
			ValueIndex: -1,
			Comment:    site.Comment,
			Eval:       eval,
		}
		if opts.Trial {
			p.Comment = annotateTrial(p.Comment)
		}
		if opts.Overwrite && !site.WholeLine {
			if idx, ok := LocateAssignment(tokens, site.Line); ok {
				p.Action = ActionOverwrite
				p.ValueIndex = idx
			}
		}
		plans = append(plans, p)
	}
	return plans
}

// Edits turns the plan into token replacements for the given version. Every
// edit counts as one mutation.
func (p Plan) Edits(version string) []Edit {
	quoted := "'" + version + "'"
	var code strings.Builder
	code.WriteString(p.Site.Whitespace)

	if p.Action == ActionOverwrite {
		code.WriteString(p.Comment)
		if p.Eval {
			code.WriteString("\n" + evalStatement)
		}
		return []Edit{
			{Index: p.ValueIndex, Text: quoted},
			{Index: p.Site.TokenIndex, Text: code.String()},
		}
	}

	code.WriteString("our $VERSION = " + quoted + "; ")
	if p.Eval && p.Site.WholeLine {
		code.WriteString(evalStatement + " ")
	}
	code.WriteString(p.Comment)
	if p.Eval && !p.Site.WholeLine {
		code.WriteString("\n" + evalStatement)
	}
	return []Edit{{Index: p.Site.TokenIndex, Text: code.String()}}
}
