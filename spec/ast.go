package spec

import "fmt"

type RootNode struct {
	Rules []*RuleNode
}

type RuleNode struct {
	Name         string
	Alternatives []*AlternativeNode
	Pos          Position
}

// AlternativeNode is a sequence of terms. All of the terms must match in order.
type AlternativeNode struct {
	Terms []*TermNode
	Pos   Position
}

// TermNode matches Factor unless Exception matches the same text. Exception is nil when the term has no
// exception clause.
type TermNode struct {
	Factor    *FactorNode
	Exception *FactorNode
	Pos       Position
}

// FactorNode matches Primary exactly Repetition times.
type FactorNode struct {
	Repetition int
	Primary    *PrimaryNode
	Pos        Position
}

type PrimaryKind int

const (
	PrimaryKindEmpty PrimaryKind = iota
	PrimaryKindReference
	PrimaryKindTerminal
	PrimaryKindSpecial
	PrimaryKindGroup
	PrimaryKindOptional
	PrimaryKindRepeated
)

func (k PrimaryKind) String() string {
	switch k {
	case PrimaryKindEmpty:
		return "empty"
	case PrimaryKindReference:
		return "reference"
	case PrimaryKindTerminal:
		return "terminal"
	case PrimaryKindSpecial:
		return "special sequence"
	case PrimaryKindGroup:
		return "group"
	case PrimaryKindOptional:
		return "optional"
	case PrimaryKindRepeated:
		return "repeated"
	}
	return fmt.Sprintf("PrimaryKind(%d)", int(k))
}

// PrimaryNode is a tagged union. Which fields are meaningful depends on Kind:
//
//   - PrimaryKindReference: Name holds the referenced rule name.
//   - PrimaryKindTerminal and PrimaryKindSpecial: Text holds the text between the delimiters.
//   - PrimaryKindGroup, PrimaryKindOptional, and PrimaryKindRepeated: Alternatives holds the body.
//   - PrimaryKindEmpty: no fields.
type PrimaryNode struct {
	Kind         PrimaryKind
	Name         string
	Text         string
	Alternatives []*AlternativeNode
	Pos          Position
}

func newEmptyAlternative(pos Position) *AlternativeNode {
	return &AlternativeNode{
		Terms: []*TermNode{
			{
				Factor: &FactorNode{
					Repetition: 1,
					Primary: &PrimaryNode{
						Kind: PrimaryKindEmpty,
						Pos:  pos,
					},
					Pos: pos,
				},
				Pos: pos,
			},
		},
		Pos: pos,
	}
}

// References returns the rule references appearing in the alternative, including ones nested in groups,
// options, repetitions, and exception clauses, in source order.
func (n *AlternativeNode) References() []*PrimaryNode {
	return appendAlternativeReferences(nil, n)
}

// References returns the rule references appearing in the factor in source order.
func (n *FactorNode) References() []*PrimaryNode {
	return appendPrimaryReferences(nil, n.Primary)
}

func appendAlternativeReferences(refs []*PrimaryNode, alt *AlternativeNode) []*PrimaryNode {
	for _, term := range alt.Terms {
		refs = appendPrimaryReferences(refs, term.Factor.Primary)
		if term.Exception != nil {
			refs = appendPrimaryReferences(refs, term.Exception.Primary)
		}
	}
	return refs
}

func appendPrimaryReferences(refs []*PrimaryNode, prim *PrimaryNode) []*PrimaryNode {
	switch prim.Kind {
	case PrimaryKindReference:
		return append(refs, prim)
	case PrimaryKindGroup, PrimaryKindOptional, PrimaryKindRepeated:
		for _, alt := range prim.Alternatives {
			refs = appendAlternativeReferences(refs, alt)
		}
		return refs
	case PrimaryKindTerminal, PrimaryKindSpecial, PrimaryKindEmpty:
		return refs
	}
	panic(fmt.Errorf("unknown primary kind: %v", prim.Kind))
}
