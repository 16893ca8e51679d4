package grammar

import (
	"fmt"

	"github.com/nihei9/isoebnf/spec"
)

// LeftRecursiveRules returns the rules that can reach themselves without consuming any input, in declaration
// order. Both direct and indirect recursion are reported. The walk follows the leftmost primary of every
// alternative, looks into groups, options, and repetitions, and also passes over leading terms that can match
// the empty string because they let the matcher re-enter a rule at the same offset just as well.
//
// The grammar must have been resolved.
func LeftRecursiveRules(g *Grammar) []*Rule {
	n := newNullability(g)
	var rules []*Rule
	for _, r := range g.rules {
		c := &leftRecursionChecker{
			g:        g,
			nullable: n,
			origin:   r.ID,
			visited:  map[RuleID]struct{}{},
		}
		if c.alternatives(r.Alternatives) {
			rules = append(rules, r)
		}
	}
	return rules
}

type leftRecursionChecker struct {
	g        *Grammar
	nullable *nullability
	origin   RuleID

	// visited memoizes the rules already walked from origin so that cycles not passing through origin
	// terminate.
	visited map[RuleID]struct{}
}

func (c *leftRecursionChecker) alternatives(alts []*spec.AlternativeNode) bool {
	for _, alt := range alts {
		if c.alternative(alt) {
			return true
		}
	}
	return false
}

func (c *leftRecursionChecker) alternative(alt *spec.AlternativeNode) bool {
	for _, term := range alt.Terms {
		if c.factor(term.Factor) {
			return true
		}
		if !c.nullable.factor(term.Factor) {
			return false
		}
	}
	return false
}

func (c *leftRecursionChecker) factor(f *spec.FactorNode) bool {
	if f.Repetition == 0 {
		return false
	}
	return c.primary(f.Primary)
}

func (c *leftRecursionChecker) primary(prim *spec.PrimaryNode) bool {
	switch prim.Kind {
	case spec.PrimaryKindReference:
		id := c.g.ruleIDs[prim.Name]
		if id == c.origin {
			return true
		}
		if _, ok := c.visited[id]; ok {
			return false
		}
		c.visited[id] = struct{}{}
		return c.alternatives(c.g.rules[id].Alternatives)
	case spec.PrimaryKindGroup, spec.PrimaryKindOptional, spec.PrimaryKindRepeated:
		return c.alternatives(prim.Alternatives)
	case spec.PrimaryKindTerminal, spec.PrimaryKindSpecial, spec.PrimaryKindEmpty:
		return false
	}
	panic(fmt.Errorf("unknown primary kind: %v", prim.Kind))
}

// nullability knows which rules can match the empty string.
type nullability struct {
	g     *Grammar
	rules []bool
}

func newNullability(g *Grammar) *nullability {
	n := &nullability{
		g:     g,
		rules: make([]bool, len(g.rules)),
	}
	for changed := true; changed; {
		changed = false
		for _, r := range g.rules {
			if n.rules[r.ID] || !n.alternatives(r.Alternatives) {
				continue
			}
			n.rules[r.ID] = true
			changed = true
		}
	}
	return n
}

func (n *nullability) alternatives(alts []*spec.AlternativeNode) bool {
	for _, alt := range alts {
		if n.alternative(alt) {
			return true
		}
	}
	return false
}

func (n *nullability) alternative(alt *spec.AlternativeNode) bool {
	for _, term := range alt.Terms {
		if !n.factor(term.Factor) {
			return false
		}
	}
	return true
}

func (n *nullability) factor(f *spec.FactorNode) bool {
	return f.Repetition == 0 || n.primary(f.Primary)
}

// primary treats a special sequence as non-nullable. Special sequence validators are supplied only at
// validation time, so the compiler cannot know better.
func (n *nullability) primary(prim *spec.PrimaryNode) bool {
	switch prim.Kind {
	case spec.PrimaryKindReference:
		return n.rules[n.g.ruleIDs[prim.Name]]
	case spec.PrimaryKindTerminal:
		return prim.Text == ""
	case spec.PrimaryKindGroup:
		return n.alternatives(prim.Alternatives)
	case spec.PrimaryKindOptional, spec.PrimaryKindRepeated, spec.PrimaryKindEmpty:
		return true
	case spec.PrimaryKindSpecial:
		return false
	}
	panic(fmt.Errorf("unknown primary kind: %v", prim.Kind))
}
