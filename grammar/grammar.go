package grammar

import (
	"io"
	"sort"

	verr "github.com/nihei9/isoebnf/error"
	"github.com/nihei9/isoebnf/spec"
)

// RuleID is a handle of a rule. It is the index of the rule in Grammar.Rules.
type RuleID int

const RuleIDNil = RuleID(-1)

func (id RuleID) Int() int {
	return int(id)
}

// RuleSet is a set of rules kept in ascending order of their IDs.
type RuleSet struct {
	ids []RuleID
}

func (s *RuleSet) add(id RuleID) {
	i := sort.Search(len(s.ids), func(i int) bool {
		return s.ids[i] >= id
	})
	if i < len(s.ids) && s.ids[i] == id {
		return
	}
	s.ids = append(s.ids, 0)
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = id
}

func (s RuleSet) Contains(id RuleID) bool {
	i := sort.Search(len(s.ids), func(i int) bool {
		return s.ids[i] >= id
	})
	return i < len(s.ids) && s.ids[i] == id
}

func (s RuleSet) Len() int {
	return len(s.ids)
}

// IDs returns the members in ascending order. The caller must not modify the returned slice.
func (s RuleSet) IDs() []RuleID {
	return s.ids
}

// Rule is a named set of alternatives. The reference sets are filled in once by the resolver, and a rule is
// read-only after that.
type Rule struct {
	ID           RuleID
	Name         string
	Alternatives []*spec.AlternativeNode
	Pos          spec.Position

	// ReferencedBy holds the rules whose alternatives reference this rule.
	ReferencedBy RuleSet

	// ReferencesTo holds the rules this rule's alternatives reference.
	ReferencesTo RuleSet
}

// Grammar is a resolved and checked grammar. A Grammar is read-only and safe to share between goroutines.
type Grammar struct {
	rules     []*Rule
	ruleIDs   map[string]RuleID
	startRule RuleID
}

func newGrammar(root *spec.RootNode) (*Grammar, error) {
	if len(root.Rules) == 0 {
		return nil, verr.SpecErrors{
			{
				Cause: semErrNoRule,
			},
		}
	}

	g := &Grammar{
		rules:     make([]*Rule, 0, len(root.Rules)),
		ruleIDs:   make(map[string]RuleID, len(root.Rules)),
		startRule: RuleIDNil,
	}
	var errs verr.SpecErrors
	for _, r := range root.Rules {
		if _, ok := g.ruleIDs[r.Name]; ok {
			errs = append(errs, &verr.SpecError{
				Cause:  semErrDuplicateRule,
				Detail: r.Name,
				Row:    r.Pos.Row,
				Col:    r.Pos.Col,
				Index:  r.Pos.Index,
			})
			continue
		}
		id := RuleID(len(g.rules))
		g.rules = append(g.rules, &Rule{
			ID:           id,
			Name:         r.Name,
			Alternatives: r.Alternatives,
			Pos:          r.Pos,
		})
		g.ruleIDs[r.Name] = id
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return g, nil
}

// Rules returns all rules in declaration order.
func (g *Grammar) Rules() []*Rule {
	return g.rules
}

func (g *Grammar) Rule(id RuleID) *Rule {
	return g.rules[id]
}

func (g *Grammar) LookupRule(name string) (*Rule, bool) {
	id, ok := g.ruleIDs[name]
	if !ok {
		return nil, false
	}
	return g.rules[id], true
}

// StartRule returns the only rule that no other rule references.
func (g *Grammar) StartRule() *Rule {
	return g.rules[g.startRule]
}

type GrammarBuilder struct {
	AST *spec.RootNode
}

// Build resolves references between rules, selects the start rule, and rejects left-recursive rules. When
// the grammar has structural errors, Build returns them all as verr.SpecErrors.
func (b *GrammarBuilder) Build() (*Grammar, error) {
	g, err := newGrammar(b.AST)
	if err != nil {
		return nil, err
	}

	err = resolve(g)
	if err != nil {
		return nil, err
	}

	leftRecRules := LeftRecursiveRules(g)
	if len(leftRecRules) > 0 {
		var errs verr.SpecErrors
		for _, r := range leftRecRules {
			errs = append(errs, &verr.SpecError{
				Cause:  semErrLeftRecursion,
				Detail: r.Name,
				Row:    r.Pos.Row,
				Col:    r.Pos.Col,
				Index:  r.Pos.Index,
			})
		}
		return nil, errs
	}

	return g, nil
}

// Compile parses a grammar text and builds a checked grammar from it.
func Compile(src io.Reader) (*Grammar, error) {
	ast, err := spec.Parse(src)
	if err != nil {
		return nil, err
	}
	b := GrammarBuilder{
		AST: ast,
	}
	return b.Build()
}
