package grammar

import (
	"strings"

	verr "github.com/nihei9/isoebnf/error"
)

// resolve fills in the reference sets of every rule and selects the start rule. The start rule is the only
// rule that no rule other than itself references.
func resolve(g *Grammar) error {
	var errs verr.SpecErrors
	for _, r := range g.rules {
		for _, alt := range r.Alternatives {
			for _, ref := range alt.References() {
				id, ok := g.ruleIDs[ref.Name]
				if !ok {
					errs = append(errs, &verr.SpecError{
						Cause:  semErrUndefinedRule,
						Detail: ref.Name,
						Row:    ref.Pos.Row,
						Col:    ref.Pos.Col,
						Index:  ref.Pos.Index,
					})
					continue
				}
				r.ReferencesTo.add(id)
				g.rules[id].ReferencedBy.add(r.ID)
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	var starts []*Rule
	for _, r := range g.rules {
		n := r.ReferencedBy.Len()
		if r.ReferencedBy.Contains(r.ID) {
			n--
		}
		if n == 0 {
			starts = append(starts, r)
		}
	}
	switch len(starts) {
	case 0:
		return verr.SpecErrors{
			{
				Cause: semErrNoStartRule,
			},
		}
	case 1:
		g.startRule = starts[0].ID
		return nil
	}

	names := make([]string, len(starts))
	for i, r := range starts {
		names[i] = r.Name
	}
	return verr.SpecErrors{
		{
			Cause:  semErrMultiStartRules,
			Detail: strings.Join(names, ", "),
			Row:    starts[1].Pos.Row,
			Col:    starts[1].Pos.Col,
			Index:  starts[1].Pos.Index,
		},
	}
}
