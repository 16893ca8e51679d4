package validator

import (
	"fmt"
	"sort"

	"github.com/nihei9/isoebnf/spec"
)

// exceptionFailure is a fatal failure met while enumerating the matches of an exception.
type exceptionFailure struct {
	pos spec.Position
	msg string
}

// exceptionEnds enumerates every cursor at which a match of an exception can end, starting from any of cs.
// Unlike the matcher, which commits to the furthest success of each choice, it explores every alternative,
// every optional both ways, and every repetition count. An exception references no rules, so the set is
// finite and the enumeration terminates.
type exceptionEnds struct {
	m *matcher
}

func (x *exceptionEnds) factor(cs []Cursor, f *spec.FactorNode) ([]Cursor, *exceptionFailure) {
	for i := 0; i < f.Repetition && len(cs) > 0; i++ {
		var fail *exceptionFailure
		cs, fail = x.primary(cs, f.Primary)
		if fail != nil {
			return nil, fail
		}
	}
	return cs, nil
}

func (x *exceptionEnds) primary(cs []Cursor, prim *spec.PrimaryNode) ([]Cursor, *exceptionFailure) {
	switch prim.Kind {
	case spec.PrimaryKindEmpty:
		return cs, nil
	case spec.PrimaryKindReference:
		panic(fmt.Errorf("an exception cannot contain a rule reference: %v", prim.Name))
	case spec.PrimaryKindTerminal:
		var ends []Cursor
		for _, c := range cs {
			q := newPath(c)
			x.m.matchTerminal(q, prim.Text)
			if !q.failed() {
				ends = append(ends, q.cur)
			}
		}
		return ends, nil
	case spec.PrimaryKindSpecial:
		var ends []Cursor
		for _, c := range cs {
			q := newPath(c)
			x.m.matchSpecialSequence(q, prim.Text)
			if q.fatal {
				return nil, &exceptionFailure{
					pos: q.errPos,
					msg: q.msg,
				}
			}
			if !q.failed() {
				ends = append(ends, q.cur)
			}
		}
		return ends, nil
	case spec.PrimaryKindGroup:
		return x.alternatives(cs, prim.Alternatives)
	case spec.PrimaryKindOptional:
		ends, fail := x.alternatives(cs, prim.Alternatives)
		if fail != nil {
			return nil, fail
		}
		return uniqueCursors(append(ends, cs...)), nil
	case spec.PrimaryKindRepeated:
		all := uniqueCursors(cs)
		frontier := all
		for len(frontier) > 0 {
			ends, fail := x.alternatives(frontier, prim.Alternatives)
			if fail != nil {
				return nil, fail
			}
			frontier = nil
			for _, e := range ends {
				if !containsOffset(all, e.Offset()) {
					frontier = append(frontier, e)
				}
			}
			all = uniqueCursors(append(all, frontier...))
		}
		return all, nil
	default:
		panic(fmt.Errorf("unknown primary kind: %v", prim.Kind))
	}
}

func (x *exceptionEnds) alternatives(cs []Cursor, alts []*spec.AlternativeNode) ([]Cursor, *exceptionFailure) {
	var ends []Cursor
	for _, alt := range alts {
		es := cs
		for _, term := range alt.Terms {
			var fail *exceptionFailure
			es, fail = x.term(es, term)
			if fail != nil {
				return nil, fail
			}
			if len(es) == 0 {
				break
			}
		}
		ends = append(ends, es...)
	}
	return uniqueCursors(ends), nil
}

// term drops the ends of the factor that a match of the term's own exception also reaches.
func (x *exceptionEnds) term(cs []Cursor, term *spec.TermNode) ([]Cursor, *exceptionFailure) {
	if term.Exception == nil {
		return x.factor(cs, term.Factor)
	}
	var ends []Cursor
	for _, c := range cs {
		es, fail := x.factor([]Cursor{c}, term.Factor)
		if fail != nil {
			return nil, fail
		}
		for _, e := range es {
			excluded, fail := x.excludes(c, e, term.Exception)
			if fail != nil {
				return nil, fail
			}
			if !excluded {
				ends = append(ends, e)
			}
		}
	}
	return uniqueCursors(ends), nil
}

// excludes reports whether the exception matches exactly the input between start and end. The exception
// sees no input beyond end.
func (x *exceptionEnds) excludes(start, end Cursor, exception *spec.FactorNode) (bool, *exceptionFailure) {
	ends, fail := x.factor([]Cursor{start.limit(end.Offset())}, exception)
	if fail != nil {
		return false, fail
	}
	return containsOffset(ends, end.Offset()), nil
}

// uniqueCursors sorts cs by offset and drops duplicates.
func uniqueCursors(cs []Cursor) []Cursor {
	if len(cs) == 0 {
		return nil
	}
	sorted := make([]Cursor, len(cs))
	copy(sorted, cs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset() < sorted[j].Offset()
	})
	u := sorted[:1]
	for _, c := range sorted[1:] {
		if c.Offset() != u[len(u)-1].Offset() {
			u = append(u, c)
		}
	}
	return u
}

func containsOffset(cs []Cursor, offset int) bool {
	for _, c := range cs {
		if c.Offset() == offset {
			return true
		}
	}
	return false
}
