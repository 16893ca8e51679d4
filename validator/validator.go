package validator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nihei9/isoebnf/grammar"
	"github.com/nihei9/isoebnf/spec"
)

var (
	ErrUnknownRule        = errors.New("unknown rule")
	ErrConflictingFilters = errors.New("include and exclude filters cannot be used together")
)

type Option func(v *Validator) error

// SpecialSequences registers validators for special sequences. Every special sequence the matcher reaches must
// be claimed by exactly one of them.
func SpecialSequences(ss ...SpecialSequence) Option {
	return func(v *Validator) error {
		for _, s := range ss {
			if s == nil {
				return fmt.Errorf("a special sequence validator must not be nil")
			}
		}
		v.specials = newSpecialSequenceCache(append(v.specials.validators, ss...))
		return nil
	}
}

// Logger sets a logger receiving rule entries and exits at debug level.
func Logger(l *slog.Logger) Option {
	return func(v *Validator) error {
		if l == nil {
			return fmt.Errorf("a logger must not be nil")
		}
		v.logger = l
		return nil
	}
}

// Validator matches inputs against a compiled grammar. A Validator is not safe for concurrent Validate calls;
// use one Validator per goroutine. The grammar itself can be shared.
type Validator struct {
	g        *grammar.Grammar
	specials *specialSequenceCache
	logger   *slog.Logger
	debug    bool
}

func New(g *grammar.Grammar, opts ...Option) (*Validator, error) {
	if g == nil {
		return nil, fmt.Errorf("a grammar is required")
	}

	v := &Validator{
		g:        g,
		specials: newSpecialSequenceCache(nil),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		err := opt(v)
		if err != nil {
			return nil, err
		}
	}
	v.debug = v.logger.Enabled(context.Background(), slog.LevelDebug)

	return v, nil
}

// ResetCache forgets which validator claims each special sequence.
func (v *Validator) ResetCache() {
	v.specials.reset()
}

type validateConfig struct {
	startRule string
	include   []string
	exclude   []string
}

type ValidateOption func(c *validateConfig) error

// StartRule makes the matcher start from the named rule instead of the start rule of the grammar.
func StartRule(name string) ValidateOption {
	return func(c *validateConfig) error {
		c.startRule = name
		return nil
	}
}

// Include invokes only the named rules. References to any other rule succeed without consuming input.
func Include(names ...string) ValidateOption {
	return func(c *validateConfig) error {
		c.include = append(c.include, names...)
		return nil
	}
}

// Exclude makes references to the named rules succeed without consuming input.
func Exclude(names ...string) ValidateOption {
	return func(c *validateConfig) error {
		c.exclude = append(c.exclude, names...)
		return nil
	}
}

// filter decides which rule references are skipped. A nil set means the filter is not in effect.
type filter struct {
	include map[string]struct{}
	exclude map[string]struct{}
}

func (f *filter) skips(name string) bool {
	if f.include != nil {
		_, ok := f.include[name]
		return !ok
	}
	if f.exclude != nil {
		_, ok := f.exclude[name]
		return ok
	}
	return false
}

func (v *Validator) newFilter(c *validateConfig) (*filter, error) {
	if len(c.include) > 0 && len(c.exclude) > 0 {
		return nil, ErrConflictingFilters
	}
	toSet := func(names []string) (map[string]struct{}, error) {
		if len(names) == 0 {
			return nil, nil
		}
		set := map[string]struct{}{}
		for _, name := range names {
			if _, ok := v.g.LookupRule(name); !ok {
				return nil, fmt.Errorf("%w in a filter: %v", ErrUnknownRule, name)
			}
			set[name] = struct{}{}
		}
		return set, nil
	}
	inc, err := toSet(c.include)
	if err != nil {
		return nil, err
	}
	exc, err := toSet(c.exclude)
	if err != nil {
		return nil, err
	}
	return &filter{
		include: inc,
		exclude: exc,
	}, nil
}

// Validate matches the whole of src against the grammar. An input that does not match is not an error; it
// yields a Result whose Valid is false. Errors are reserved for invalid options and unreadable input.
func (v *Validator) Validate(src io.Reader, opts ...ValidateOption) (*Result, error) {
	c := &validateConfig{}
	for _, opt := range opts {
		err := opt(c)
		if err != nil {
			return nil, err
		}
	}

	start := v.g.StartRule()
	if c.startRule != "" {
		r, ok := v.g.LookupRule(c.startRule)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnknownRule, c.startRule)
		}
		start = r
	}
	f, err := v.newFilter(c)
	if err != nil {
		return nil, err
	}

	input, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read an input: %w", err)
	}

	m := &matcher{
		v:      v,
		filter: f,
	}

	// Each alternative of the start rule runs as its own path so that ambiguity among them can be detected.
	var paths []*path
	for _, alt := range start.Alternatives {
		p := newPath(NewCursor(input))
		i := p.enter(start.Name)
		m.logEnter(p, start.Name)
		m.matchAlternative(p, alt)
		p.leave(i)
		m.logLeave(p, start.Name)
		p.finish()
		paths = append(paths, p)
	}

	var full []*path
	for _, p := range paths {
		if p.succeeded() {
			full = append(full, p)
		}
	}
	switch {
	case len(full) == 1:
		return newValidResult(full[0]), nil
	case len(full) > 1:
		return newInvalidResult(full[0].cur.Position(), fmt.Sprintf("ambiguous input; %v alternatives of rule '%v' match the whole input", len(full), start.Name), full[0]), nil
	}

	deepest := deepestPath(paths)
	if deepest == nil {
		return &Result{
			Message: "no match",
		}, nil
	}
	if !deepest.failed() {
		return newInvalidResult(deepest.cur.Position(), fmt.Sprintf("expected end of input, found %v", deepest.cur.peekText()), deepest), nil
	}
	return newInvalidResult(deepest.errPos, deepest.msg, deepest), nil
}

// deepestPath picks the path explaining a failure best. A fatal failure comes first. Among the rest, the path
// that got furthest wins, then the one whose cursor progressed furthest, then the earlier one.
func deepestPath(paths []*path) *path {
	var deepest *path
	for _, p := range paths {
		if deepest == nil {
			deepest = p
			continue
		}
		if p.fatal != deepest.fatal {
			if p.fatal {
				deepest = p
			}
			continue
		}
		d, dd := p.depth().Index, deepest.depth().Index
		if d > dd || d == dd && p.cur.Offset() > deepest.cur.Offset() {
			deepest = p
		}
	}
	return deepest
}

type matcher struct {
	v      *Validator
	filter *filter
}

func (m *matcher) logEnter(p *path, rule string) {
	if !m.v.debug {
		return
	}
	m.v.logger.Debug("enter rule", "rule", rule, "pos", p.cur.Position().String(), "index", p.cur.Position().Index)
}

func (m *matcher) logLeave(p *path, rule string) {
	if !m.v.debug {
		return
	}
	if p.failed() {
		m.v.logger.Debug("rule failed", "rule", rule, "pos", p.errPos.String(), "index", p.errPos.Index, "message", p.msg)
		return
	}
	m.v.logger.Debug("exit rule", "rule", rule, "pos", p.cur.Position().String(), "index", p.cur.Position().Index)
}

func (m *matcher) callRule(p *path, r *grammar.Rule) {
	i := p.enter(r.Name)
	m.logEnter(p, r.Name)
	m.matchAlternatives(p, r.Alternatives)
	p.leave(i)
	m.logLeave(p, r.Name)
}

// matchAlternatives tries every alternative from the same position. It resumes from the success that got
// furthest, ties going to the earlier alternative. When none succeeds, p takes over the preferred failure.
func (m *matcher) matchAlternatives(p *path, alts []*spec.AlternativeNode) {
	success, failure := m.tryAlternatives(p, alts)
	if success != nil {
		*p = *success
		return
	}
	*p = *failure
}

func (m *matcher) tryAlternatives(p *path, alts []*spec.AlternativeNode) (success, failure *path) {
	for _, alt := range alts {
		q := p.fork()
		m.matchAlternative(q, alt)
		if q.failed() {
			if q.preferredFailure(failure) {
				failure = q
			}
			continue
		}
		if success == nil || q.cur.Offset() > success.cur.Offset() {
			success = q
		}
	}
	return success, failure
}

func (m *matcher) matchAlternative(p *path, alt *spec.AlternativeNode) {
	for _, term := range alt.Terms {
		m.matchTerm(p, term)
		if p.failed() {
			return
		}
	}
}

// matchTerm rejects the match of the factor when some match of the exception covers exactly the same input.
func (m *matcher) matchTerm(p *path, term *spec.TermNode) {
	start := p.cur
	m.matchFactor(p, term.Factor)
	if p.failed() || term.Exception == nil {
		return
	}

	x := &exceptionEnds{
		m: m,
	}
	excluded, fail := x.excludes(start, p.cur, term.Exception)
	if fail != nil {
		p.failFatally(fail.pos, fail.msg)
		return
	}
	if excluded {
		p.fail(start.Position(), fmt.Sprintf("the input matches the exception of the term at %v", term.Pos))
	}
}

func (m *matcher) matchFactor(p *path, f *spec.FactorNode) {
	for i := 0; i < f.Repetition; i++ {
		m.matchPrimary(p, f.Primary)
		if p.failed() {
			return
		}
	}
}

func (m *matcher) matchPrimary(p *path, prim *spec.PrimaryNode) {
	switch prim.Kind {
	case spec.PrimaryKindEmpty:
	case spec.PrimaryKindReference:
		if m.filter.skips(prim.Name) {
			return
		}
		r, ok := m.v.g.LookupRule(prim.Name)
		if !ok {
			panic(fmt.Errorf("undefined rule in a compiled grammar: %v", prim.Name))
		}
		m.callRule(p, r)
	case spec.PrimaryKindTerminal:
		m.matchTerminal(p, prim.Text)
	case spec.PrimaryKindSpecial:
		m.matchSpecialSequence(p, prim.Text)
	case spec.PrimaryKindGroup:
		m.matchAlternatives(p, prim.Alternatives)
	case spec.PrimaryKindOptional:
		success, failure := m.tryAlternatives(p, prim.Alternatives)
		switch {
		case success != nil:
			*p = *success
		case failure.fatal:
			*p = *failure
		}
	case spec.PrimaryKindRepeated:
		m.matchRepeated(p, prim.Alternatives)
	default:
		panic(fmt.Errorf("unknown primary kind: %v", prim.Kind))
	}
}

// matchRepeated applies the furthest-advancing alternative once per iteration until an iteration fails or
// stops advancing.
func (m *matcher) matchRepeated(p *path, alts []*spec.AlternativeNode) {
	for {
		success, failure := m.tryAlternatives(p, alts)
		if success == nil {
			if failure.fatal {
				*p = *failure
			}
			return
		}
		if success.cur.Offset() == p.cur.Offset() {
			return
		}
		*p = *success
	}
}

func (m *matcher) matchTerminal(p *path, text string) {
	if !bytes.HasPrefix(p.cur.Remaining(), []byte(text)) {
		p.fail(p.cur.Position(), fmt.Sprintf("expected %v, found %v", quoteTerminal(text), p.cur.peekText()))
		return
	}
	p.cur.Advance(len(text))
}

func (m *matcher) matchSpecialSequence(p *path, text string) {
	ss, err := m.v.specials.lookup(text)
	if err != nil {
		p.failFatally(p.cur.Position(), fmt.Sprintf("%v: ?%v?", err, text))
		return
	}
	c := p.cur
	if !ss.Consume(&c, text) {
		p.fail(p.cur.Position(), fmt.Sprintf("expected ?%v?, found %v", text, p.cur.peekText()))
		return
	}
	p.cur = c
}

func quoteTerminal(text string) string {
	if strings.Contains(text, "'") {
		return `"` + text + `"`
	}
	return "'" + text + "'"
}
