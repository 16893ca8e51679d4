package validator

import "errors"

// SpecialSequence gives meaning to special sequences (`? ... ?`). text is the text between the question
// marks, verbatim.
type SpecialSequence interface {
	// IsValid reports whether the implementation handles the special sequence.
	IsValid(text string) bool

	// Consume matches the special sequence at the cursor. On success, it advances the cursor by exactly the
	// length of the matched input and returns true. On failure, it must leave the cursor untouched.
	Consume(c *Cursor, text string) bool
}

var (
	errNoSpecialSequenceValidator = errors.New("no validator defined for the special sequence")
	errAmbiguousSpecialSequence   = errors.New("ambiguous special sequence; more than one validator claims it")
)

type specialSequenceEntry struct {
	ss  SpecialSequence
	err error
}

// specialSequenceCache remembers which validator claims each special sequence text.
type specialSequenceCache struct {
	validators []SpecialSequence
	entries    map[string]*specialSequenceEntry
}

func newSpecialSequenceCache(validators []SpecialSequence) *specialSequenceCache {
	return &specialSequenceCache{
		validators: validators,
		entries:    map[string]*specialSequenceEntry{},
	}
}

func (c *specialSequenceCache) lookup(text string) (SpecialSequence, error) {
	if e, ok := c.entries[text]; ok {
		return e.ss, e.err
	}

	e := &specialSequenceEntry{}
	for _, ss := range c.validators {
		if !ss.IsValid(text) {
			continue
		}
		if e.ss != nil {
			e.ss = nil
			e.err = errAmbiguousSpecialSequence
			break
		}
		e.ss = ss
	}
	if e.ss == nil && e.err == nil {
		e.err = errNoSpecialSequenceValidator
	}
	c.entries[text] = e
	return e.ss, e.err
}

func (c *specialSequenceCache) reset() {
	c.entries = map[string]*specialSequenceEntry{}
}
