package validator

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nihei9/isoebnf/grammar"
	"github.com/nihei9/isoebnf/spec"
)

type validateTest struct {
	caption string
	input   string
	opts    []ValidateOption
	valid   bool
	message string
}

func TestValidate(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		specs   []SpecialSequence
		tests   []validateTest
	}{
		{
			caption: "an exception excludes an exact-length match",
			src:     `syntax = ( 'a' | 'b' ) - 'a' ;`,
			tests: []validateTest{
				{caption: "excluded", input: "a", message: "the input matches the exception"},
				{caption: "not excluded", input: "b", valid: true},
			},
		},
		{
			caption: "an exception does not exclude a longer match",
			src:     `syntax = { 'A' | 'B' | 'C' } - 'ABC' ;`,
			tests: []validateTest{
				{caption: "same length", input: "ABC", message: "the input matches the exception"},
				{caption: "longer", input: "ABCA", valid: true},
				{caption: "shorter", input: "AB", valid: true},
				{caption: "empty", input: "", valid: true},
			},
		},
		{
			caption: "any match of the exception excludes the term, not only the longest one",
			src:     `syntax = 'a' - ( 'a' | 'aa' ), 'a' ;`,
			tests: []validateTest{
				{caption: "shorter alternative matches", input: "aa", message: "1:1 (index 0): the input matches the exception"},
			},
		},
		{
			caption: "the order of the exception's alternatives does not matter",
			src:     `syntax = 'a' - ( 'aa' | 'a' ), 'a' ;`,
			tests: []validateTest{
				{caption: "longer alternative listed first", input: "aa", message: "the input matches the exception"},
			},
		},
		{
			caption: "every repetition count of the exception is tried",
			src:     `syntax = 'aa' - ( { 'a' }, 'a' ), 'b' ;`,
			tests: []validateTest{
				{caption: "excluded", input: "aab", message: "the input matches the exception"},
			},
		},
		{
			caption: "an optional in the exception is tried both ways",
			src:     `syntax = 'ab' - ( 'a', [ 'b' ] ) | 'abc' ;`,
			tests: []validateTest{
				{caption: "with the optional", input: "ab", message: "the input matches the exception"},
				{caption: "other alternative", input: "abc", valid: true},
			},
		},
		{
			caption: "an exception whose matches all differ in length does not exclude",
			src:     `syntax = 'ab' - ( 'a', [ 'b', 'c' ] ), 'c' ;`,
			tests: []validateTest{
				{caption: "neither 'a' nor 'abc' covers 'ab'", input: "abc", valid: true},
			},
		},
		{
			caption: "an exception sees no input beyond the match of the factor",
			src:     `syntax = '12' - ?digits?, '3' ;`,
			specs:   []SpecialSequence{&digits{}},
			tests: []validateTest{
				{caption: "excluded", input: "123", message: "the input matches the exception"},
			},
		},
		{
			caption: "an exception may nest another exception",
			src:     `syntax = 'ab' - ( ( 'a' | 'ab' ) - 'a' ) | 'b' ;`,
			tests: []validateTest{
				{caption: "inner exception leaves 'ab'", input: "ab", message: "the input matches the exception"},
				{caption: "other alternative", input: "b", valid: true},
			},
		},
		{
			caption: "a nested exception removing the only match does not exclude",
			src:     `syntax = 'ab' - ( 'ab' - 'ab' ) ;`,
			tests: []validateTest{
				{caption: "kept", input: "ab", valid: true},
			},
		},
		{
			caption: "a fatal failure in an exception is not swallowed",
			src:     `syntax = 'a' - ?unknown? | 'b' ;`,
			tests: []validateTest{
				{caption: "fatal", input: "a", message: "1:1 (index 0): no validator defined for the special sequence: ?unknown?"},
				{caption: "other alternative", input: "b", valid: true},
			},
		},
		{
			caption: "an exact repetition count",
			src:     `syntax = 3 * 'a' ;`,
			tests: []validateTest{
				{caption: "short", input: "aa", message: "expected 'a', found end of input"},
				{caption: "exact", input: "aaa", valid: true},
				{caption: "trailing input", input: "aaaa", message: "expected end of input, found 'a'"},
			},
		},
		{
			caption: "a zero repetition count matches the empty string",
			src:     `syntax = 0 * 'a', 'b' ;`,
			tests: []validateTest{
				{caption: "without the primary", input: "b", valid: true},
				{caption: "with the primary", input: "ab", message: "expected 'b', found 'a'"},
			},
		},
		{
			caption: "two top-level alternatives matching the whole input are ambiguous",
			src:     `syntax = 'a', ['b'] | 'a', 'b' ;`,
			tests: []validateTest{
				{caption: "ambiguous", input: "ab", message: "ambiguous input"},
				{caption: "only one alternative matches", input: "a", valid: true},
			},
		},
		{
			caption: "the empty grammar accepts only the empty string",
			src:     `syntax = ;`,
			tests: []validateTest{
				{caption: "empty", input: "", valid: true},
				{caption: "not empty", input: "x", message: "expected end of input, found 'x'"},
			},
		},
		{
			caption: "a group resumes from the furthest success without retrying shorter ones",
			src:     `syntax = ( 'a' | 'ab' ), 'bc' ;`,
			tests: []validateTest{
				{caption: "longest", input: "abbc", valid: true},
				{caption: "shorter one is not retried", input: "abc", message: "1:3 (index 2): expected 'bc', found 'c'"},
			},
		},
		{
			caption: "an optional never fails",
			src:     `syntax = [ 'a', 'b' | 'c' ], 'd' ;`,
			tests: []validateTest{
				{caption: "absent", input: "d", valid: true},
				{caption: "first alternative", input: "abd", valid: true},
				{caption: "second alternative", input: "cd", valid: true},
				{caption: "partially present", input: "ad", message: "expected 'd', found 'a'"},
			},
		},
		{
			caption: "repetitions terminate even when the body matches the empty string",
			src:     `syntax = { [ 'a' ] | { 'b' } }, 'c' ;`,
			tests: []validateTest{
				{caption: "nothing repeated", input: "c", valid: true},
				{caption: "mixed", input: "abbac", valid: true},
				{caption: "unexpected", input: "abx", message: "expected 'c', found 'x'"},
			},
		},
		{
			caption: "the deepest failure is reported",
			src:     `syntax = 'a', 'b', 'c' | 'a', 'x' ;`,
			tests: []validateTest{
				{caption: "second alternative fails earlier", input: "abd", message: "1:3 (index 2): expected 'c', found 'd'"},
			},
		},
		{
			caption: "terminals may be multi-byte characters",
			src:     `syntax = 'é', "x'" ;`,
			tests: []validateTest{
				{caption: "matched", input: "éx'", valid: true},
				{caption: "mismatched", input: "éy", message: "1:2 (index 1): expected \"x'\", found 'y'"},
			},
		},
		{
			caption: "rows advance on newlines",
			src:     "syntax = 'a', '\n', 'b' ;",
			tests: []validateTest{
				{caption: "second row", input: "a\nc", message: "2:1 (index 2): expected 'b', found 'c'"},
			},
		},
		{
			caption: "terminals have no escape sequences",
			src:     `syntax = 'a', '\n' ;`,
			tests: []validateTest{
				{caption: "backslash", input: `a\n`, valid: true},
				{caption: "newline", input: "a\n", message: "expected '\\n', found '\n'"},
			},
		},
		{
			caption: "special sequences are delegated",
			src:     `syntax = ?digits?, { ',', ?digits? } ;`,
			specs:   []SpecialSequence{&digits{}},
			tests: []validateTest{
				{caption: "one number", input: "12", valid: true},
				{caption: "several numbers", input: "1,23,456", valid: true},
				{caption: "a failed iteration is not consumed", input: "1,", message: "1:2 (index 1): expected end of input, found ','"},
			},
		},
		{
			caption: "a special sequence no validator claims fails the path",
			src:     `syntax = ?unknown?, 'a' | 'b' ;`,
			specs:   []SpecialSequence{&digits{}},
			tests: []validateTest{
				{caption: "sibling succeeds", input: "b", valid: true},
				{caption: "failure is reported", input: "a", message: "no validator defined for the special sequence: ?unknown?"},
			},
		},
		{
			caption: "an optional does not swallow a fatal failure",
			src:     `syntax = [ ?unknown? ], 'a' ;`,
			tests: []validateTest{
				{caption: "fatal", input: "a", message: "no validator defined"},
			},
		},
		{
			caption: "a repetition does not swallow a fatal failure",
			src:     `syntax = 'a', { 'b' | ?digits? } ;`,
			specs:   []SpecialSequence{&digits{}, &digits{}},
			tests: []validateTest{
				{caption: "fatal", input: "abb", message: "ambiguous special sequence"},
			},
		},
		{
			caption: "a fatal failure beats a deeper plain failure",
			src:     `syntax = 'a', 'b', 'c' | 'a', ?digits? ;`,
			specs:   []SpecialSequence{&digits{}, &digits{}},
			tests: []validateTest{
				{caption: "fatal", input: "abx", message: "1:2 (index 1): ambiguous special sequence"},
			},
		},
		{
			caption: "rule scoping",
			src:     `syntax = a, b ; a = 'x' ; b = 'y', c ; c = 'z' ;`,
			tests: []validateTest{
				{caption: "no filter", input: "xyz", valid: true},
				{caption: "excluded rules pass without input", input: "y", opts: []ValidateOption{Exclude("a", "c")}, valid: true},
				{caption: "excluded rules do not consume input", input: "xyz", opts: []ValidateOption{Exclude("a")}, message: "expected 'y', found 'x'"},
				{caption: "only included rules are invoked", input: "yz", opts: []ValidateOption{Include("b", "c")}, valid: true},
				{caption: "the start rule is always invoked", input: "", opts: []ValidateOption{Include("c")}, valid: true},
				{caption: "start rule", input: "yz", opts: []ValidateOption{StartRule("b")}, valid: true},
				{caption: "start rule with a filter", input: "y", opts: []ValidateOption{StartRule("b"), Exclude("c")}, valid: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			g := compile(t, tt.src)
			v, err := New(g, SpecialSequences(tt.specs...))
			if err != nil {
				t.Fatal(err)
			}
			for _, vt := range tt.tests {
				t.Run(vt.caption, func(t *testing.T) {
					res, err := v.Validate(strings.NewReader(vt.input), vt.opts...)
					if err != nil {
						t.Fatal(err)
					}
					if res.Valid != vt.valid {
						t.Fatalf("unexpected validity; want: %v, got: %v (%v)", vt.valid, res.Valid, res.Message)
					}
					if vt.valid {
						if res.Message != "" {
							t.Fatalf("a valid result must not have a message: %v", res.Message)
						}
						return
					}
					if !strings.Contains(res.Message, vt.message) {
						t.Fatalf("unexpected message; want: %v, got: %v", vt.message, res.Message)
					}
				})
			}
		})
	}
}

func TestValidate_Trace(t *testing.T) {
	g := compile(t, `syntax=(word|integer); word=letter,{letter}; integer=digit,{digit}; letter='A'|'B'|'C'; digit='0'|'1'|'2';`)
	v, err := New(g)
	if err != nil {
		t.Fatal(err)
	}

	res, err := v.Validate(strings.NewReader("ABC"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid {
		t.Fatalf("unexpected result: %v", res.Message)
	}

	expected := []struct {
		rule  string
		depth int
		entry int
		exit  int
	}{
		{rule: "syntax", depth: 0, entry: 0, exit: 3},
		{rule: "word", depth: 1, entry: 0, exit: 3},
		{rule: "letter", depth: 2, entry: 0, exit: 1},
		{rule: "letter", depth: 2, entry: 1, exit: 2},
		{rule: "letter", depth: 2, entry: 2, exit: 3},
	}
	if len(res.Trace) != len(expected) {
		var b bytes.Buffer
		PrintTrace(&b, res.Trace)
		t.Fatalf("unexpected trace length; want: %v, got: %v\n%v", len(expected), len(res.Trace), b.String())
	}
	for i, e := range expected {
		f := res.Trace[i]
		if f.Rule != e.rule || f.Depth != e.depth || f.State != FrameStateExited {
			t.Fatalf("unexpected frame #%v; want: %v (depth %v, exited), got: %v (depth %v, %v)", i, e.rule, e.depth, f.Rule, f.Depth, f.State)
		}
		if f.Entry.Index != e.entry || f.Exit.Index != e.exit {
			t.Fatalf("unexpected offsets of frame #%v; want: %v-%v, got: %v-%v", i, e.entry, e.exit, f.Entry.Index, f.Exit.Index)
		}
		if f.Entry.Row != 1 || f.Entry.Col != e.entry+1 || f.Exit.Col != e.exit+1 {
			t.Fatalf("unexpected positions of frame #%v: %v-%v", i, f.Entry, f.Exit)
		}
	}
}

func TestValidate_FailureTrace(t *testing.T) {
	g := compile(t, `s = w ; w = 'a', 'b' ;`)
	v, err := New(g)
	if err != nil {
		t.Fatal(err)
	}

	res, err := v.Validate(strings.NewReader("a\nc"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Fatalf("the input must be invalid")
	}
	pos := spec.Position{Row: 1, Col: 2, Index: 1}
	if res.Pos != pos {
		t.Fatalf("unexpected position; want: %v, got: %v", pos, res.Pos)
	}
	if len(res.Trace) != 2 {
		t.Fatalf("unexpected trace length: %v", len(res.Trace))
	}
	for _, f := range res.Trace {
		if f.State != FrameStateFailed || f.Error != pos {
			t.Fatalf("unexpected frame: %+v", f)
		}
	}

	var b bytes.Buffer
	PrintTrace(&b, res.Trace)
	want := "s 1:1 failed at 1:2 (index 1)\n  w 1:1 failed at 1:2 (index 1)\n"
	if b.String() != want {
		t.Fatalf("unexpected trace output; want: %q, got: %q", want, b.String())
	}
}

func TestValidate_UsageErrors(t *testing.T) {
	g := compile(t, `syntax = a ; a = 'x' ;`)
	v, err := New(g)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		caption string
		opts    []ValidateOption
		err     error
	}{
		{
			caption: "unknown start rule",
			opts:    []ValidateOption{StartRule("b")},
			err:     ErrUnknownRule,
		},
		{
			caption: "unknown rule in an include filter",
			opts:    []ValidateOption{Include("a", "b")},
			err:     ErrUnknownRule,
		},
		{
			caption: "unknown rule in an exclude filter",
			opts:    []ValidateOption{Exclude("b")},
			err:     ErrUnknownRule,
		},
		{
			caption: "include and exclude together",
			opts:    []ValidateOption{Include("a"), Exclude("syntax")},
			err:     ErrConflictingFilters,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := v.Validate(strings.NewReader("x"), tt.opts...)
			if !errors.Is(err, tt.err) {
				t.Fatalf("unexpected error; want: %v, got: %v", tt.err, err)
			}
		})
	}
}

func TestNew_Options(t *testing.T) {
	g := compile(t, `syntax = 'x' ;`)
	if _, err := New(nil); err == nil {
		t.Fatal("a nil grammar must be rejected")
	}
	if _, err := New(g, SpecialSequences(nil)); err == nil {
		t.Fatal("a nil special sequence validator must be rejected")
	}
	if _, err := New(g, Logger(nil)); err == nil {
		t.Fatal("a nil logger must be rejected")
	}

	var b bytes.Buffer
	l := slog.New(slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug}))
	v, err := New(g, Logger(l))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Validate(strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "enter rule") || !strings.Contains(b.String(), "exit rule") {
		t.Fatalf("rule entries and exits must be logged: %v", b.String())
	}
}

func TestValidator_ResetCache(t *testing.T) {
	g := compile(t, `syntax = ?digits?, ',', ?digits? ;`)
	d := &digits{}
	v, err := New(g, SpecialSequences(d))
	if err != nil {
		t.Fatal(err)
	}

	validate := func() {
		t.Helper()
		res, err := v.Validate(strings.NewReader("1,2"))
		if err != nil {
			t.Fatal(err)
		}
		if !res.Valid {
			t.Fatalf("unexpected result: %v", res.Message)
		}
	}

	validate()
	validate()
	if d.lookups != 1 {
		t.Fatalf("a special sequence must be looked up once until the cache is reset; got: %v", d.lookups)
	}
	v.ResetCache()
	validate()
	if d.lookups != 2 {
		t.Fatalf("a reset cache must look a special sequence up again; got: %v", d.lookups)
	}
}

// digits claims the special sequence `?digits?` and consumes one or more ASCII digits.
type digits struct {
	lookups int
}

func (d *digits) IsValid(text string) bool {
	d.lookups++
	return text == "digits"
}

func (d *digits) Consume(c *Cursor, text string) bool {
	n := 0
	for _, b := range c.Remaining() {
		if b < '0' || b > '9' {
			break
		}
		n++
	}
	if n == 0 {
		return false
	}
	c.Advance(n)
	return true
}

func compile(t *testing.T, src string) *grammar.Grammar {
	t.Helper()

	g, err := grammar.Compile(strings.NewReader(src))
	if err != nil {
		t.Fatalf("failed to compile a grammar: %v", err)
	}
	return g
}
