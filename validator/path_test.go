package validator

import (
	"testing"

	"github.com/nihei9/isoebnf/spec"
)

func TestPath_Finish(t *testing.T) {
	tests := []struct {
		caption   string
		input     string
		advance   int
		fail      bool
		succeeded bool
	}{
		{
			caption:   "a path consuming the whole input succeeds",
			input:     "ab",
			advance:   2,
			succeeded: true,
		},
		{
			caption: "a path leaving input behind does not succeed",
			input:   "ab",
			advance: 1,
		},
		{
			caption: "a failed path does not succeed even at the end of input",
			input:   "ab",
			advance: 2,
			fail:    true,
		},
		{
			caption:   "the empty input is consumed by the empty match",
			input:     "",
			succeeded: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			p := newPath(NewCursor([]byte(tt.input)))
			p.cur.Advance(tt.advance)
			if tt.fail {
				p.fail(p.cur.Position(), "mismatch")
			}
			p.finish()
			if p.succeeded() != tt.succeeded {
				t.Fatalf("unexpected status; want succeeded: %v, got: %v", tt.succeeded, p.succeeded())
			}
			if p.failed() != tt.fail {
				t.Fatalf("finish must not change a failure; want failed: %v, got: %v", tt.fail, p.failed())
			}
		})
	}
}

func TestPath_Fork(t *testing.T) {
	p := newPath(NewCursor([]byte("abc")))
	i := p.enter("s")

	q := p.fork()
	j := q.enter("t")
	q.cur.Advance(2)
	q.leave(j)
	q.fail(q.cur.Position(), "mismatch")

	if p.failed() || p.cur.Offset() != 0 || len(p.trace) != 1 || p.depth().Index != 0 {
		t.Fatalf("a fork must not affect its origin: %+v", p)
	}
	if len(q.trace) != 2 || q.trace[1].Depth != 1 || q.trace[1].State != FrameStateExited || q.trace[1].Exit.Index != 2 {
		t.Fatalf("unexpected frames of the fork: %+v", q.trace)
	}

	p.cur.Advance(3)
	p.leave(i)
	p.finish()
	if !p.succeeded() || p.trace[0].State != FrameStateExited || p.trace[0].Exit != (spec.Position{Row: 1, Col: 4, Index: 3}) {
		t.Fatalf("unexpected path: %+v", p)
	}
}

func TestPath_PreferredFailure(t *testing.T) {
	failAt := func(index int, fatal bool) *path {
		p := newPath(NewCursor([]byte("abc")))
		p.cur.Advance(index)
		if fatal {
			p.failFatally(p.cur.Position(), "fatal")
		} else {
			p.fail(p.cur.Position(), "mismatch")
		}
		return p
	}

	tests := []struct {
		caption  string
		p        *path
		q        *path
		expected bool
	}{
		{
			caption:  "any failure beats none",
			p:        failAt(0, false),
			expected: true,
		},
		{
			caption:  "the further failure wins",
			p:        failAt(2, false),
			q:        failAt(1, false),
			expected: true,
		},
		{
			caption: "a tie keeps the earlier failure",
			p:       failAt(1, false),
			q:       failAt(1, false),
		},
		{
			caption:  "a fatal failure beats a further plain one",
			p:        failAt(0, true),
			q:        failAt(2, false),
			expected: true,
		},
		{
			caption: "a plain failure never beats a fatal one",
			p:       failAt(2, false),
			q:       failAt(0, true),
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			if tt.p.preferredFailure(tt.q) != tt.expected {
				t.Fatalf("unexpected preference; want: %v", tt.expected)
			}
		})
	}
}
