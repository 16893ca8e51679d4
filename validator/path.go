package validator

import (
	"github.com/nihei9/isoebnf/spec"
)

type FrameState int

const (
	FrameStateOpen FrameState = iota
	FrameStateExited
	FrameStateFailed
)

func (s FrameState) String() string {
	switch s {
	case FrameStateOpen:
		return "open"
	case FrameStateExited:
		return "exited"
	case FrameStateFailed:
		return "failed"
	}
	return "unknown"
}

// Frame records one invocation of a rule. Exit is meaningful only when State is FrameStateExited, and Error
// only when State is FrameStateFailed. Depth is the number of rule invocations enclosing this one.
type Frame struct {
	Rule  string
	Depth int
	Entry spec.Position
	Exit  spec.Position
	Error spec.Position
	State FrameState
}

type pathStatus int

const (
	pathStatusInProgress pathStatus = iota
	pathStatusFailed
	pathStatusSucceeded
)

// path is one way of exploring the grammar. The matcher forks a path before trying an alternative, so a
// failed attempt never affects its siblings.
type path struct {
	cur    Cursor
	trace  []Frame
	level  int
	status pathStatus
	msg    string
	errPos spec.Position

	// fatal is set when the path failed because the configuration of special sequence validators is
	// defective. Enclosing options and repetitions do not swallow a fatal failure.
	fatal bool
}

func newPath(cur Cursor) *path {
	return &path{
		cur: cur,
	}
}

func (p *path) fork() *path {
	q := *p
	q.trace = make([]Frame, len(p.trace), len(p.trace)+4)
	copy(q.trace, p.trace)
	return &q
}

func (p *path) failed() bool {
	return p.status == pathStatusFailed
}

// succeeded reports whether the path matched the whole input. Only finish sets the status.
func (p *path) succeeded() bool {
	return p.status == pathStatusSucceeded
}

// finish closes a top-level path. A path that has not failed and has consumed the whole input succeeds.
func (p *path) finish() {
	if p.status == pathStatusInProgress && p.cur.EOF() {
		p.status = pathStatusSucceeded
	}
}

func (p *path) fail(pos spec.Position, msg string) {
	p.status = pathStatusFailed
	p.errPos = pos
	p.msg = msg
}

func (p *path) failFatally(pos spec.Position, msg string) {
	p.fail(pos, msg)
	p.fatal = true
}

// enter pushes a frame and returns its index.
func (p *path) enter(rule string) int {
	p.trace = append(p.trace, Frame{
		Rule:  rule,
		Depth: p.level,
		Entry: p.cur.Position(),
		State: FrameStateOpen,
	})
	p.level++
	return len(p.trace) - 1
}

// leave closes the frame at index i according to the status of the path.
func (p *path) leave(i int) {
	p.level--
	if p.failed() {
		p.trace[i].Error = p.errPos
		p.trace[i].State = FrameStateFailed
		return
	}
	p.trace[i].Exit = p.cur.Position()
	p.trace[i].State = FrameStateExited
}

// depth is how far the path got. It is the error position for a failed path.
func (p *path) depth() spec.Position {
	if p.failed() {
		return p.errPos
	}
	return p.cur.Position()
}

// preferredFailure reports whether the failed path p explains a failure better than q does. A fatal failure
// beats a plain mismatch, and then the furthest error wins. Ties keep q, the earlier attempt.
func (p *path) preferredFailure(q *path) bool {
	if q == nil {
		return true
	}
	if p.fatal != q.fatal {
		return p.fatal
	}
	return p.errPos.Index > q.errPos.Index
}
