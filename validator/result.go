package validator

import (
	"fmt"
	"io"
	"strings"

	"github.com/nihei9/isoebnf/spec"
)

// Result is the verdict of one validation. Message is empty when Valid is true. Pos is where the input stopped
// matching and is meaningful only when Valid is false.
type Result struct {
	Valid   bool
	Message string
	Pos     spec.Position
	Trace   []*Frame
}

func newValidResult(p *path) *Result {
	return &Result{
		Valid: true,
		Trace: copyTrace(p.trace),
	}
}

func newInvalidResult(pos spec.Position, msg string, p *path) *Result {
	return &Result{
		Message: fmt.Sprintf("%v (index %v): %v", pos, pos.Index, msg),
		Pos:     pos,
		Trace:   copyTrace(p.trace),
	}
}

func copyTrace(trace []Frame) []*Frame {
	frames := make([]*Frame, len(trace))
	for i := range trace {
		f := trace[i]
		frames[i] = &f
	}
	return frames
}

// PrintTrace writes one line per frame, indented by the frame depth.
func PrintTrace(w io.Writer, trace []*Frame) {
	for _, f := range trace {
		indent := strings.Repeat("  ", f.Depth)
		switch f.State {
		case FrameStateExited:
			fmt.Fprintf(w, "%v%v %v-%v (index %v-%v)\n", indent, f.Rule, f.Entry, f.Exit, f.Entry.Index, f.Exit.Index)
		case FrameStateFailed:
			fmt.Fprintf(w, "%v%v %v failed at %v (index %v)\n", indent, f.Rule, f.Entry, f.Error, f.Error.Index)
		default:
			fmt.Fprintf(w, "%v%v %v %v\n", indent, f.Rule, f.Entry, f.State)
		}
	}
}
