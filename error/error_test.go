package error

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSpecError_Error(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "test.ebnf")
	err := os.WriteFile(p, []byte("a = 'x';\nb = c;\n"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cause := errors.New("undefined rule")
	tests := []struct {
		caption string
		err     *SpecError
		msg     string
	}{
		{
			caption: "cause only",
			err: &SpecError{
				Cause: cause,
			},
			msg: "error: undefined rule",
		},
		{
			caption: "position and detail",
			err: &SpecError{
				Cause:  cause,
				Detail: "c",
				Row:    2,
				Col:    5,
				Index:  13,
			},
			msg: "2:5 (index 13): error: undefined rule: c",
		},
		{
			caption: "the source line is echoed",
			err: &SpecError{
				Cause:      cause,
				Detail:     "c",
				FilePath:   p,
				SourceName: "test.ebnf",
				Row:        2,
				Col:        5,
				Index:      13,
			},
			msg: "test.ebnf: 2:5 (index 13): error: undefined rule: c\n    b = c;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Fatalf("unexpected message; want: %q, got: %q", tt.msg, tt.err.Error())
			}
			if !errors.Is(tt.err, cause) {
				t.Fatalf("a spec error must unwrap to its cause")
			}
		})
	}
}

func TestSpecErrors_Error(t *testing.T) {
	errs := SpecErrors{
		{Cause: errors.New("a")},
		{Cause: errors.New("b")},
	}
	if errs.Error() != "error: a\nerror: b" {
		t.Fatalf("unexpected message: %q", errs.Error())
	}
}
