// Package special provides validators for special sequences.
package special

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nihei9/isoebnf/validator"
	mlcompiler "github.com/nihei9/maleeni/compiler"
	mldriver "github.com/nihei9/maleeni/driver"
	mlspec "github.com/nihei9/maleeni/spec"
)

const patternKindName = "pattern"

// Pattern claims special sequences of the form `/<pattern>/` and matches the longest prefix of the input the
// pattern accepts. Patterns use the syntax of the maleeni lexical specification. Blanks around the slashes are
// ignored.
//
// Pattern compiles each distinct pattern once and keeps the result until Reset is called.
type Pattern struct {
	cache map[string]*compiledPattern
}

type compiledPattern struct {
	spec *mlspec.CompiledLexSpec
	err  error
}

var _ validator.SpecialSequence = &Pattern{}

func NewPattern() *Pattern {
	return &Pattern{
		cache: map[string]*compiledPattern{},
	}
}

// IsValid reports whether text is a delimited pattern that compiles.
func (p *Pattern) IsValid(text string) bool {
	_, err := p.compile(text)
	return err == nil
}

// Compile returns the reason why text is not a valid pattern, or nil.
func (p *Pattern) Compile(text string) error {
	_, err := p.compile(text)
	return err
}

func (p *Pattern) Consume(c *validator.Cursor, text string) bool {
	clspec, err := p.compile(text)
	if err != nil {
		return false
	}
	lex, err := mldriver.NewLexer(mldriver.NewLexSpec(clspec), bytes.NewReader(c.Remaining()))
	if err != nil {
		return false
	}
	tok, err := lex.Next()
	if err != nil || tok.EOF || tok.Invalid || len(tok.Lexeme) == 0 {
		return false
	}
	c.Advance(len(tok.Lexeme))
	return true
}

// Reset discards the compiled patterns.
func (p *Pattern) Reset() {
	p.cache = map[string]*compiledPattern{}
}

func (p *Pattern) compile(text string) (*mlspec.CompiledLexSpec, error) {
	if cp, ok := p.cache[text]; ok {
		return cp.spec, cp.err
	}

	cp := &compiledPattern{}
	pat, ok := unwrapPattern(text)
	if !ok {
		cp.err = fmt.Errorf("a pattern must be enclosed in slashes: %v", text)
	} else {
		cp.spec, cp.err = compilePattern(pat)
	}
	p.cache[text] = cp
	return cp.spec, cp.err
}

func unwrapPattern(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if len(t) < 3 || !strings.HasPrefix(t, "/") || !strings.HasSuffix(t, "/") {
		return "", false
	}
	return t[1 : len(t)-1], true
}

func compilePattern(pat string) (*mlspec.CompiledLexSpec, error) {
	lspec := &mlspec.LexSpec{
		Name: patternKindName,
		Entries: []*mlspec.LexEntry{
			{
				Kind:    mlspec.LexKindName(patternKindName),
				Pattern: mlspec.LexPattern(pat),
			},
		},
	}
	clspec, err, cErrs := mlcompiler.Compile(lspec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			writeCompileError(&b, cErrs[0])
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeCompileError(&b, cerr)
			}
			return nil, fmt.Errorf("invalid pattern /%v/: %v", pat, b.String())
		}
		return nil, fmt.Errorf("invalid pattern /%v/: %w", pat, err)
	}
	return clspec, nil
}

func writeCompileError(b *strings.Builder, cErr *mlcompiler.CompileError) {
	fmt.Fprintf(b, "%v", cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(b, ": %v", cErr.Detail)
	}
}
