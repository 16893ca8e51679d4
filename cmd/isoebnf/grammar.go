package main

import (
	"errors"
	"fmt"
	"os"

	verr "github.com/nihei9/isoebnf/error"
	"github.com/nihei9/isoebnf/grammar"
)

// readGrammar compiles a grammar file. Structural errors point into the file so that their messages echo the
// offending line.
func readGrammar(path string) (*grammar.Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the grammar file %s: %w", path, err)
	}
	defer f.Close()

	g, err := grammar.Compile(f)
	if err != nil {
		var specErrs verr.SpecErrors
		if errors.As(err, &specErrs) {
			for _, e := range specErrs {
				e.FilePath = path
				e.SourceName = path
			}
			return nil, specErrs
		}
		var specErr *verr.SpecError
		if errors.As(err, &specErr) {
			specErr.FilePath = path
			specErr.SourceName = path
			return nil, specErr
		}
		return nil, err
	}
	logger.Debug("grammar compiled", "path", path, "rules", len(g.Rules()), "start", g.StartRule().Name)
	return g, nil
}
