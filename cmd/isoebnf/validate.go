package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nihei9/isoebnf/special"
	"github.com/nihei9/isoebnf/validator"
	"github.com/spf13/cobra"
)

var validateFlags = struct {
	source  *string
	start   *string
	include *[]string
	exclude *[]string
	trace   *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "validate <grammar file path>",
		Short: "Validate a text against a grammar",
		Example: `  cat src | isoebnf validate grammar.ebnf
  isoebnf validate grammar.ebnf --source src --start expression --exclude identifier --trace`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
	validateFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	validateFlags.start = cmd.Flags().String("start", "", "rule to start matching from (default the start rule of the grammar)")
	validateFlags.include = cmd.Flags().StringSlice("include", nil, "rules to invoke; references to other rules match the empty string")
	validateFlags.exclude = cmd.Flags().StringSlice("exclude", nil, "rules whose references match the empty string")
	validateFlags.trace = cmd.Flags().Bool("trace", false, "print the rule trace")
	rootCmd.AddCommand(cmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	g, err := readGrammar(args[0])
	if err != nil {
		return err
	}

	var src io.Reader = os.Stdin
	if *validateFlags.source != "" {
		f, err := os.Open(*validateFlags.source)
		if err != nil {
			return fmt.Errorf("Cannot open the source file %s: %w", *validateFlags.source, err)
		}
		defer f.Close()
		src = f
	}

	v, err := validator.New(g, validator.SpecialSequences(special.NewPattern()), validator.Logger(logger))
	if err != nil {
		return err
	}
	var opts []validator.ValidateOption
	if *validateFlags.start != "" {
		opts = append(opts, validator.StartRule(*validateFlags.start))
	}
	if len(*validateFlags.include) > 0 {
		opts = append(opts, validator.Include(*validateFlags.include...))
	}
	if len(*validateFlags.exclude) > 0 {
		opts = append(opts, validator.Exclude(*validateFlags.exclude...))
	}
	res, err := v.Validate(src, opts...)
	if err != nil {
		return err
	}

	if res.Valid {
		fmt.Fprintln(os.Stdout, "valid")
	} else {
		fmt.Fprintln(os.Stdout, res.Message)
	}
	if *validateFlags.trace {
		validator.PrintTrace(os.Stdout, res.Trace)
	}
	if !res.Valid {
		return errors.New("Invalid input")
	}
	return nil
}
