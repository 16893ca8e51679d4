package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "check <grammar file path>",
		Short:   "Check a grammar for structural errors",
		Example: `  isoebnf check grammar.ebnf`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCheck,
	}
	rootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	g, err := readGrammar(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%v rules, start rule: %v\n", len(g.Rules()), g.StartRule().Name)
	return nil
}
