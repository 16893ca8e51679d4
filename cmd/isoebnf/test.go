package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/nihei9/isoebnf/special"
	"github.com/nihei9/isoebnf/tester"
	"github.com/nihei9/isoebnf/validator"
	"github.com/spf13/cobra"
)

var testFlags = struct {
	watch *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "test <grammar file path> <test file path>|<test directory path>",
		Short:   "Test a grammar",
		Example: `  isoebnf test grammar.ebnf test`,
		Args:    cobra.ExactArgs(2),
		RunE:    runTest,
	}
	testFlags.watch = cmd.Flags().BoolP("watch", "w", false, "re-run the tests whenever the grammar or a test file changes")
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	err := test(args[0], args[1])
	if !*testFlags.watch {
		return err
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	w := &tester.Watcher{
		Paths:  []string{args[0], args[1]},
		Logger: logger,
	}
	return w.Watch(ctx, func() {
		err := test(args[0], args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	})
}

func test(grammarPath, testPath string) error {
	g, err := readGrammar(grammarPath)
	if err != nil {
		return fmt.Errorf("Cannot read a grammar: %w", err)
	}

	var cs []*tester.TestCaseWithMetadata
	{
		cs = tester.ListTestCases(testPath)
		errOccurred := false
		for _, c := range cs {
			if c.Error != nil {
				fmt.Fprintf(os.Stderr, "Failed to read a test case or a directory: %v\n%v\n", c.FilePath, c.Error)
				errOccurred = true
			}
		}
		if errOccurred {
			return errors.New("Cannot run test")
		}
	}

	t := &tester.Tester{
		Grammar:          g,
		Cases:            cs,
		SpecialSequences: []validator.SpecialSequence{special.NewPattern()},
		Logger:           logger,
	}
	rs := t.Run()
	testFailed := false
	for _, r := range rs {
		fmt.Fprintln(os.Stdout, r)
		if r.Error != nil {
			testFailed = true
		}
	}
	if testFailed {
		return errors.New("Test failed")
	}
	return nil
}
