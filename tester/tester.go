package tester

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nihei9/isoebnf/grammar"
	"github.com/nihei9/isoebnf/validator"
	"gopkg.in/yaml.v3"
)

// TestCase is one entry of a test suite file.
//
//	tests:
//	  - name: letters
//	    input: "ABC"
//	    valid: true
//	    start: word
//	    include: [letter]
type TestCase struct {
	Name    string   `yaml:"name"`
	Input   string   `yaml:"input"`
	Valid   bool     `yaml:"valid"`
	Start   string   `yaml:"start"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

func (c *TestCase) validateOptions() []validator.ValidateOption {
	var opts []validator.ValidateOption
	if c.Start != "" {
		opts = append(opts, validator.StartRule(c.Start))
	}
	if len(c.Include) > 0 {
		opts = append(opts, validator.Include(c.Include...))
	}
	if len(c.Exclude) > 0 {
		opts = append(opts, validator.Exclude(c.Exclude...))
	}
	return opts
}

type testSuite struct {
	Tests []*TestCase `yaml:"tests"`
}

type TestResult struct {
	TestCasePath string
	TestCaseName string
	Error        error
}

func (r *TestResult) String() string {
	name := r.TestCasePath
	if r.TestCaseName != "" {
		name = fmt.Sprintf("%v: %v", r.TestCasePath, r.TestCaseName)
	}
	if r.Error != nil {
		const indent = "    "

		msgLines := strings.Split(r.Error.Error(), "\n")
		return fmt.Sprintf("Failed %v:\n%v%v", name, indent, strings.Join(msgLines, "\n"+indent))
	}
	return fmt.Sprintf("Passed %v", name)
}

type TestCaseWithMetadata struct {
	TestCase *TestCase
	FilePath string
	Error    error
}

// ListTestCases reads the test cases of a suite file, or of every suite file (`.yaml` or `.yml`) under a
// directory. A file that cannot be read yields a single entry carrying the error.
func ListTestCases(testPath string) []*TestCaseWithMetadata {
	fi, err := os.Stat(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	if !fi.IsDir() {
		return listFileTestCases(testPath)
	}

	es, err := os.ReadDir(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	var cases []*TestCaseWithMetadata
	for _, e := range es {
		p := filepath.Join(testPath, e.Name())
		if !e.IsDir() && !isSuiteFile(p) {
			continue
		}
		cases = append(cases, ListTestCases(p)...)
	}
	return cases
}

func isSuiteFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func listFileTestCases(testCasePath string) []*TestCaseWithMetadata {
	cs, err := parseTestSuite(testCasePath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testCasePath,
				Error:    err,
			},
		}
	}
	cases := make([]*TestCaseWithMetadata, len(cs))
	for i, c := range cs {
		cases[i] = &TestCaseWithMetadata{
			TestCase: c,
			FilePath: testCasePath,
		}
	}
	return cases
}

func parseTestSuite(testCasePath string) ([]*TestCase, error) {
	f, err := os.Open(testCasePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTestSuite(f)
}

// ParseTestSuite reads a YAML test suite. Unknown fields are rejected. A case without a name is named after
// its position in the suite.
func ParseTestSuite(src io.Reader) ([]*TestCase, error) {
	dec := yaml.NewDecoder(src)
	dec.KnownFields(true)
	var s testSuite
	err := dec.Decode(&s)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("a test suite must contain at least one test case")
		}
		return nil, fmt.Errorf("failed to parse a test suite: %w", err)
	}
	if len(s.Tests) == 0 {
		return nil, fmt.Errorf("a test suite must contain at least one test case")
	}
	for i, c := range s.Tests {
		if c == nil {
			return nil, fmt.Errorf("test case #%v is empty", i+1)
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("#%v", i+1)
		}
		if len(c.Include) > 0 && len(c.Exclude) > 0 {
			return nil, fmt.Errorf("test case %v: include and exclude cannot be used together", c.Name)
		}
	}
	return s.Tests, nil
}

type Tester struct {
	Grammar          *grammar.Grammar
	Cases            []*TestCaseWithMetadata
	SpecialSequences []validator.SpecialSequence
	Logger           *slog.Logger
}

func (t *Tester) Run() []*TestResult {
	logger := t.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	v, err := validator.New(t.Grammar, validator.SpecialSequences(t.SpecialSequences...), validator.Logger(logger))

	var rs []*TestResult
	for _, c := range t.Cases {
		var r *TestResult
		switch {
		case c.Error != nil:
			r = &TestResult{
				TestCasePath: c.FilePath,
				Error:        c.Error,
			}
		case err != nil:
			r = &TestResult{
				TestCasePath: c.FilePath,
				TestCaseName: c.TestCase.Name,
				Error:        err,
			}
		default:
			r = runTest(v, c)
		}
		logger.Debug("test case finished", "path", r.TestCasePath, "name", r.TestCaseName, "passed", r.Error == nil)
		rs = append(rs, r)
	}
	return rs
}

func runTest(v *validator.Validator, c *TestCaseWithMetadata) *TestResult {
	res, err := v.Validate(strings.NewReader(c.TestCase.Input), c.TestCase.validateOptions()...)
	if err != nil {
		return &TestResult{
			TestCasePath: c.FilePath,
			TestCaseName: c.TestCase.Name,
			Error:        err,
		}
	}

	switch {
	case c.TestCase.Valid && !res.Valid:
		err = fmt.Errorf("expected the input to be valid:\n%v", res.Message)
	case !c.TestCase.Valid && res.Valid:
		err = fmt.Errorf("expected the input to be invalid, but it was accepted")
	}
	return &TestResult{
		TestCasePath: c.FilePath,
		TestCaseName: c.TestCase.Name,
		Error:        err,
	}
}
