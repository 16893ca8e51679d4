package spec

import "fmt"

type SyntaxError struct {
	message string
}

func newSyntaxError(message string) *SyntaxError {
	return &SyntaxError{
		message: message,
	}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s", e.message)
}

var (
	// lexical errors
	synErrUnclosedTerminal   = newSyntaxError("unclosed terminal string")
	synErrUnclosedSpecialSeq = newSyntaxError("unclosed special sequence; a special sequence must be closed by ?")
	synErrUnclosedComment    = newSyntaxError("unclosed comment")
	synErrIntegerOutOfRange  = newSyntaxError("an integer is out of range")

	// syntax errors
	synErrInvalidToken       = newSyntaxError("invalid token")
	synErrNoRule             = newSyntaxError("a grammar must have at least one rule")
	synErrNoRuleName         = newSyntaxError("a rule name is missing")
	synErrNoDefiningSymbol   = newSyntaxError("= must follow a rule name")
	synErrNoTerminator       = newSyntaxError("a rule must be terminated by ; or .")
	synErrNoRepetitionSymbol = newSyntaxError("* must follow a repetition count")
	synErrNoPrimary          = newSyntaxError("a primary is expected")
	synErrUnclosedGroup      = newSyntaxError("unclosed group; a group must be closed by )")
	synErrUnclosedOption     = newSyntaxError("unclosed option; an option must be closed by ] or /)")
	synErrUnclosedRepeat     = newSyntaxError("unclosed repetition; a repetition must be closed by } or :)")
	synErrDuplicateRule      = newSyntaxError("a rule cannot be defined more than once")
	synErrExceptionRef       = newSyntaxError("an exception cannot contain a rule reference")
)
