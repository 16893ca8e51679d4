package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrUndefinedRule   = newSemanticError("undefined rule")
	semErrNoStartRule     = newSemanticError("a grammar needs exactly one rule that no other rule references, but every rule is referenced")
	semErrMultiStartRules = newSemanticError("a grammar needs exactly one rule that no other rule references, but several rules are unreferenced")
	semErrLeftRecursion   = newSemanticError("left recursion")
	semErrDuplicateRule   = newSemanticError("duplicate rule")
	semErrNoRule          = newSemanticError("a grammar needs at least one rule")
)
