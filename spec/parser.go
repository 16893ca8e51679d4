package spec

import (
	"fmt"
	"io"

	verr "github.com/nihei9/isoebnf/error"
)

func raiseSyntaxError(synErr *SyntaxError, detail string, pos Position) {
	panic(&verr.SpecError{
		Cause:  synErr,
		Detail: detail,
		Row:    pos.Row,
		Col:    pos.Col,
		Index:  pos.Index,
	})
}

// Parse reads an ISO/IEC 14977 grammar and returns its AST. An error returned by Parse is a *verr.SpecError
// unless reading src itself failed.
func Parse(src io.Reader) (*RootNode, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	return root, nil
}

type parser struct {
	lex     *lexer
	lastTok *token
	rules   map[string]*RuleNode
}

func newParser(src io.Reader) (*parser, error) {
	lex, err := newLexer(src)
	if err != nil {
		return nil, err
	}
	return &parser{
		lex:   lex,
		rules: map[string]*RuleNode{},
	}, nil
}

func (p *parser) parse() (root *RootNode, retErr error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		err, ok := v.(error)
		if !ok {
			panic(v)
		}
		retErr = err
	}()
	return p.parseRoot(), nil
}

func (p *parser) parseRoot() *RootNode {
	root := &RootNode{}
	for !p.consume(tokenKindEOF) {
		root.Rules = append(root.Rules, p.parseRule())
	}
	if len(root.Rules) == 0 {
		raiseSyntaxError(synErrNoRule, "", p.lastTok.pos)
	}
	return root
}

func (p *parser) parseRule() *RuleNode {
	if !p.consume(tokenKindMetaIdentifier) {
		raiseSyntaxError(synErrNoRuleName, "", p.peek().pos)
	}
	name := p.lastTok.text
	pos := p.lastTok.pos
	if _, ok := p.rules[name]; ok {
		raiseSyntaxError(synErrDuplicateRule, name, pos)
	}
	if !p.consume(tokenKindDefining) {
		raiseSyntaxError(synErrNoDefiningSymbol, "", p.peek().pos)
	}
	alts := p.parseAlternatives()
	if !p.consume(tokenKindTerminator) {
		raiseSyntaxError(synErrNoTerminator, "", p.peek().pos)
	}
	rule := &RuleNode{
		Name:         name,
		Alternatives: alts,
		Pos:          pos,
	}
	p.rules[name] = rule
	return rule
}

func (p *parser) parseAlternatives() []*AlternativeNode {
	alts := []*AlternativeNode{p.parseAlternative()}
	for p.consume(tokenKindDefSeparator) {
		alts = append(alts, p.parseAlternative())
	}
	return alts
}

func (p *parser) parseAlternative() *AlternativeNode {
	pos := p.peek().pos
	switch p.peek().kind {
	case tokenKindDefSeparator, tokenKindTerminator, tokenKindGroupClose, tokenKindOptionClose, tokenKindRepeatClose, tokenKindEOF:
		return newEmptyAlternative(pos)
	}

	terms := []*TermNode{p.parseTerm()}
	for p.consume(tokenKindConcatenate) {
		terms = append(terms, p.parseTerm())
	}
	return &AlternativeNode{
		Terms: terms,
		Pos:   pos,
	}
}

func (p *parser) parseTerm() *TermNode {
	pos := p.peek().pos
	factor := p.parseFactor()
	var exception *FactorNode
	if p.consume(tokenKindException) {
		exception = p.parseFactor()

		// An exception must stay a plain set of strings. Allowing references would make it recursive.
		if refs := exception.References(); len(refs) > 0 {
			raiseSyntaxError(synErrExceptionRef, refs[0].Name, refs[0].Pos)
		}
	}
	return &TermNode{
		Factor:    factor,
		Exception: exception,
		Pos:       pos,
	}
}

func (p *parser) parseFactor() *FactorNode {
	pos := p.peek().pos
	rep := 1
	if p.consume(tokenKindInteger) {
		rep = p.lastTok.num
		if !p.consume(tokenKindRepetition) {
			raiseSyntaxError(synErrNoRepetitionSymbol, "", p.peek().pos)
		}
	}
	return &FactorNode{
		Repetition: rep,
		Primary:    p.parsePrimary(),
		Pos:        pos,
	}
}

func (p *parser) parsePrimary() *PrimaryNode {
	switch {
	case p.consume(tokenKindMetaIdentifier):
		return &PrimaryNode{
			Kind: PrimaryKindReference,
			Name: p.lastTok.text,
			Pos:  p.lastTok.pos,
		}
	case p.consume(tokenKindTerminal):
		return &PrimaryNode{
			Kind: PrimaryKindTerminal,
			Text: p.lastTok.text,
			Pos:  p.lastTok.pos,
		}
	case p.consume(tokenKindSpecial):
		return &PrimaryNode{
			Kind: PrimaryKindSpecial,
			Text: p.lastTok.text,
			Pos:  p.lastTok.pos,
		}
	case p.consume(tokenKindGroupOpen):
		return p.parseBracketed(PrimaryKindGroup, tokenKindGroupClose, synErrUnclosedGroup)
	case p.consume(tokenKindOptionOpen):
		return p.parseBracketed(PrimaryKindOptional, tokenKindOptionClose, synErrUnclosedOption)
	case p.consume(tokenKindRepeatOpen):
		return p.parseBracketed(PrimaryKindRepeated, tokenKindRepeatClose, synErrUnclosedRepeat)
	}
	tok := p.peek()
	raiseSyntaxError(synErrNoPrimary, describeToken(tok), tok.pos)
	return nil
}

// parseBracketed parses the body of a group, an option, or a repetition. The opening bracket must have been
// consumed already.
func (p *parser) parseBracketed(kind PrimaryKind, closing tokenKind, unclosed *SyntaxError) *PrimaryNode {
	pos := p.lastTok.pos
	alts := p.parseAlternatives()
	if !p.consume(closing) {
		raiseSyntaxError(unclosed, "", p.peek().pos)
	}
	return &PrimaryNode{
		Kind:         kind,
		Alternatives: alts,
		Pos:          pos,
	}
}

func (p *parser) peek() *token {
	tok, err := p.lex.peek(0)
	if err != nil {
		panic(err)
	}
	if tok.kind == tokenKindUnknown {
		raiseSyntaxError(synErrInvalidToken, tok.text, tok.pos)
	}
	return tok
}

func (p *parser) consume(expected tokenKind) bool {
	tok := p.peek()
	if tok.kind != expected {
		return false
	}
	tok, err := p.lex.next()
	if err != nil {
		panic(err)
	}
	p.lastTok = tok
	return true
}

func describeToken(tok *token) string {
	switch tok.kind {
	case tokenKindEOF:
		return "unexpected end of input"
	case tokenKindMetaIdentifier, tokenKindInteger:
		return fmt.Sprintf("unexpected %v '%v'", tok.kind, tok.text)
	case tokenKindTerminal, tokenKindSpecial:
		return fmt.Sprintf("unexpected %v", tok.kind)
	}
	return fmt.Sprintf("unexpected '%v'", tok.kind)
}
