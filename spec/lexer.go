package spec

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	verr "github.com/nihei9/isoebnf/error"
	mlcompiler "github.com/nihei9/maleeni/compiler"
	mldriver "github.com/nihei9/maleeni/driver"
	mlspec "github.com/nihei9/maleeni/spec"
)

type tokenKind string

const (
	tokenKindMetaIdentifier = tokenKind("meta identifier")
	tokenKindTerminal       = tokenKind("terminal string")
	tokenKindInteger        = tokenKind("integer")
	tokenKindSpecial        = tokenKind("special sequence")
	tokenKindDefining       = tokenKind("=")
	tokenKindConcatenate    = tokenKind(",")
	tokenKindDefSeparator   = tokenKind("|")
	tokenKindException      = tokenKind("-")
	tokenKindRepetition     = tokenKind("*")
	tokenKindTerminator     = tokenKind(";")
	tokenKindGroupOpen      = tokenKind("(")
	tokenKindGroupClose     = tokenKind(")")
	tokenKindOptionOpen     = tokenKind("[")
	tokenKindOptionClose    = tokenKind("]")
	tokenKindRepeatOpen     = tokenKind("{")
	tokenKindRepeatClose    = tokenKind("}")
	tokenKindComment        = tokenKind("comment")
	tokenKindEOF            = tokenKind("eof")
	tokenKindUnknown        = tokenKind("unknown")
)

// Kind names of the lexical specification.
const (
	lexKindWhiteSpace        = mlspec.LexKindName("white_space")
	lexKindCommentOpen       = mlspec.LexKindName("comment_open")
	lexKindNestedCommentOpen = mlspec.LexKindName("nested_comment_open")
	lexKindCommentClose      = mlspec.LexKindName("comment_close")
	lexKindCommentText       = mlspec.LexKindName("comment_text")
	lexKindMetaIdentifier    = mlspec.LexKindName("meta_identifier")
	lexKindInteger           = mlspec.LexKindName("integer")
	lexKindTerminal          = mlspec.LexKindName("terminal")
	lexKindUnclosedTerminal  = mlspec.LexKindName("unclosed_terminal")
	lexKindSpecial           = mlspec.LexKindName("special")
	lexKindUnclosedSpecial   = mlspec.LexKindName("unclosed_special")

	lexModeComment = mlspec.LexModeName("comment")
)

// symbols lists the fixed symbols. The lexer takes the longest one, so `(/` wins over `(`.
var symbols = []struct {
	lexKind mlspec.LexKindName
	text    string
	kind    tokenKind
}{
	{"option_open_alt", "(/", tokenKindOptionOpen},
	{"option_close_alt", "/)", tokenKindOptionClose},
	{"repeat_open_alt", "(:", tokenKindRepeatOpen},
	{"repeat_close_alt", ":)", tokenKindRepeatClose},
	{"defining", "=", tokenKindDefining},
	{"concatenate", ",", tokenKindConcatenate},
	{"def_separator", "|", tokenKindDefSeparator},
	{"def_separator_alt", "/", tokenKindDefSeparator},
	{"exception", "-", tokenKindException},
	{"exception_alt", "!", tokenKindException},
	{"repetition", "*", tokenKindRepetition},
	{"terminator", ";", tokenKindTerminator},
	{"terminator_alt", ".", tokenKindTerminator},
	{"group_open", "(", tokenKindGroupOpen},
	{"group_close", ")", tokenKindGroupClose},
	{"option_open", "[", tokenKindOptionOpen},
	{"option_close", "]", tokenKindOptionClose},
	{"repeat_open", "{", tokenKindRepeatOpen},
	{"repeat_close", "}", tokenKindRepeatClose},
}

func newLexSpec() *mlspec.LexSpec {
	entries := []*mlspec.LexEntry{
		{
			Kind:     "blank",
			Pattern:  `\p{White_Space=yes}`,
			Fragment: true,
		},
		{
			Kind:    lexKindWhiteSpace,
			Pattern: `\f{blank}+`,
		},
		{
			Kind:    lexKindCommentOpen,
			Pattern: `\(\*`,
			Push:    lexModeComment,
		},
		{
			Kind:    lexKindNestedCommentOpen,
			Pattern: `\(\*`,
			Modes:   []mlspec.LexModeName{lexModeComment},
			Push:    lexModeComment,
		},
		{
			Kind:    lexKindCommentClose,
			Pattern: `\*\)`,
			Modes:   []mlspec.LexModeName{lexModeComment},
			Pop:     true,
		},
		{
			Kind:    lexKindCommentText,
			Pattern: `[^\u{0028}\u{002A}]+|\(|\*`,
			Modes:   []mlspec.LexModeName{lexModeComment},
		},
		{
			// The words of a meta identifier may be separated by white spaces.
			Kind:    lexKindMetaIdentifier,
			Pattern: `[A-Za-z][0-9A-Za-z_]*(\f{blank}+[0-9A-Za-z][0-9A-Za-z_]*)*`,
		},
		{
			Kind:    lexKindInteger,
			Pattern: `[0-9]+`,
		},
		{
			Kind:    lexKindTerminal,
			Pattern: `'[^\u{0027}]*'|"[^\u{0022}]*"`,
		},
		{
			Kind:    lexKindUnclosedTerminal,
			Pattern: `'[^\u{0027}]*|"[^\u{0022}]*`,
		},
		{
			Kind:    lexKindSpecial,
			Pattern: `\?[^\u{003F}]*\?`,
		},
		{
			Kind:    lexKindUnclosedSpecial,
			Pattern: `\?[^\u{003F}]*`,
		},
	}
	for _, s := range symbols {
		entries = append(entries, &mlspec.LexEntry{
			Kind:    s.lexKind,
			Pattern: mlspec.LexPattern(mlspec.EscapePattern(s.text)),
		})
	}
	return &mlspec.LexSpec{
		Name:    "iso_ebnf",
		Entries: entries,
	}
}

var (
	compiledLexSpec    *mlspec.CompiledLexSpec
	compiledLexSpecErr error
	compileLexSpecOnce sync.Once
)

func loadLexSpec() (*mlspec.CompiledLexSpec, error) {
	compileLexSpecOnce.Do(func() {
		clspec, err, cErrs := mlcompiler.Compile(newLexSpec(), mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
		if err != nil {
			if len(cErrs) > 0 {
				var b strings.Builder
				for i, cerr := range cErrs {
					if i > 0 {
						fmt.Fprintf(&b, "\n")
					}
					fmt.Fprintf(&b, "%v: %v", cerr.Cause, cerr.Detail)
				}
				compiledLexSpecErr = fmt.Errorf("failed to compile the lexical specification: %v", b.String())
				return
			}
			compiledLexSpecErr = fmt.Errorf("failed to compile the lexical specification: %w", err)
			return
		}
		compiledLexSpec = clspec
	})
	return compiledLexSpec, compiledLexSpecErr
}

// Position is a location in a text. Row and Col are 1-based, and Index is the 0-based offset counted in
// characters.
type Position struct {
	Row   int
	Col   int
	Index int
}

func newPosition(row, col, index int) Position {
	return Position{
		Row:   row,
		Col:   col,
		Index: index,
	}
}

func (p Position) String() string {
	return strconv.Itoa(p.Row) + ":" + strconv.Itoa(p.Col)
}

type token struct {
	kind tokenKind
	text string
	num  int
	pos  Position
}

func newSymbolToken(kind tokenKind, pos Position) *token {
	return &token{
		kind: kind,
		pos:  pos,
	}
}

func newTextToken(kind tokenKind, text string, pos Position) *token {
	return &token{
		kind: kind,
		text: text,
		pos:  pos,
	}
}

func newIntegerToken(num int, text string, pos Position) *token {
	return &token{
		kind: tokenKindInteger,
		text: text,
		num:  num,
		pos:  pos,
	}
}

func newEOFToken(pos Position) *token {
	return &token{
		kind: tokenKindEOF,
		pos:  pos,
	}
}

type lexer struct {
	d     *mldriver.Lexer
	kinds []mlspec.LexKindName
	syms  map[mlspec.LexKindName]tokenKind

	// Positions are counted over the lexemes. The tokens of the driver cover the whole source, white
	// spaces and invalid characters included.
	row   int
	col   int
	index int

	// buf holds tokens read ahead by peek.
	buf []*token
}

func newLexer(src io.Reader) (*lexer, error) {
	clspec, err := loadLexSpec()
	if err != nil {
		return nil, err
	}
	d, err := mldriver.NewLexer(mldriver.NewLexSpec(clspec), src)
	if err != nil {
		return nil, err
	}
	syms := make(map[mlspec.LexKindName]tokenKind, len(symbols))
	for _, s := range symbols {
		syms[s.lexKind] = s.kind
	}
	return &lexer{
		d:     d,
		kinds: clspec.KindNames,
		syms:  syms,
		row:   1,
		col:   1,
	}, nil
}

func (l *lexer) next() (*token, error) {
	if len(l.buf) > 0 {
		tok := l.buf[0]
		l.buf = l.buf[1:]
		return tok, nil
	}
	return l.lexAndSkipComments()
}

// peek returns the n-th token (0-based) ahead of the current one without consuming anything.
func (l *lexer) peek(n int) (*token, error) {
	for len(l.buf) <= n {
		if len(l.buf) > 0 && l.buf[len(l.buf)-1].kind == tokenKindEOF {
			return l.buf[len(l.buf)-1], nil
		}
		tok, err := l.lexAndSkipComments()
		if err != nil {
			return nil, err
		}
		l.buf = append(l.buf, tok)
	}
	return l.buf[n], nil
}

func (l *lexer) lexAndSkipComments() (*token, error) {
	for {
		tok, err := l.lex()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokenKindComment {
			continue
		}
		return tok, nil
	}
}

func (l *lexer) lex() (*token, error) {
	var tok *mldriver.Token
	var pos Position
	for {
		var err error
		tok, err = l.d.Next()
		if err != nil {
			return nil, err
		}
		pos = l.pos()
		if tok.EOF {
			return newEOFToken(pos), nil
		}
		l.advance(tok.Lexeme)
		if tok.Invalid {
			return newTextToken(tokenKindUnknown, string(tok.Lexeme), pos), nil
		}
		if l.kindName(tok) == lexKindWhiteSpace {
			continue
		}
		break
	}

	text := string(tok.Lexeme)
	switch kind := l.kindName(tok); kind {
	case lexKindCommentOpen:
		return l.lexComment(pos)
	case lexKindMetaIdentifier:
		// White spaces between the words of the identifier are folded into a single space so that
		// `meta   identifier` and `meta identifier` name the same rule.
		return newTextToken(tokenKindMetaIdentifier, strings.Join(strings.Fields(text), " "), pos), nil
	case lexKindInteger:
		num, err := strconv.Atoi(text)
		if err != nil {
			return nil, &verr.SpecError{
				Cause:  synErrIntegerOutOfRange,
				Detail: text,
				Row:    pos.Row,
				Col:    pos.Col,
				Index:  pos.Index,
			}
		}
		return newIntegerToken(num, text, pos), nil
	case lexKindTerminal:
		// Remove the quotes. The text is kept verbatim.
		return newTextToken(tokenKindTerminal, text[1:len(text)-1], pos), nil
	case lexKindUnclosedTerminal:
		return nil, l.lexicalError(synErrUnclosedTerminal, pos)
	case lexKindSpecial:
		return newTextToken(tokenKindSpecial, text[1:len(text)-1], pos), nil
	case lexKindUnclosedSpecial:
		return nil, l.lexicalError(synErrUnclosedSpecialSeq, pos)
	default:
		if sym, ok := l.syms[kind]; ok {
			return newSymbolToken(sym, pos), nil
		}
		return newTextToken(tokenKindUnknown, text, pos), nil
	}
}

// lexComment consumes the rest of a comment. The driver keeps a mode per open comment, so comments can be
// nested.
func (l *lexer) lexComment(pos Position) (*token, error) {
	depth := 1
	for depth > 0 {
		tok, err := l.d.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF {
			return nil, l.lexicalError(synErrUnclosedComment, pos)
		}
		l.advance(tok.Lexeme)
		if tok.Invalid {
			continue
		}
		switch l.kindName(tok) {
		case lexKindNestedCommentOpen:
			depth++
		case lexKindCommentClose:
			depth--
		}
	}
	return newSymbolToken(tokenKindComment, pos), nil
}

func (l *lexer) kindName(tok *mldriver.Token) mlspec.LexKindName {
	id := int(tok.KindID)
	if id <= 0 || id >= len(l.kinds) {
		return mlspec.LexKindNameNil
	}
	return l.kinds[id]
}

func (l *lexer) lexicalError(cause *SyntaxError, pos Position) *verr.SpecError {
	return &verr.SpecError{
		Cause: cause,
		Row:   pos.Row,
		Col:   pos.Col,
		Index: pos.Index,
	}
}

func (l *lexer) advance(lexeme []byte) {
	for len(lexeme) > 0 {
		c, size := utf8.DecodeRune(lexeme)
		if c == '\n' {
			l.row++
			l.col = 1
		} else {
			l.col++
		}
		l.index++
		lexeme = lexeme[size:]
	}
}

func (l *lexer) pos() Position {
	return newPosition(l.row, l.col, l.index)
}
