package pvl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokQuoted
	tokEquals
	tokOpen  // ( or {
	tokClose // ) or }
	tokComma
	tokUnit
)

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer splits PVL text into tokens. It reads lazily so parsing can stop at
// the top-level End statement without touching the binary data that follows
// an attached cube label.
type lexer struct {
	br     *bufio.Reader
	line   int
	peeked *token
}

func newLexer(r io.Reader) *lexer {
	return &lexer{br: bufio.NewReader(r), line: 1}
}

func (lx *lexer) readRune() (rune, error) {
	c, _, err := lx.br.ReadRune()
	if err != nil {
		return 0, err
	}
	if c == '\n' {
		lx.line++
	}
	return c, nil
}

func (lx *lexer) unreadRune(c rune) {
	if err := lx.br.UnreadRune(); err == nil && c == '\n' {
		lx.line--
	}
}

// atComment reports whether the unread input starts a block comment.
func (lx *lexer) atComment() bool {
	b, _ := lx.br.Peek(2)
	return len(b) == 2 && b[0] == '/' && b[1] == '*'
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v'
}

func isDelim(c rune) bool {
	switch c {
	case '=', '(', ')', '{', '}', ',', '<', '>', '"', '\'':
		return true
	}
	return isSpace(c)
}

// peek returns the next token without consuming it.
func (lx *lexer) peek() (token, error) {
	if lx.peeked != nil {
		return *lx.peeked, nil
	}
	t, err := lx.scan()
	if err != nil {
		return token{}, err
	}
	lx.peeked = &t
	return t, nil
}

// next consumes and returns the next token.
func (lx *lexer) next() (token, error) {
	if lx.peeked != nil {
		t := *lx.peeked
		lx.peeked = nil
		return t, nil
	}
	return lx.scan()
}

func (lx *lexer) scan() (token, error) {
	if err := lx.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	c, err := lx.readRune()
	if err == io.EOF {
		return token{kind: tokEOF, line: lx.line}, nil
	}
	if err != nil {
		return token{}, err
	}
	line := lx.line
	switch c {
	case '=':
		return token{kind: tokEquals, text: "=", line: line}, nil
	case '(', '{':
		return token{kind: tokOpen, text: string(c), line: line}, nil
	case ')', '}':
		return token{kind: tokClose, text: string(c), line: line}, nil
	case ',':
		return token{kind: tokComma, text: ",", line: line}, nil
	case '<':
		return lx.scanUnit(line)
	case '"', '\'':
		return lx.scanQuoted(c, line)
	case '>':
		return token{}, &SyntaxError{Line: line, Msg: "unexpected '>'"}
	}

	var sb strings.Builder
	sb.WriteRune(c)
	for !lx.atComment() {
		c, err := lx.readRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return token{}, err
		}
		if isDelim(c) {
			lx.unreadRune(c)
			break
		}
		sb.WriteRune(c)
	}
	return token{kind: tokWord, text: sb.String(), line: line}, nil
}

func (lx *lexer) scanUnit(line int) (token, error) {
	var sb strings.Builder
	for {
		c, err := lx.readRune()
		if err == io.EOF {
			return token{}, &SyntaxError{Line: line, Msg: "unterminated unit"}
		}
		if err != nil {
			return token{}, err
		}
		if c == '>' {
			break
		}
		sb.WriteRune(c)
	}
	return token{kind: tokUnit, text: strings.TrimSpace(sb.String()), line: line}, nil
}

// scanQuoted reads a quoted string. Line breaks inside the string, together
// with the indentation around them, collapse to a single space.
func (lx *lexer) scanQuoted(quote rune, line int) (token, error) {
	var sb strings.Builder
	pendingBreak := false
	for {
		c, err := lx.readRune()
		if err == io.EOF {
			return token{}, &SyntaxError{Line: line, Msg: "unterminated quoted string"}
		}
		if err != nil {
			return token{}, err
		}
		if c == quote {
			break
		}
		if c == '\n' || c == '\r' {
			pendingBreak = true
			continue
		}
		if pendingBreak {
			if c == ' ' || c == '\t' {
				continue
			}
			s := strings.TrimRight(sb.String(), " \t")
			sb.Reset()
			sb.WriteString(s)
			if s != "" && !strings.HasSuffix(s, "-") {
				sb.WriteByte(' ')
			}
			pendingBreak = false
		}
		sb.WriteRune(c)
	}
	return token{kind: tokQuoted, text: strings.TrimRight(sb.String(), " \t"), line: line}, nil
}

func (lx *lexer) skipSpaceAndComments() error {
	for {
		b, err := lx.br.Peek(1)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case isSpace(rune(b[0])):
			lx.readRune()
		case b[0] == '#':
			if err := lx.skipLine(); err != nil {
				return err
			}
		case lx.atComment():
			lx.br.Discard(2)
			if err := lx.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (lx *lexer) skipLine() error {
	for {
		c, err := lx.readRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if c == '\n' {
			return nil
		}
	}
}

func (lx *lexer) skipBlockComment() error {
	start := lx.line
	prev := rune(0)
	for {
		c, err := lx.readRune()
		if err == io.EOF {
			return &SyntaxError{Line: start, Msg: "unterminated comment"}
		}
		if err != nil {
			return err
		}
		if prev == '*' && c == '/' {
			return nil
		}
		prev = c
	}
}

// SyntaxError reports malformed PVL.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pvl: line %d: %s", e.Line, e.Msg)
}
