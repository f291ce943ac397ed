package pvl

import (
	"fmt"
	"io"
	"strings"
)

// Parse reads a PVL document from r. Parsing ends at the top-level End
// statement or at end of input.
func Parse(r io.Reader) (*Label, error) {
	lx := newLexer(r)
	lbl := &Label{Object: Object{Name: "Root"}}
	if err := parseObject(lx, &lbl.Object, true); err != nil {
		return nil, err
	}
	return lbl, nil
}

func parseObject(lx *lexer, o *Object, root bool) error {
	for {
		t, err := lx.next()
		if err != nil {
			return err
		}
		switch t.kind {
		case tokEOF:
			if !root {
				return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("object %s is not closed", o.Name)}
			}
			return nil
		case tokWord:
		default:
			return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("unexpected %q", t.text)}
		}

		switch strings.ToUpper(t.text) {
		case "END":
			if !root {
				return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("End inside object %s", o.Name)}
			}
			return nil
		case "END_OBJECT":
			if root {
				return &SyntaxError{Line: t.line, Msg: "End_Object without Object"}
			}
			return closeBlock(lx, o.Name)
		case "END_GROUP":
			return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("End_Group inside object %s", o.Name)}
		case "OBJECT", "BEGIN_OBJECT":
			name, err := blockName(lx, t)
			if err != nil {
				return err
			}
			child := &Object{Name: name}
			if err := parseObject(lx, child, false); err != nil {
				return err
			}
			o.Objects = append(o.Objects, child)
		case "GROUP", "BEGIN_GROUP":
			name, err := blockName(lx, t)
			if err != nil {
				return err
			}
			g := &Group{Name: name}
			if err := parseGroup(lx, g); err != nil {
				return err
			}
			o.Groups = append(o.Groups, g)
		default:
			kw, err := parseKeyword(lx, t)
			if err != nil {
				return err
			}
			o.Keywords = append(o.Keywords, kw)
		}
	}
}

func parseGroup(lx *lexer, g *Group) error {
	for {
		t, err := lx.next()
		if err != nil {
			return err
		}
		if t.kind == tokEOF {
			return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("group %s is not closed", g.Name)}
		}
		if t.kind != tokWord {
			return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("unexpected %q", t.text)}
		}
		switch strings.ToUpper(t.text) {
		case "END_GROUP":
			return closeBlock(lx, g.Name)
		case "END", "END_OBJECT", "OBJECT", "BEGIN_OBJECT", "GROUP", "BEGIN_GROUP":
			return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("%s inside group %s", t.text, g.Name)}
		default:
			kw, err := parseKeyword(lx, t)
			if err != nil {
				return err
			}
			g.Keywords = append(g.Keywords, kw)
		}
	}
}

// blockName reads the "= Name" following Object or Group.
func blockName(lx *lexer, start token) (string, error) {
	eq, err := lx.next()
	if err != nil {
		return "", err
	}
	if eq.kind != tokEquals {
		return "", &SyntaxError{Line: start.line, Msg: fmt.Sprintf("expected '=' after %s", start.text)}
	}
	name, err := lx.next()
	if err != nil {
		return "", err
	}
	if name.kind != tokWord && name.kind != tokQuoted {
		return "", &SyntaxError{Line: start.line, Msg: fmt.Sprintf("missing name for %s", start.text)}
	}
	return name.text, nil
}

// closeBlock consumes the optional "= Name" after End_Object or End_Group and
// checks it against the block being closed.
func closeBlock(lx *lexer, name string) error {
	t, err := lx.peek()
	if err != nil {
		return err
	}
	if t.kind != tokEquals {
		return nil
	}
	lx.next()
	end, err := lx.next()
	if err != nil {
		return err
	}
	if end.kind != tokWord && end.kind != tokQuoted {
		return &SyntaxError{Line: end.line, Msg: "missing name after '='"}
	}
	if !equalName(end.text, name) {
		return &SyntaxError{Line: end.line, Msg: fmt.Sprintf("%s closed as %s", name, end.text)}
	}
	return nil
}

func parseKeyword(lx *lexer, name token) (Keyword, error) {
	eq, err := lx.next()
	if err != nil {
		return Keyword{}, err
	}
	if eq.kind != tokEquals {
		return Keyword{}, &SyntaxError{Line: name.line, Msg: fmt.Sprintf("expected '=' after %s", name.text)}
	}
	values, err := parseValues(lx, name)
	if err != nil {
		return Keyword{}, err
	}
	return Keyword{Name: name.text, Values: values}, nil
}

func parseValues(lx *lexer, name token) ([]Value, error) {
	t, err := lx.next()
	if err != nil {
		return nil, err
	}
	switch t.kind {
	case tokWord, tokQuoted:
		v := Value{Text: t.text, Quoted: t.kind == tokQuoted}
		unit, err := optionalUnit(lx)
		if err != nil {
			return nil, err
		}
		v.Unit = unit
		return []Value{v}, nil
	case tokOpen:
		values, err := parseArray(lx, t)
		if err != nil {
			return nil, err
		}
		unit, err := optionalUnit(lx)
		if err != nil {
			return nil, err
		}
		if unit != "" {
			for i := range values {
				if values[i].Unit == "" {
					values[i].Unit = unit
				}
			}
		}
		return values, nil
	default:
		return nil, &SyntaxError{Line: name.line, Msg: fmt.Sprintf("missing value for %s", name.text)}
	}
}

// parseArray reads the elements of an array or set after its opening
// bracket. Nested arrays are flattened.
func parseArray(lx *lexer, open token) ([]Value, error) {
	var values []Value
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		switch t.kind {
		case tokEOF:
			return nil, &SyntaxError{Line: open.line, Msg: "unterminated array"}
		case tokClose:
			return values, nil
		case tokComma:
		case tokOpen:
			inner, err := parseArray(lx, t)
			if err != nil {
				return nil, err
			}
			values = append(values, inner...)
		case tokWord, tokQuoted:
			v := Value{Text: t.text, Quoted: t.kind == tokQuoted}
			unit, err := optionalUnit(lx)
			if err != nil {
				return nil, err
			}
			v.Unit = unit
			values = append(values, v)
		default:
			return nil, &SyntaxError{Line: t.line, Msg: fmt.Sprintf("unexpected %q in array", t.text)}
		}
	}
}

func optionalUnit(lx *lexer) (string, error) {
	t, err := lx.peek()
	if err != nil {
		return "", err
	}
	if t.kind != tokUnit {
		return "", nil
	}
	lx.next()
	return t.text, nil
}
