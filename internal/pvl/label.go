// Package pvl reads ISIS Parameter Value Language labels.
package pvl

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Value is a single PVL value with its optional unit.
type Value struct {
	Text   string
	Unit   string
	Quoted bool
}

// Keyword is a named PVL assignment. Scalars hold one value, arrays and sets
// hold one value per element.
type Keyword struct {
	Name   string
	Values []Value
}

// Group is a named collection of keywords.
type Group struct {
	Name     string
	Keywords []Keyword
}

// Object is a named container of keywords, groups and nested objects.
type Object struct {
	Name     string
	Keywords []Keyword
	Groups   []*Group
	Objects  []*Object
}

// Label is the root object of a parsed PVL document.
type Label struct {
	Object
}

// Read parses the label at the start of the file at path. For an attached
// cube label, reading stops at the top-level End statement.
func Read(path string) (*Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading label %s: %w", path, err)
	}
	defer f.Close()

	lbl, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading label %s: %w", path, err)
	}
	return lbl, nil
}

func equalName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func findKeyword(kws []Keyword, name string) (Keyword, bool) {
	for _, kw := range kws {
		if equalName(kw.Name, name) {
			return kw, true
		}
	}
	return Keyword{}, false
}

// Keyword returns the named keyword of the group.
func (g *Group) Keyword(name string) (Keyword, bool) {
	return findKeyword(g.Keywords, name)
}

// Keyword returns the named keyword directly owned by the object.
func (o *Object) Keyword(name string) (Keyword, bool) {
	return findKeyword(o.Keywords, name)
}

// FindObject searches the object's descendants depth-first.
func (o *Object) FindObject(name string) (*Object, bool) {
	for _, child := range o.Objects {
		if equalName(child.Name, name) {
			return child, true
		}
		if found, ok := child.FindObject(name); ok {
			return found, true
		}
	}
	return nil, false
}

// FindGroup returns the first group with the given name, looking at the
// object's own groups before descending into nested objects.
func (o *Object) FindGroup(name string) (*Group, bool) {
	for _, g := range o.Groups {
		if equalName(g.Name, name) {
			return g, true
		}
	}
	for _, child := range o.Objects {
		if g, ok := child.FindGroup(name); ok {
			return g, true
		}
	}
	return nil, false
}

// HasGroup reports whether a group named name exists anywhere below o.
func (o *Object) HasGroup(name string) bool {
	_, ok := o.FindGroup(name)
	return ok
}

// Text returns the first value of the keyword, or "" if it has none.
func (kw Keyword) Text() string {
	if len(kw.Values) == 0 {
		return ""
	}
	return kw.Values[0].Text
}

// Unit returns the unit attached to the first value.
func (kw Keyword) Unit() string {
	if len(kw.Values) == 0 {
		return ""
	}
	return kw.Values[0].Unit
}

// String formats the keyword value the way it appears in a label.
func (kw Keyword) String() string {
	if len(kw.Values) == 1 {
		return formatValue(kw.Values[0])
	}
	parts := make([]string, len(kw.Values))
	for i, v := range kw.Values {
		parts[i] = formatValue(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v Value) string {
	s := v.Text
	if v.Quoted {
		s = `"` + s + `"`
	}
	if v.Unit != "" {
		s += " <" + v.Unit + ">"
	}
	return s
}

// Float parses the first value as a float64.
func (kw Keyword) Float() (float64, error) {
	if len(kw.Values) == 0 {
		return 0, fmt.Errorf("keyword %s has no value", kw.Name)
	}
	f, err := parseFloat(kw.Values[0].Text)
	if err != nil {
		return 0, fmt.Errorf("keyword %s: %w", kw.Name, err)
	}
	return f, nil
}

// Floats parses every value as a float64.
func (kw Keyword) Floats() ([]float64, error) {
	out := make([]float64, len(kw.Values))
	for i, v := range kw.Values {
		f, err := parseFloat(v.Text)
		if err != nil {
			return nil, fmt.Errorf("keyword %s[%d]: %w", kw.Name, i, err)
		}
		out[i] = f
	}
	return out, nil
}

// Int parses the first value as an int.
func (kw Keyword) Int() (int, error) {
	if len(kw.Values) == 0 {
		return 0, fmt.Errorf("keyword %s has no value", kw.Name)
	}
	n, err := strconv.Atoi(kw.Values[0].Text)
	if err != nil {
		return 0, fmt.Errorf("keyword %s: %w", kw.Name, err)
	}
	return n, nil
}

// timeLayouts are the UTC forms ISIS writes, calendar and day-of-year.
var timeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-002T15:04:05.999999999",
	"2006-002T15:04:05",
	"2006-01-02",
}

// Time parses the first value as a UTC time.
func (kw Keyword) Time() (time.Time, error) {
	s := strings.TrimSuffix(strings.TrimSpace(kw.Text()), "Z")
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("keyword %s: invalid time %q", kw.Name, kw.Text())
}

// parseFloat accepts the PVL numeric forms, including the 16#...# hex
// notation ISIS uses for special pixel values.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "16#") && strings.HasSuffix(s, "#") {
		bits, err := strconv.ParseUint(s[3:len(s)-1], 16, 64)
		if err != nil {
			return 0, err
		}
		if len(s) <= 3+8+1 {
			return float64(math.Float32frombits(uint32(bits))), nil
		}
		return math.Float64frombits(bits), nil
	}
	return strconv.ParseFloat(s, 64)
}
