// Package lronac drives the ISIS processing chain that turns LRO NAC EDR
// images into left/right mosaics.
package lronac

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Side is the NAC camera an image was taken with.
type Side byte

const (
	Left  Side = 'L'
	Right Side = 'R'
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Side(%q)", byte(s))
	}
}

// ProductID identifies a NAC product such as M123456789LE.
type ProductID struct {
	Number int
	Side   Side
	// Kind is the trailing product letter: E for EDR, C for CDR.
	Kind string
}

func (p ProductID) String() string {
	return fmt.Sprintf("M%09d%c%s", p.Number, byte(p.Side), p.Kind)
}

var productRE = regexp.MustCompile(`^M(\d{9})([LR])([A-Z]?)`)

// ParseProductID extracts the product ID from the start of a file's base
// name. Anything after the ID, such as processing suffixes, is ignored.
func ParseProductID(path string) (ProductID, error) {
	name := filepath.Base(path)
	m := productRE.FindStringSubmatch(name)
	if m == nil {
		return ProductID{}, fmt.Errorf("%s: not an LRO NAC product name", name)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return ProductID{}, fmt.Errorf("%s: %w", name, err)
	}
	return ProductID{Number: n, Side: Side(m[2][0]), Kind: m[3]}, nil
}

// Pair is the left and right cube of one observation.
type Pair struct {
	Number int
	Left   string
	Right  string
}

// Pairs groups cubes by product number. Cubes without a partner are
// returned as orphans. Pairs are sorted by product number.
func Pairs(paths []string) (pairs []Pair, orphans []string, err error) {
	byNumber := make(map[int]*Pair)
	for _, p := range paths {
		id, err := ParseProductID(p)
		if err != nil {
			return nil, nil, err
		}
		pr, ok := byNumber[id.Number]
		if !ok {
			pr = &Pair{Number: id.Number}
			byNumber[id.Number] = pr
		}
		dst := &pr.Right
		if id.Side == Left {
			dst = &pr.Left
		}
		if *dst != "" {
			return nil, nil, fmt.Errorf("duplicate %s cube for M%09d: %s and %s", id.Side, id.Number, *dst, p)
		}
		*dst = p
	}

	for _, pr := range byNumber {
		switch {
		case pr.Left == "":
			orphans = append(orphans, pr.Right)
		case pr.Right == "":
			orphans = append(orphans, pr.Left)
		default:
			pairs = append(pairs, *pr)
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Number < pairs[j].Number })
	sort.Strings(orphans)
	return pairs, orphans, nil
}
