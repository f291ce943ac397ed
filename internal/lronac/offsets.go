package lronac

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Offsets is the average left/right misregistration measured by
// lronacjitreg, in pixels.
type Offsets struct {
	Sample float64
	Line   float64
}

// ErrNoOffsets is returned when a log has neither average offset line.
var ErrNoOffsets = errors.New("no average offsets in log")

// ParseOffsetLog reads the "Average Sample Offset:" and "Average Line
// Offset:" values from an lronacjitreg row log. A missing line leaves that
// offset at zero.
func ParseOffsetLog(r io.Reader) (Offsets, error) {
	var o Offsets
	found := false
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		var dst *float64
		switch {
		case strings.Contains(line, "Average Sample Offset:"):
			dst = &o.Sample
		case strings.Contains(line, "Average Line Offset:"):
			dst = &o.Line
		default:
			continue
		}
		v, err := offsetValue(line)
		if err != nil {
			return Offsets{}, fmt.Errorf("line %d: %w", n, err)
		}
		*dst = v
		found = true
	}
	if err := sc.Err(); err != nil {
		return Offsets{}, err
	}
	if !found {
		return Offsets{}, ErrNoOffsets
	}
	return o, nil
}

// offsetValue returns the number between the last "Offset:" and "StdDev:".
func offsetValue(line string) (float64, error) {
	i := strings.LastIndex(line, "Offset:")
	text := line[i+len("Offset:"):]
	if j := strings.LastIndex(text, "StdDev:"); j >= 0 {
		text = text[:j]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", strings.TrimSpace(text))
	}
	return v, nil
}

// ReadOffsetLog parses the row log at path.
func ReadOffsetLog(path string) (Offsets, error) {
	f, err := os.Open(path)
	if err != nil {
		return Offsets{}, fmt.Errorf("reading offsets: %w", err)
	}
	defer f.Close()
	o, err := ParseOffsetLog(f)
	if err != nil {
		return Offsets{}, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}
