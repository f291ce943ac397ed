package lronac

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoISIS is returned when ISISROOT is not set.
var ErrNoISIS = errors.New("ISISROOT is not set; the ISIS environment does not seem to be enabled")

// Version is an ISIS release number such as 3.4.1 or 3.5.0b.
type Version struct {
	Numbers []int
	Suffix  string
}

func (v Version) String() string {
	parts := make([]string, len(v.Numbers))
	for i, n := range v.Numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".") + v.Suffix
}

// AtLeast reports whether v is the given release or newer. The suffix is
// ignored.
func (v Version) AtLeast(nums ...int) bool {
	for i, n := range nums {
		have := 0
		if i < len(v.Numbers) {
			have = v.Numbers[i]
		}
		if have != n {
			return have > n
		}
	}
	return true
}

// ParseVersion parses a dotted release number with an optional alphabetic
// suffix.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	if end < 0 {
		end = len(s)
	}
	nums := strings.TrimRight(s[:end], ".")
	if nums == "" {
		return Version{}, fmt.Errorf("invalid ISIS version %q", s)
	}
	var v Version
	for _, p := range strings.Split(nums, ".") {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("invalid ISIS version %q", s)
		}
		v.Numbers = append(v.Numbers, n)
	}
	v.Suffix = strings.TrimSpace(s[end:])
	return v, nil
}

// ISISVersion finds the version of the ISIS installation at root. An empty
// root uses $ISISROOT. inc/Constants.h takes precedence over the version
// file when both carry a version.
func ISISVersion(root string) (Version, error) {
	if root == "" {
		root = os.Getenv("ISISROOT")
	}
	if root == "" {
		return Version{}, ErrNoISIS
	}

	var text string
	if data, err := os.ReadFile(filepath.Join(root, "version")); err == nil {
		line, _, _ := strings.Cut(string(data), "\n")
		if fields := strings.Fields(line); len(fields) > 0 {
			text = fields[0]
		}
	}
	if s, err := constantsVersion(filepath.Join(root, "inc", "Constants.h")); err == nil && s != "" {
		text = s
	}
	if text == "" {
		return Version{}, fmt.Errorf("could not find an ISIS version string in %s", root)
	}
	return ParseVersion(text)
}

// constantsVersion extracts X from `std::string version("X | date");`.
func constantsVersion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var version string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, "std::string version(") {
			continue
		}
		i := strings.Index(line, `version("`)
		if i < 0 {
			continue
		}
		v := line[i+len(`version("`):]
		if j := strings.LastIndex(v, "|"); j >= 0 {
			v = v[:j]
		} else if j := strings.Index(v, `"`); j >= 0 {
			v = v[:j]
		}
		version = strings.TrimSpace(v)
	}
	return version, sc.Err()
}
