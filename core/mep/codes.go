package mep

import (
	"regexp"
	"strings"

	"decisionkit/internal/errors"
)

var (
	cellCodePattern    = regexp.MustCompile(`^([A-Za-z_]+)([0-9]+)$`)
	patternCodePattern = regexp.MustCompile(`^([A-Za-z_]+)([0-9.]+)$`)
)

// Wildcard marginalizes a variable out of a pattern
const Wildcard = '.'

// Layout describes a joint distribution named by fixed-width codes: a tag
// followed by one digit per variable, e.g. P01 for the cell where the first
// variable takes outcome 0 and the second outcome 1.
type Layout struct {
	Tag           string
	Width         int
	Cardinalities []int
	Codes         []string
	index         map[string]int
}

// NewLayout validates a complete list of joint-cell codes. Every code must
// share the tag and width, and together they must enumerate every digit
// combination implied by the largest digit seen at each position.
func NewLayout(codes []string) (*Layout, error) {
	if len(codes) == 0 {
		return nil, errors.Config("joint_distributions is empty")
	}

	l := &Layout{
		Codes: append([]string(nil), codes...),
		index: make(map[string]int, len(codes)),
	}
	for i, code := range codes {
		m := cellCodePattern.FindStringSubmatch(code)
		if m == nil {
			return nil, errors.Configf("joint cell code %q is not a tag followed by digits", code)
		}
		tag, digits := m[1], m[2]
		if i == 0 {
			l.Tag = tag
			l.Width = len(digits)
			l.Cardinalities = make([]int, l.Width)
		}
		if tag != l.Tag {
			return nil, errors.Configf("joint cell code %q does not use tag %q", code, l.Tag)
		}
		if len(digits) != l.Width {
			return nil, errors.Configf("joint cell code %q has %d digits, expected %d", code, len(digits), l.Width)
		}
		if _, dup := l.index[code]; dup {
			return nil, errors.Configf("joint cell code %q appears twice", code)
		}
		l.index[code] = i
		for p := 0; p < l.Width; p++ {
			if d := int(digits[p]-'0') + 1; d > l.Cardinalities[p] {
				l.Cardinalities[p] = d
			}
		}
	}

	expected := 1
	for _, c := range l.Cardinalities {
		expected *= c
	}
	if expected != len(codes) {
		return nil, errors.Configf("joint_distributions has %d codes but cardinalities %v imply %d",
			len(codes), l.Cardinalities, expected).
			WithContext("missing", l.missing())
	}
	return l, nil
}

// missing lists the expected codes not present, for diagnostics
func (l *Layout) missing() []string {
	var out []string
	idx := make([]int, l.Width)
	total := 1
	for _, c := range l.Cardinalities {
		total *= c
	}
	for n := 0; n < total; n++ {
		var b strings.Builder
		b.WriteString(l.Tag)
		for _, d := range idx {
			b.WriteByte(byte('0' + d))
		}
		if _, ok := l.index[b.String()]; !ok {
			out = append(out, b.String())
		}
		for p := l.Width - 1; p >= 0; p-- {
			idx[p]++
			if idx[p] < l.Cardinalities[p] {
				break
			}
			idx[p] = 0
		}
	}
	return out
}

// Size returns the number of cells
func (l *Layout) Size() int {
	return len(l.Codes)
}

// Index returns the vector position of a cell code
func (l *Layout) Index(code string) (int, bool) {
	i, ok := l.index[code]
	return i, ok
}

// Match returns the indices of every cell matching pattern, where a '.'
// digit matches any outcome of that variable
func (l *Layout) Match(pattern string) ([]int, error) {
	m := patternCodePattern.FindStringSubmatch(pattern)
	if m == nil {
		return nil, errors.Configf("assessment %q is not a tag followed by digits or '.'", pattern)
	}
	tag, digits := m[1], m[2]
	if tag != l.Tag {
		return nil, errors.Configf("assessment %q does not use tag %q", pattern, l.Tag)
	}
	if len(digits) != l.Width {
		return nil, errors.Configf("assessment %q has %d positions, joint cells have %d", pattern, len(digits), l.Width)
	}
	for p := 0; p < l.Width; p++ {
		if digits[p] == Wildcard {
			continue
		}
		if d := int(digits[p] - '0'); d >= l.Cardinalities[p] {
			return nil, errors.Configf("assessment %q uses outcome %d of variable %d, which has %d outcomes",
				pattern, d, p, l.Cardinalities[p])
		}
	}

	var out []int
	for i, code := range l.Codes {
		if matchDigits(digits, code[len(l.Tag):]) {
			out = append(out, i)
		}
	}
	return out, nil
}

func matchDigits(pattern, digits string) bool {
	for p := 0; p < len(pattern); p++ {
		if pattern[p] != Wildcard && pattern[p] != digits[p] {
			return false
		}
	}
	return true
}

// bucket replaces the digits at positions with the wildcard
func (l *Layout) bucket(code string, positions []int) string {
	b := []byte(code)
	for _, p := range positions {
		b[len(l.Tag)+p] = Wildcard
	}
	return string(b)
}
