package retention

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Limit bounds how many versions a retention axis keeps. The zero value is
// unlimited.
type Limit struct {
	n int

	// invalid holds a configured value that was rejected and replaced by
	// unlimited, so it can be reported instead of silently dropped.
	invalid string
}

// Unlimited returns a Limit that never prunes.
func Unlimited() Limit { return Limit{} }

// NewLimit returns a finite limit of n. Non-positive values yield Unlimited.
func NewLimit(n int) Limit {
	if n <= 0 {
		return Limit{}
	}

	return Limit{n: n}
}

// ParseLimit parses a configured limit. Empty strings and the words
// "unlimited", "none" and "nil" mean unlimited. Anything that is not a
// positive integer is rejected with an error, and the returned Limit is
// unlimited so callers can keep going safely.
func ParseLimit(s string) (Limit, error) {
	s = strings.TrimSpace(s)

	switch strings.ToLower(s) {
	case "", "unlimited", "none", "nil", "null":
		return Limit{}, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return Limit{invalid: s}, fmt.Errorf("limit %q is not an integer", s)
	}

	if n <= 0 {
		return Limit{invalid: s}, fmt.Errorf("limit %q must be positive", s)
	}

	return Limit{n: n}, nil
}

// IsUnlimited reports whether the limit never prunes.
func (l Limit) IsUnlimited() bool { return l.n <= 0 }

// Value returns the bound, or 0 when unlimited.
func (l Limit) Value() int { return l.n }

// Invalid returns the rejected configured value, if any.
func (l Limit) Invalid() (string, bool) { return l.invalid, l.invalid != "" }

// String implements fmt.Stringer.
func (l Limit) String() string {
	if l.IsUnlimited() {
		return "unlimited"
	}

	return strconv.Itoa(l.n)
}

// MarshalJSON renders unlimited as null.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsUnlimited() {
		return []byte("null"), nil
	}

	return json.Marshal(l.n)
}

// UnmarshalJSON accepts a number, null, or a string understood by ParseLimit.
// Invalid values decode to unlimited and are remembered for reporting.
func (l *Limit) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, _ := ParseLimit(raw) //nolint:errcheck // invalid values become unlimited.
	*l = parsed

	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler with the same leniency as UnmarshalJSON.
func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		*l = Limit{invalid: fmt.Sprintf("<yaml kind %d>", node.Kind)}

		return nil
	}

	parsed, _ := ParseLimit(node.Value) //nolint:errcheck // invalid values become unlimited.
	*l = parsed

	return nil
}

// maxLimit returns the largest finite limit among ls. Unlimited entries do
// not participate; the result is unlimited only if every entry is.
func maxLimit(ls ...Limit) Limit {
	var best Limit

	for _, l := range ls {
		if l.IsUnlimited() {
			continue
		}

		if l.n > best.n {
			best = Limit{n: l.n}
		}
	}

	return best
}
