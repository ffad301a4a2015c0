package key

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

var placeholderPattern = regexp.MustCompile(`\{([^}]*)\}`)

// Template is a partition key value pattern such as "Order:{user_id}:{order_id}".
// A template without placeholders is a static partition value.
type Template struct {
	raw      string
	literals []string
	parts    []string
}

// ParseTemplate parses raw. Placeholders must be named, and two placeholders
// must be separated by a literal so that rendered values can be matched.
func ParseTemplate(raw string) (Template, error) {
	t := Template{raw: raw}
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(raw, -1) {
		name := strings.TrimSpace(raw[loc[2]:loc[3]])
		if name == "" {
			return Template{}, fmt.Errorf("%w: empty placeholder in %q", errors.ErrInvalidTemplate, raw)
		}
		literal := raw[last:loc[0]]
		if len(t.parts) > 0 && literal == "" {
			return Template{}, fmt.Errorf("%w: adjacent placeholders in %q", errors.ErrInvalidTemplate, raw)
		}
		t.literals = append(t.literals, literal)
		t.parts = append(t.parts, name)
		last = loc[1]
	}
	t.literals = append(t.literals, raw[last:])

	for _, lit := range t.literals {
		if strings.ContainsAny(lit, "{}") {
			return Template{}, fmt.Errorf("%w: unbalanced braces in %q", errors.ErrInvalidTemplate, raw)
		}
	}
	return t, nil
}

// MustParseTemplate is ParseTemplate that panics on error.
func MustParseTemplate(raw string) Template {
	t, err := ParseTemplate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template text.
func (t Template) String() string {
	return t.raw
}

// Parts returns the placeholder names in order.
func (t Template) Parts() []string {
	out := make([]string, len(t.parts))
	copy(out, t.parts)
	return out
}

// IsStatic reports whether the template has no placeholders.
func (t Template) IsStatic() bool {
	return len(t.parts) == 0
}

// Render substitutes each placeholder with lookup(name). An unknown name is
// reported as a NotFoundError.
func (t Template) Render(lookup func(name string) (string, bool)) (string, error) {
	var sb strings.Builder
	for i, part := range t.parts {
		sb.WriteString(t.literals[i])
		v, ok := lookup(part)
		if !ok {
			return "", errors.NewNotFound(part)
		}
		sb.WriteString(v)
	}
	sb.WriteString(t.literals[len(t.literals)-1])
	return sb.String(), nil
}

// Matches reports whether value could have been rendered from t. The leading
// and trailing literals must match exactly and every inner literal must be
// found, in order, after a non-empty placeholder value.
func (t Template) Matches(value string) bool {
	if t.IsStatic() {
		return value == t.raw
	}

	prefix := t.literals[0]
	suffix := t.literals[len(t.literals)-1]
	if !strings.HasPrefix(value, prefix) || len(value) < len(prefix)+len(suffix) {
		return false
	}
	rest := value[len(prefix):]
	if !strings.HasSuffix(rest, suffix) {
		return false
	}
	rest = rest[:len(rest)-len(suffix)]

	for _, lit := range t.literals[1 : len(t.literals)-1] {
		idx := strings.Index(rest, lit)
		if idx <= 0 {
			return false
		}
		rest = rest[idx+len(lit):]
	}
	return rest != ""
}
