// Package naming derives store-side attribute names from Go field names.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Convention represents the naming convention for attribute names.
type Convention int

const (
	// SnakeCase convention: "first_name", "created_at"
	SnakeCase Convention = 0
	// CamelCase convention: "firstName", "createdAt", with special handling for "PK" and "SK"
	CamelCase Convention = 1
)

// String returns the tag spelling of the convention.
func (c Convention) String() string {
	if c == CamelCase {
		return "camel_case"
	}
	return "snake_case"
}

// ParseConvention reads the value of a naming:<convention> tag.
func ParseConvention(value string) (Convention, error) {
	switch strings.TrimSpace(value) {
	case "snake_case", "snake":
		return SnakeCase, nil
	case "camel_case", "camelCase", "camel":
		return CamelCase, nil
	default:
		return SnakeCase, fmt.Errorf("unknown naming convention %q", value)
	}
}

var attrNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DefaultAttrName converts a Go struct field name to a camelCase attribute name.
func DefaultAttrName(name string) string {
	if name == "" {
		return ""
	}

	if name == "PK" || name == "SK" {
		return name
	}

	runes := []rune(name)
	if len(runes) == 1 {
		return strings.ToLower(name)
	}

	boundary := 1
	for boundary < len(runes) {
		if !unicode.IsUpper(runes[boundary]) {
			break
		}

		if boundary+1 < len(runes) && !unicode.IsUpper(runes[boundary+1]) {
			break
		}

		boundary++
	}

	prefix := strings.ToLower(string(runes[:boundary]))
	return prefix + string(runes[boundary:])
}

// ToSnakeCase converts a Go struct field name to a snake_case attribute name.
// Acronyms stay together: "URLValue" → "url_value", "UserID" → "user_id".
func ToSnakeCase(name string) string {
	if name == "" {
		return ""
	}

	runes := []rune(name)
	if len(runes) == 1 {
		return strings.ToLower(name)
	}

	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	for i, ch := range runes {
		if unicode.IsUpper(ch) {
			if i > 0 {
				prev := runes[i-1]
				nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if !unicode.IsDigit(prev) && (unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextIsLower)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(ch))
			continue
		}
		b.WriteRune(unicode.ToLower(ch))
	}

	return b.String()
}

// ConvertAttrName converts a field name to the given convention.
func ConvertAttrName(name string, convention Convention) string {
	if convention == CamelCase {
		return DefaultAttrName(name)
	}
	return ToSnakeCase(name)
}

// ValidateAttrName checks that name can be referenced through an expression
// placeholder: letters, digits and underscores, not starting with a digit.
func ValidateAttrName(name string) error {
	if name == "" {
		return fmt.Errorf("attribute name cannot be empty")
	}
	if !attrNamePattern.MatchString(name) {
		return fmt.Errorf("attribute name %q must contain only letters, digits and underscores", name)
	}
	return nil
}
