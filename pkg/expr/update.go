package expr

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type setKind int

const (
	setAssign setKind = iota
	setIncrement
	setDecrement
	setIfNotExists
	setListAppend
	setListPrepend
)

type setClause struct {
	value types.AttributeValue
	key   string
	kind  setKind
}

type valueClause struct {
	value types.AttributeValue
	key   string
}

// Update is an immutable update expression made of four independent clause
// lists. The zero value is an empty update.
type Update struct {
	sets    []setClause
	adds    []valueClause
	removes []string
	deletes []valueClause
}

// Set replaces the attribute with value.
func Set(key string, value types.AttributeValue) Update {
	return Update{sets: []setClause{{key: key, value: value, kind: setAssign}}}
}

// SetIncrement renders "x = x + :v".
func SetIncrement(key string, value types.AttributeValue) Update {
	return Update{sets: []setClause{{key: key, value: value, kind: setIncrement}}}
}

// SetDecrement renders "x = x - :v".
func SetDecrement(key string, value types.AttributeValue) Update {
	return Update{sets: []setClause{{key: key, value: value, kind: setDecrement}}}
}

// SetIfNotExists renders "x = if_not_exists(x, :v)".
func SetIfNotExists(key string, value types.AttributeValue) Update {
	return Update{sets: []setClause{{key: key, value: value, kind: setIfNotExists}}}
}

// ListAppend adds the elements of list at the end of the attribute.
func ListAppend(key string, list types.AttributeValue) Update {
	return Update{sets: []setClause{{key: key, value: list, kind: setListAppend}}}
}

// ListPrepend adds the elements of list in front of the attribute.
func ListPrepend(key string, list types.AttributeValue) Update {
	return Update{sets: []setClause{{key: key, value: list, kind: setListPrepend}}}
}

// Add applies a numeric delta, or adds elements to a set.
func Add(key string, value types.AttributeValue) Update {
	return Update{adds: []valueClause{{key: key, value: value}}}
}

// Remove deletes the attribute.
func Remove(key string) Update {
	return Update{removes: []string{key}}
}

// Delete removes the elements of set from a set attribute.
func Delete(key string, set types.AttributeValue) Update {
	return Update{deletes: []valueClause{{key: key, value: set}}}
}

// And concatenates the clause lists of u and other, u first.
func (u Update) And(other Update) Update {
	return Update{
		sets:    append(append([]setClause(nil), u.sets...), other.sets...),
		adds:    append(append([]valueClause(nil), u.adds...), other.adds...),
		removes: append(append([]string(nil), u.removes...), other.removes...),
		deletes: append(append([]valueClause(nil), u.deletes...), other.deletes...),
	}
}

// IsZero reports whether u has no clauses.
func (u Update) IsZero() bool {
	return len(u.sets) == 0 && len(u.adds) == 0 && len(u.removes) == 0 && len(u.deletes) == 0
}

// Compile renders the SET, ADD, REMOVE and DELETE blocks in that order, each
// prefixed by a newline and omitted when empty. Value placeholders come from
// one counter shared by SET, then ADD, then DELETE.
func (u Update) Compile() Compiled {
	c := newCompiler(UpdatePrefix)

	sets := make([]string, len(u.sets))
	for i, s := range u.sets {
		sets[i] = s.render(c)
	}

	adds := make([]string, len(u.adds))
	for i, a := range u.adds {
		adds[i] = c.name(a.key) + " " + c.value(a.value)
	}

	removes := make([]string, len(u.removes))
	for i, key := range u.removes {
		removes[i] = c.name(key)
	}

	deletes := make([]string, len(u.deletes))
	for i, d := range u.deletes {
		deletes[i] = c.name(d.key) + " " + c.value(d.value)
	}

	writeBlock(c, "SET", sets)
	writeBlock(c, "ADD", adds)
	writeBlock(c, "REMOVE", removes)
	writeBlock(c, "DELETE", deletes)
	return c.result()
}

// String returns the rendered expression.
func (u Update) String() string {
	return u.Compile().Expression
}

// Names returns the name placeholder map.
func (u Update) Names() map[string]string {
	return u.Compile().Names
}

// Values returns the value placeholder map.
func (u Update) Values() map[string]types.AttributeValue {
	return u.Compile().Values
}

func (s setClause) render(c *compiler) string {
	name := c.name(s.key)
	value := c.value(s.value)
	switch s.kind {
	case setIncrement:
		return name + " = " + name + " + " + value
	case setDecrement:
		return name + " = " + name + " - " + value
	case setIfNotExists:
		return name + " = if_not_exists(" + name + ", " + value + ")"
	case setListAppend:
		return name + " = list_append(" + name + ", " + value + ")"
	case setListPrepend:
		return name + " = list_append(" + value + ", " + name + ")"
	default:
		return name + " = " + value
	}
}

func writeBlock(c *compiler, keyword string, parts []string) {
	if len(parts) == 0 {
		return
	}
	c.sb.WriteString("\n" + keyword + " ")
	for i, p := range parts {
		if i > 0 {
			c.sb.WriteString(", ")
		}
		c.sb.WriteString(p)
	}
}
