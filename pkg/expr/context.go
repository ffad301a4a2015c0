// Package expr builds DynamoDB condition and update expressions.
//
// Attribute names are always referenced through a placeholder derived from
// the name itself (#var_<name>), so a field maps to the same placeholder every
// time it appears in one expression. Values are referenced through numbered
// placeholders issued by a Context. Condition values use the "vc" prefix and
// update values the "vu" prefix, so a condition and an update compiled for the
// same request never collide.
package expr

import (
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Placeholder prefixes for value counters.
const (
	ConditionPrefix = "vc"
	UpdatePrefix    = "vu"
)

// Context issues value placeholders for one compilation.
type Context struct {
	prefix string
	count  int
}

// NewContext creates a counter for prefix.
func NewContext(prefix string) *Context {
	return &Context{prefix: prefix}
}

// Next increments the counter and returns ":<prefix><n>". The first call
// returns ":<prefix>1".
func (c *Context) Next() string {
	c.count++
	return ":" + c.prefix + strconv.Itoa(c.count)
}

// Count returns how many placeholders were issued.
func (c *Context) Count() int {
	return c.count
}

// NamePlaceholder returns the name placeholder for an attribute name.
func NamePlaceholder(name string) string {
	return "#var_" + strings.ReplaceAll(name, ".", "_")
}

// Compiled is the output of a single compilation pass.
type Compiled struct {
	Names      map[string]string
	Values     map[string]types.AttributeValue
	Expression string
}

// Merge combines the placeholder maps of c and other. Name entries are
// deterministic per attribute, so overlapping keys carry identical values.
func (c Compiled) Merge(other Compiled) (map[string]string, map[string]types.AttributeValue) {
	names := make(map[string]string, len(c.Names)+len(other.Names))
	for k, v := range c.Names {
		names[k] = v
	}
	for k, v := range other.Names {
		names[k] = v
	}

	values := make(map[string]types.AttributeValue, len(c.Values)+len(other.Values))
	for k, v := range c.Values {
		values[k] = v
	}
	for k, v := range other.Values {
		values[k] = v
	}
	return names, values
}

type compiler struct {
	ctx    *Context
	names  map[string]string
	values map[string]types.AttributeValue
	sb     strings.Builder
}

func newCompiler(prefix string) *compiler {
	return &compiler{
		ctx:    NewContext(prefix),
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

func (c *compiler) name(key string) string {
	placeholder := NamePlaceholder(key)
	c.names[placeholder] = key
	return placeholder
}

func (c *compiler) value(av types.AttributeValue) string {
	placeholder := c.ctx.Next()
	c.values[placeholder] = av
	return placeholder
}

func (c *compiler) result() Compiled {
	return Compiled{
		Expression: c.sb.String(),
		Names:      c.names,
		Values:     c.values,
	}
}
