package expr

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Logical operators joining two conditions.
const (
	LogicalAnd = "AND"
	LogicalOr  = "OR"
)

// Condition is an immutable condition expression tree. The zero value is an
// empty condition; combining it with another condition yields the other one.
type Condition struct {
	root conditionNode
}

type conditionNode interface {
	render(c *compiler)
}

type relationKind int

const (
	relationEquals relationKind = iota
	relationBetween
	relationBeginsWith
)

// unitNode compares one attribute. It contributes one name placeholder and
// one or two value placeholders.
type unitNode struct {
	key      string
	values   []types.AttributeValue
	relation relationKind
}

type bracketNode struct {
	inner conditionNode
}

type binaryNode struct {
	left    conditionNode
	right   conditionNode
	logical string
}

type existenceNode struct {
	key    string
	exists bool
}

// Equals builds "<key> = <value>".
func Equals(key string, value types.AttributeValue) Condition {
	return Condition{root: &unitNode{key: key, relation: relationEquals, values: []types.AttributeValue{value}}}
}

// StringEquals is Equals with a string value.
func StringEquals(key, text string) Condition {
	return Equals(key, &types.AttributeValueMemberS{Value: text})
}

// Between builds "<key> BETWEEN <low> AND <high>".
func Between(key string, low, high types.AttributeValue) Condition {
	return Condition{root: &unitNode{key: key, relation: relationBetween, values: []types.AttributeValue{low, high}}}
}

// StringBetween is Between with string bounds.
func StringBetween(key, low, high string) Condition {
	return Between(key, &types.AttributeValueMemberS{Value: low}, &types.AttributeValueMemberS{Value: high})
}

// BeginsWith builds "begins_with(<key>, <prefix>)".
func BeginsWith(key string, prefix types.AttributeValue) Condition {
	return Condition{root: &unitNode{key: key, relation: relationBeginsWith, values: []types.AttributeValue{prefix}}}
}

// AttributeExists builds "attribute_exists(<key>)".
func AttributeExists(key string) Condition {
	return Condition{root: &existenceNode{key: key, exists: true}}
}

// AttributeNotExists builds "attribute_not_exists(<key>)".
func AttributeNotExists(key string) Condition {
	return Condition{root: &existenceNode{key: key}}
}

// And joins c and other with AND.
func (c Condition) And(other Condition) Condition {
	return c.join(LogicalAnd, other)
}

// Or joins c and other with OR.
func (c Condition) Or(other Condition) Condition {
	return c.join(LogicalOr, other)
}

func (c Condition) join(logical string, other Condition) Condition {
	switch {
	case c.root == nil:
		return other
	case other.root == nil:
		return c
	}
	return Condition{root: &binaryNode{left: c.root, logical: logical, right: other.root}}
}

// Bracket wraps c in parentheses.
func (c Condition) Bracket() Condition {
	if c.root == nil {
		return c
	}
	return Condition{root: &bracketNode{inner: c.root}}
}

// IsZero reports whether c is empty.
func (c Condition) IsZero() bool {
	return c.root == nil
}

// Compile renders the expression and both placeholder maps in one left to
// right traversal.
func (c Condition) Compile() Compiled {
	comp := newCompiler(ConditionPrefix)
	if c.root != nil {
		c.root.render(comp)
	}
	return comp.result()
}

// String returns the rendered expression.
func (c Condition) String() string {
	return c.Compile().Expression
}

// Names returns the name placeholder map.
func (c Condition) Names() map[string]string {
	return c.Compile().Names
}

// Values returns the value placeholder map.
func (c Condition) Values() map[string]types.AttributeValue {
	return c.Compile().Values
}

func (n *unitNode) render(c *compiler) {
	name := c.name(n.key)
	switch n.relation {
	case relationBetween:
		low := c.value(n.values[0])
		high := c.value(n.values[1])
		c.sb.WriteString(name + " BETWEEN " + low + " AND " + high)
	case relationBeginsWith:
		c.sb.WriteString("begins_with(" + name + ", " + c.value(n.values[0]) + ")")
	default:
		c.sb.WriteString(name + " = " + c.value(n.values[0]))
	}
}

func (n *bracketNode) render(c *compiler) {
	c.sb.WriteString("(")
	n.inner.render(c)
	c.sb.WriteString(")")
}

func (n *binaryNode) render(c *compiler) {
	n.left.render(c)
	c.sb.WriteString(" " + n.logical + " ")
	n.right.render(c)
}

func (n *existenceNode) render(c *compiler) {
	fn := "attribute_not_exists("
	if n.exists {
		fn = "attribute_exists("
	}
	c.sb.WriteString(fn + c.name(n.key) + ")")
}
