package expr

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablerow/pkg/attr"
)

// Field is a handle on a scalar attribute of type T. Each field kind below
// exposes only the operations valid for it, so an expression like "append"
// on a number cannot be written.
type Field[T any] struct {
	encode func(T) types.AttributeValue
	name   string
}

// NewField creates a field handle that encodes values with encode.
func NewField[T any](name string, encode func(T) types.AttributeValue) Field[T] {
	return Field[T]{name: name, encode: encode}
}

// Name returns the store-side attribute name.
func (f Field[T]) Name() string {
	return f.name
}

// Set assigns v.
func (f Field[T]) Set(v T) Update {
	return Set(f.name, f.encode(v))
}

// Equals compares the attribute with v.
func (f Field[T]) Equals(v T) Condition {
	return Equals(f.name, f.encode(v))
}

// Between matches low <= attribute <= high.
func (f Field[T]) Between(low, high T) Condition {
	return Between(f.name, f.encode(low), f.encode(high))
}

// StringField is a string attribute.
type StringField struct {
	Field[string]
}

// NewStringField creates a string field handle.
func NewStringField(name string) StringField {
	return StringField{Field: NewField(name, attr.String)}
}

// StringEquals compares the attribute with text.
func (f StringField) StringEquals(text string) Condition {
	return StringEquals(f.name, text)
}

// BeginsWith matches values starting with prefix.
func (f StringField) BeginsWith(prefix string) Condition {
	return BeginsWith(f.name, attr.String(prefix))
}

// NumberField is a numeric attribute.
type NumberField[T attr.Number] struct {
	Field[T]
}

// NewNumberField creates a numeric field handle.
func NewNumberField[T attr.Number](name string) NumberField[T] {
	return NumberField[T]{Field: NewField(name, attr.NumberOf[T])}
}

// SetIncrement renders "x = x + n".
func (f NumberField[T]) SetIncrement(n T) Update {
	return SetIncrement(f.name, attr.NumberOf(n))
}

// SetDecrement renders "x = x - n".
func (f NumberField[T]) SetDecrement(n T) Update {
	return SetDecrement(f.name, attr.NumberOf(n))
}

// AddIncrement adds n atomically.
func (f NumberField[T]) AddIncrement(n T) Update {
	return Add(f.name, attr.NumberOf(n))
}

// AddDecrement adds -n atomically.
func (f NumberField[T]) AddDecrement(n T) Update {
	return Add(f.name, &types.AttributeValueMemberN{Value: negate(attr.FormatNumber(n))})
}

func negate(text string) string {
	if rest, ok := strings.CutPrefix(text, "-"); ok {
		return rest
	}
	if text == "0" {
		return text
	}
	return "-" + text
}

// ListField is a list attribute with elements of type E.
type ListField[E any] struct {
	encode func(E) types.AttributeValue
	name   string
}

// NewListField creates a list field handle encoding elements with encode.
func NewListField[E any](name string, encode func(E) types.AttributeValue) ListField[E] {
	return ListField[E]{name: name, encode: encode}
}

// Name returns the store-side attribute name.
func (f ListField[E]) Name() string {
	return f.name
}

// Set replaces the whole list.
func (f ListField[E]) Set(values []E) Update {
	return Set(f.name, attr.List(values, f.encode))
}

// Append adds values at the end of the list.
func (f ListField[E]) Append(values ...E) Update {
	return ListAppend(f.name, attr.List(values, f.encode))
}

// Prepend adds values in front of the list.
func (f ListField[E]) Prepend(values ...E) Update {
	return ListPrepend(f.name, attr.List(values, f.encode))
}

// SetField is a string or number set attribute.
type SetField[E any] struct {
	encode func([]E) types.AttributeValue
	name   string
}

// NewStringSetField creates a string set handle.
func NewStringSetField(name string) SetField[string] {
	return SetField[string]{name: name, encode: attr.StringSet}
}

// NewNumberSetField creates a number set handle.
func NewNumberSetField[T attr.Number](name string) SetField[T] {
	return SetField[T]{name: name, encode: attr.NumberSet[T]}
}

// Name returns the store-side attribute name.
func (f SetField[E]) Name() string {
	return f.name
}

// Set replaces the whole set. An empty set is stored as NULL.
func (f SetField[E]) Set(values []E) Update {
	return Set(f.name, f.encode(values))
}

// AddElements adds values to the set.
func (f SetField[E]) AddElements(values ...E) Update {
	return Add(f.name, f.encode(values))
}

// DeleteElements removes values from the set.
func (f SetField[E]) DeleteElements(values ...E) Update {
	return Delete(f.name, f.encode(values))
}

// OptionalField is an attribute that may be absent.
type OptionalField[T any] struct {
	Field[T]
}

// NewOptionalField creates an optional field handle.
func NewOptionalField[T any](name string, encode func(T) types.AttributeValue) OptionalField[T] {
	return OptionalField[T]{Field: NewField(name, encode)}
}

// Remove deletes the attribute.
func (f OptionalField[T]) Remove() Update {
	return Remove(f.name)
}

// SetIfNotExists assigns v only when the attribute is absent.
func (f OptionalField[T]) SetIfNotExists(v T) Update {
	return SetIfNotExists(f.name, f.encode(v))
}

// SetOptional assigns *v, or removes the attribute when v is nil.
func (f OptionalField[T]) SetOptional(v *T) Update {
	if v == nil {
		return f.Remove()
	}
	return f.Set(*v)
}

// OptionalNumberField is a numeric attribute that may be absent.
type OptionalNumberField[T attr.Number] struct {
	NumberField[T]
}

// NewOptionalNumberField creates an optional numeric field handle.
func NewOptionalNumberField[T attr.Number](name string) OptionalNumberField[T] {
	return OptionalNumberField[T]{NumberField: NewNumberField[T](name)}
}

// Remove deletes the attribute.
func (f OptionalNumberField[T]) Remove() Update {
	return Remove(f.name)
}

// SetIfNotExists assigns n only when the attribute is absent.
func (f OptionalNumberField[T]) SetIfNotExists(n T) Update {
	return SetIfNotExists(f.name, attr.NumberOf(n))
}

// EmbeddedField is an attribute holding T as an embedded JSON document.
type EmbeddedField[T any] struct {
	name string
}

// NewEmbeddedField creates an embedded field handle.
func NewEmbeddedField[T any](name string) EmbeddedField[T] {
	return EmbeddedField[T]{name: name}
}

// Name returns the store-side attribute name.
func (f EmbeddedField[T]) Name() string {
	return f.name
}

// Set assigns v, failing when v cannot be encoded as JSON.
func (f EmbeddedField[T]) Set(v T) (Update, error) {
	av, err := attr.EncodeEmbedded(v)
	if err != nil {
		return Update{}, err
	}
	return Set(f.name, av), nil
}
