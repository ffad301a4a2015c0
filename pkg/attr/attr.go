// Package attr implements the attribute value model: typed codecs between Go
// values and DynamoDB AttributeValues.
//
// Numbers always travel as decimal text. Empty sets encode to NULL because the
// store rejects empty native sets, and a NULL (or absent) set decodes back to
// an empty set.
package attr

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/constraints"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

// Number is the set of Go types that map to the N attribute type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Expected type names used in decode errors.
const (
	TypeString    = "string"
	TypeNumber    = "number"
	TypeBool      = "bool"
	TypeStringSet = "string set"
	TypeNumberSet = "number set"
	TypeList      = "list"
	TypeMap       = "map"
	TypeBinary    = "binary"
	TypeEmbedded  = "embedded json"
)

// Null returns the NULL marker.
func Null() types.AttributeValue {
	return &types.AttributeValueMemberNULL{Value: true}
}

// IsNull reports whether av is absent or the NULL marker.
func IsNull(av types.AttributeValue) bool {
	if av == nil {
		return true
	}
	n, ok := av.(*types.AttributeValueMemberNULL)
	return ok && n.Value
}

// String encodes s as an S value.
func String(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

// Bool encodes b as a BOOL value.
func Bool(b bool) types.AttributeValue {
	return &types.AttributeValueMemberBOOL{Value: b}
}

// NumberOf encodes n as an N value.
func NumberOf[T Number](n T) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: FormatNumber(n)}
}

// FormatNumber renders n as decimal text.
func FormatNumber[T Number](n T) string {
	switch v := any(n).(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	rv := reflect.ValueOf(n)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	default:
		return strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits())
	}
}

// ParseNumber parses decimal text into T.
func ParseNumber[T Number](s string) (T, error) {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, rv.Type().Bits())
		if err != nil {
			return out, err
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(s, 10, rv.Type().Bits())
		if err != nil {
			return out, err
		}
		rv.SetUint(u)
	default:
		f, err := strconv.ParseFloat(s, rv.Type().Bits())
		if err != nil {
			return out, err
		}
		rv.SetFloat(f)
	}
	return out, nil
}

// StringSet encodes values as an SS value, or NULL when empty.
func StringSet(values []string) types.AttributeValue {
	if len(values) == 0 {
		return Null()
	}
	set := make([]string, len(values))
	copy(set, values)
	return &types.AttributeValueMemberSS{Value: set}
}

// NumberSet encodes values as an NS value, or NULL when empty.
func NumberSet[T Number](values []T) types.AttributeValue {
	if len(values) == 0 {
		return Null()
	}
	set := make([]string, len(values))
	for i, v := range values {
		set[i] = FormatNumber(v)
	}
	return &types.AttributeValueMemberNS{Value: set}
}

// List encodes each element with enc and returns an L value.
func List[E any](values []E, enc func(E) types.AttributeValue) types.AttributeValue {
	list := make([]types.AttributeValue, len(values))
	for i, v := range values {
		list[i] = enc(v)
	}
	return &types.AttributeValueMemberL{Value: list}
}

// Map wraps m as an M value.
func Map(m map[string]types.AttributeValue) types.AttributeValue {
	return &types.AttributeValueMemberM{Value: m}
}

// AsString decodes an S value.
func AsString(field string, av types.AttributeValue) (string, error) {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return "", mismatch(field, TypeString, av)
	}
	return s.Value, nil
}

// AsBool decodes a BOOL value.
func AsBool(field string, av types.AttributeValue) (bool, error) {
	b, ok := av.(*types.AttributeValueMemberBOOL)
	if !ok {
		return false, mismatch(field, TypeBool, av)
	}
	return b.Value, nil
}

// AsNumber decodes an N value into T.
func AsNumber[T Number](field string, av types.AttributeValue) (T, error) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		var zero T
		return zero, mismatch(field, TypeNumber, av)
	}
	v, err := ParseNumber[T](n.Value)
	if err != nil {
		return v, errors.NewDecodeError(field, TypeNumber, Describe(av), err)
	}
	return v, nil
}

// AsStringSet decodes an SS value; NULL or absent decodes to an empty set.
func AsStringSet(field string, av types.AttributeValue) ([]string, error) {
	if IsNull(av) {
		return []string{}, nil
	}
	ss, ok := av.(*types.AttributeValueMemberSS)
	if !ok {
		return nil, mismatch(field, TypeStringSet, av)
	}
	out := make([]string, len(ss.Value))
	copy(out, ss.Value)
	return out, nil
}

// AsNumberSet decodes an NS value; NULL or absent decodes to an empty set.
func AsNumberSet[T Number](field string, av types.AttributeValue) ([]T, error) {
	if IsNull(av) {
		return []T{}, nil
	}
	ns, ok := av.(*types.AttributeValueMemberNS)
	if !ok {
		return nil, mismatch(field, TypeNumberSet, av)
	}
	out := make([]T, len(ns.Value))
	for i, raw := range ns.Value {
		v, err := ParseNumber[T](raw)
		if err != nil {
			return nil, errors.NewDecodeError(field, TypeNumberSet, Describe(av), err)
		}
		out[i] = v
	}
	return out, nil
}

// AsList decodes an L value element-wise, stopping at the first element error.
func AsList[E any](field string, av types.AttributeValue, dec func(string, types.AttributeValue) (E, error)) ([]E, error) {
	l, ok := av.(*types.AttributeValueMemberL)
	if !ok {
		return nil, mismatch(field, TypeList, av)
	}
	out := make([]E, len(l.Value))
	for i, elem := range l.Value {
		v, err := dec(fmt.Sprintf("%s[%d]", field, i), elem)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// AsMap decodes an M value.
func AsMap(field string, av types.AttributeValue) (map[string]types.AttributeValue, error) {
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, mismatch(field, TypeMap, av)
	}
	return m.Value, nil
}

// AsOptional decodes av with dec unless it is NULL or absent, in which case it
// returns nil.
func AsOptional[T any](field string, av types.AttributeValue, dec func(string, types.AttributeValue) (T, error)) (*T, error) {
	if IsNull(av) {
		return nil, nil
	}
	v, err := dec(field, av)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Optional encodes v with enc, or NULL when v is nil.
func Optional[T any](v *T, enc func(T) types.AttributeValue) types.AttributeValue {
	if v == nil {
		return Null()
	}
	return enc(*v)
}

// Describe renders av for diagnostics.
func Describe(av types.AttributeValue) string {
	switch v := av.(type) {
	case nil:
		return "<absent>"
	case *types.AttributeValueMemberS:
		return fmt.Sprintf("S(%q)", v.Value)
	case *types.AttributeValueMemberN:
		return fmt.Sprintf("N(%q)", v.Value)
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("BOOL(%t)", v.Value)
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberSS:
		return fmt.Sprintf("SS(%s)", strings.Join(v.Value, ","))
	case *types.AttributeValueMemberNS:
		return fmt.Sprintf("NS(%s)", strings.Join(v.Value, ","))
	case *types.AttributeValueMemberB:
		return fmt.Sprintf("B(%d bytes)", len(v.Value))
	case *types.AttributeValueMemberBS:
		return fmt.Sprintf("BS(%d items)", len(v.Value))
	case *types.AttributeValueMemberL:
		return fmt.Sprintf("L(%d items)", len(v.Value))
	case *types.AttributeValueMemberM:
		keys := make([]string, 0, len(v.Value))
		for k := range v.Value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("M(%s)", strings.Join(keys, ","))
	default:
		return fmt.Sprintf("%T", av)
	}
}

func mismatch(field, expected string, av types.AttributeValue) error {
	return errors.NewDecodeError(field, expected, Describe(av), nil)
}
