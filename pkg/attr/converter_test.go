package attr

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

type upperString struct {
	Raw string
}

type upperConverter struct{}

func (upperConverter) ToAttributeValue(value any) (types.AttributeValue, error) {
	payload, ok := value.(upperString)
	if !ok {
		panic("unexpected type: expected upperString")
	}
	return String(strings.ToUpper(payload.Raw)), nil
}

func (upperConverter) FromAttributeValue(av types.AttributeValue, target any) error {
	out, ok := target.(*upperString)
	if !ok {
		panic("unexpected type: expected *upperString")
	}
	s, err := AsString("raw", av)
	if err != nil {
		return err
	}
	out.Raw = strings.ToLower(s)
	return nil
}

type celsius float64

func (c celsius) MarshalAttributeValue() (types.AttributeValue, error) {
	return String(FormatNumber(float64(c)) + "C"), nil
}

func (c *celsius) UnmarshalAttributeValue(av types.AttributeValue) error {
	s, err := AsString("celsius", av)
	if err != nil {
		return err
	}
	v, err := ParseNumber[float64](strings.TrimSuffix(s, "C"))
	if err != nil {
		return err
	}
	*c = celsius(v)
	return nil
}

func TestConverterBasicTypes(t *testing.T) {
	converter := NewConverter()

	tests := []struct {
		input    any
		expected types.AttributeValue
		name     string
	}{
		{name: "string", input: "hello", expected: String("hello")},
		{name: "int", input: 42, expected: &types.AttributeValueMemberN{Value: "42"}},
		{name: "uint16", input: uint16(7), expected: &types.AttributeValueMemberN{Value: "7"}},
		{name: "float32", input: float32(1.5), expected: &types.AttributeValueMemberN{Value: "1.5"}},
		{name: "bool", input: true, expected: Bool(true)},
		{name: "bytes", input: []byte{1, 2}, expected: &types.AttributeValueMemberB{Value: []byte{1, 2}}},
		{name: "nil", input: nil, expected: Null()},
		{name: "nil pointer", input: (*string)(nil), expected: Null()},
		{
			name:  "list",
			input: []string{"a", "b"},
			expected: &types.AttributeValueMemberL{Value: []types.AttributeValue{
				String("a"), String("b"),
			}},
		},
		{
			name:     "map",
			input:    map[string]int{"x": 1},
			expected: Map(map[string]types.AttributeValue{"x": &types.AttributeValueMemberN{Value: "1"}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			av, err := converter.ToAttributeValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, av)
		})
	}
}

func TestConverterRejectsUnsupportedTypes(t *testing.T) {
	converter := NewConverter()

	_, err := converter.ToAttributeValue(make(chan int))
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)

	_, err = converter.ToAttributeValue(map[int]string{1: "a"})
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

func TestConverterTimeRoundTrip(t *testing.T) {
	converter := NewConverter()
	now := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)

	av, err := converter.ToAttributeValue(now)
	require.NoError(t, err)
	assert.Equal(t, String("2024-03-01T12:30:00.0000005Z"), av)

	var decoded time.Time
	require.NoError(t, converter.FromAttributeValue("created_at", av, &decoded))
	assert.True(t, now.Equal(decoded))

	err = converter.FromAttributeValue("created_at", String("yesterday"), &decoded)
	assert.True(t, errors.IsDecodeError(err))
}

func TestConverterDecodeIntoCollections(t *testing.T) {
	converter := NewConverter()

	var list []int
	require.NoError(t, converter.FromAttributeValue("scores", &types.AttributeValueMemberL{Value: []types.AttributeValue{
		&types.AttributeValueMemberN{Value: "1"},
		&types.AttributeValueMemberN{Value: "2"},
	}}, &list))
	assert.Equal(t, []int{1, 2}, list)

	var m map[string]string
	require.NoError(t, converter.FromAttributeValue("labels", Map(map[string]types.AttributeValue{
		"env": String("prod"),
	}), &m))
	assert.Equal(t, map[string]string{"env": "prod"}, m)

	var ptr *int
	require.NoError(t, converter.FromAttributeValue("count", &types.AttributeValueMemberN{Value: "3"}, &ptr))
	require.NotNil(t, ptr)
	assert.Equal(t, 3, *ptr)

	require.NoError(t, converter.FromAttributeValue("count", Null(), &ptr))
	assert.Nil(t, ptr)
}

func TestConverterDecodeErrorNamesNestedField(t *testing.T) {
	converter := NewConverter()

	var m map[string][]int
	err := converter.FromAttributeValue("buckets", Map(map[string]types.AttributeValue{
		"a": &types.AttributeValueMemberL{Value: []types.AttributeValue{String("x")}},
	}), &m)

	decodeErr, ok := errors.AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "buckets.a[0]", decodeErr.Field)
	assert.Equal(t, TypeNumber, decodeErr.Expected)
}

func TestConverterFromAttributeValueValidatesTarget(t *testing.T) {
	converter := NewConverter()

	var s string
	assert.Error(t, converter.FromAttributeValue("x", String("a"), s))
	assert.Error(t, converter.FromAttributeValue("x", String("a"), (*string)(nil)))
}

func TestConverterCustomConverters(t *testing.T) {
	converter := NewConverter()
	converter.RegisterConverter(reflect.TypeOf(upperString{}), upperConverter{})
	converter.RegisterConverter(nil, upperConverter{})

	assert.True(t, converter.HasCustomConverter(reflect.TypeOf(upperString{})))
	assert.True(t, converter.HasCustomConverter(reflect.TypeOf(&upperString{})))
	assert.False(t, converter.HasCustomConverter(reflect.TypeOf("")))

	av, err := converter.ToAttributeValue(upperString{Raw: "abc"})
	require.NoError(t, err)
	assert.Equal(t, String("ABC"), av)

	var decoded upperString
	require.NoError(t, converter.FromAttributeValue("raw", String("XYZ"), &decoded))
	assert.Equal(t, "xyz", decoded.Raw)
}

func TestConverterMarshalerInterfaces(t *testing.T) {
	converter := NewConverter()

	av, err := converter.ToAttributeValue(celsius(21.5))
	require.NoError(t, err)
	assert.Equal(t, String("21.5C"), av)

	var decoded celsius
	require.NoError(t, converter.FromAttributeValue("temp", String("19C"), &decoded))
	assert.Equal(t, celsius(19), decoded)

	err = converter.FromAttributeValue("temp", String("warmC"), &decoded)
	decodeErr, ok := errors.AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "temp", decodeErr.Field)
}

func TestConverterSets(t *testing.T) {
	converter := NewConverter()

	av, err := converter.EncodeSet(reflect.ValueOf([]string{"a", "b"}))
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberSS{Value: []string{"a", "b"}}, av)

	av, err = converter.EncodeSet(reflect.ValueOf([]int{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberNS{Value: []string{"1", "2"}}, av)

	av, err = converter.EncodeSet(reflect.ValueOf([]string{}))
	require.NoError(t, err)
	assert.Equal(t, Null(), av)

	_, err = converter.EncodeSet(reflect.ValueOf("a"))
	assert.ErrorIs(t, err, errors.ErrInvalidTag)

	_, err = converter.EncodeSet(reflect.ValueOf([]bool{true}))
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)

	var tags []string
	target := reflect.ValueOf(&tags).Elem()
	require.NoError(t, converter.DecodeSet("tags", Null(), target))
	assert.NotNil(t, tags)
	assert.Empty(t, tags)

	var ids []int64
	require.NoError(t, converter.DecodeSet("ids", &types.AttributeValueMemberNS{Value: []string{"5", "6"}}, reflect.ValueOf(&ids).Elem()))
	assert.Equal(t, []int64{5, 6}, ids)

	err = converter.DecodeSet("ids", String("5"), reflect.ValueOf(&ids).Elem())
	decodeErr, ok := errors.AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, TypeNumberSet, decodeErr.Expected)
}
