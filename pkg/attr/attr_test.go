package attr

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

func TestNumberFormatting(t *testing.T) {
	tests := []struct {
		name     string
		got      types.AttributeValue
		expected string
	}{
		{name: "int", got: NumberOf(5), expected: "5"},
		{name: "negative int64", got: NumberOf(int64(-42)), expected: "-42"},
		{name: "uint8", got: NumberOf(uint8(255)), expected: "255"},
		{name: "float64", got: NumberOf(3.25), expected: "3.25"},
		{name: "float32 keeps short form", got: NumberOf(float32(0.1)), expected: "0.1"},
		{name: "large float is not exponent", got: NumberOf(1e21), expected: "1000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := tt.got.(*types.AttributeValueMemberN)
			require.True(t, ok)
			assert.Equal(t, tt.expected, n.Value)
		})
	}
}

func TestScalarDecoding(t *testing.T) {
	s, err := AsString("uid", String("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	b, err := AsBool("active", Bool(true))
	require.NoError(t, err)
	assert.True(t, b)

	n, err := AsNumber[int]("retry", NumberOf(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	f, err := AsNumber[float64]("ratio", &types.AttributeValueMemberN{Value: "0.5"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)
}

func TestDecodeErrorsAreFieldScoped(t *testing.T) {
	_, err := AsNumber[int]("retry", String("five"))
	decodeErr, ok := errors.AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "retry", decodeErr.Field)
	assert.Equal(t, TypeNumber, decodeErr.Expected)
	assert.Equal(t, `S("five")`, decodeErr.Raw)

	_, err = AsNumber[int8]("small", &types.AttributeValueMemberN{Value: "300"})
	decodeErr, ok = errors.AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, `N("300")`, decodeErr.Raw)
	assert.Error(t, decodeErr.Err)

	_, err = AsString("uid", nil)
	decodeErr, ok = errors.AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "<absent>", decodeErr.Raw)
}

func TestEmptySetsEncodeToNull(t *testing.T) {
	assert.Equal(t, Null(), StringSet(nil))
	assert.Equal(t, Null(), StringSet([]string{}))
	assert.Equal(t, Null(), NumberSet[int](nil))

	ss, err := AsStringSet("tags", Null())
	require.NoError(t, err)
	assert.NotNil(t, ss)
	assert.Empty(t, ss)

	ns, err := AsNumberSet[int]("ids", nil)
	require.NoError(t, err)
	assert.NotNil(t, ns)
	assert.Empty(t, ns)
}

func TestSetRoundTrip(t *testing.T) {
	ss, err := AsStringSet("tags", StringSet([]string{"a", "b"}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ss)

	ns, err := AsNumberSet[uint32]("ids", NumberSet([]uint32{1, 20}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{1, 20}, ns)

	_, err = AsStringSet("tags", String("a"))
	assert.True(t, errors.IsDecodeError(err))

	_, err = AsNumberSet[int]("ids", &types.AttributeValueMemberNS{Value: []string{"1", "x"}})
	assert.True(t, errors.IsDecodeError(err))
}

func TestListDecodingStopsAtFirstElementError(t *testing.T) {
	list := List([]int{1, 2, 3}, func(n int) types.AttributeValue { return NumberOf(n) })

	out, err := AsList("scores", list, AsNumber[int])
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)

	broken := &types.AttributeValueMemberL{Value: []types.AttributeValue{NumberOf(1), String("x"), Bool(true)}}
	_, err = AsList("scores", broken, AsNumber[int])
	decodeErr, ok := errors.AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "scores[1]", decodeErr.Field)
}

func TestOptional(t *testing.T) {
	absent, err := AsOptional("deleted_on", Null(), AsString)
	require.NoError(t, err)
	assert.Nil(t, absent)

	missing, err := AsOptional("deleted_on", nil, AsString)
	require.NoError(t, err)
	assert.Nil(t, missing)

	present, err := AsOptional("deleted_on", String("2024"), AsString)
	require.NoError(t, err)
	require.NotNil(t, present)
	assert.Equal(t, "2024", *present)

	assert.Equal(t, Null(), Optional[string](nil, String))
	value := "x"
	assert.Equal(t, String("x"), Optional(&value, String))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "NULL", Describe(Null()))
	assert.Equal(t, "BOOL(false)", Describe(Bool(false)))
	assert.Equal(t, "SS(a,b)", Describe(StringSet([]string{"a", "b"})))
	assert.Equal(t, "L(0 items)", Describe(&types.AttributeValueMemberL{}))
	assert.Equal(t, "M(a,b)", Describe(Map(map[string]types.AttributeValue{"b": Null(), "a": Null()})))
}
