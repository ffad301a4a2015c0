package key

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func TestKeySchema(t *testing.T) {
	partition := NewPartitionKey("pk")
	composite := NewCompositeKey("pk", "sk")

	assert.False(t, partition.IsComposite())
	assert.True(t, composite.IsComposite())

	_, ok := partition.SortKey()
	assert.False(t, ok)
	sk, ok := composite.SortKey()
	assert.True(t, ok)
	assert.Equal(t, "sk", sk)

	assert.Equal(t, "pk", partition.ProjectionExpression())
	assert.Equal(t, "pk, sk", composite.ProjectionExpression())
	assert.Equal(t, []string{"pk", "sk"}, composite.Names())
}

func TestKeyValidate(t *testing.T) {
	assert.NoError(t, NewCompositeKey("pk", "sk").Validate())
	assert.ErrorIs(t, NewPartitionKey("").Validate(), errors.ErrInvalidKey)
	assert.ErrorIs(t, NewCompositeKey("id", "id").Validate(), errors.ErrInvalidKey)
}

func TestKeyMatches(t *testing.T) {
	composite := NewCompositeKey("pk", "sk")

	assert.True(t, composite.Matches(map[string]types.AttributeValue{"pk": str("a"), "sk": str("b")}))
	assert.False(t, composite.Matches(map[string]types.AttributeValue{"pk": str("a")}))
	assert.False(t, composite.Matches(map[string]types.AttributeValue{"pk": str("a"), "sk": str("b"), "x": str("c")}))
	assert.True(t, NewPartitionKey("id").Matches(map[string]types.AttributeValue{"id": str("a")}))
}

func TestKeyValueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		kv   KeyValue
	}{
		{name: "partition", kv: NewPartitionKeyValue("pk", str("signup"))},
		{name: "composite", kv: NewCompositeKeyValue("pk", str("signup"), "sk", str("u@example.com"))},
		{name: "numeric sort", kv: NewCompositeKeyValue("pk", str("p"), "ts", &types.AttributeValueMemberN{Value: "42"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			back, err := FromMap(tt.kv.ToMap(), tt.kv.Key())
			require.NoError(t, err)
			assert.True(t, tt.kv.Equal(back))
		})
	}
}

func TestFromMapMissingComponent(t *testing.T) {
	_, err := FromMap(map[string]types.AttributeValue{"pk": str("a")}, NewCompositeKey("pk", "sk"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "sk")

	_, err = FromMap(map[string]types.AttributeValue{}, NewPartitionKey("pk"))
	assert.True(t, errors.IsNotFound(err))
}

func TestKeyValueCondition(t *testing.T) {
	kv := NewCompositeKeyValue("pk", str("p"), "sk", str("s"))

	compiled := kv.Condition().Compile()
	assert.Equal(t, "#var_pk = :vc1 AND #var_sk = :vc2", compiled.Expression)
	assert.Equal(t, map[string]string{"#var_pk": "pk", "#var_sk": "sk"}, compiled.Names)
	assert.Equal(t, str("p"), compiled.Values[":vc1"])
	assert.Equal(t, str("s"), compiled.Values[":vc2"])

	assert.Equal(t, "#var_pk = :vc1", kv.PartitionOnly().Condition().String())
}

func TestKeyValueTransforms(t *testing.T) {
	kv := NewPartitionKeyValue("pk", str("Order:u1:o1"))

	composite := kv.WithSortKey("sk", str("s"))
	assert.True(t, composite.Key().IsComposite())
	sv, ok := composite.SortValue()
	assert.True(t, ok)
	assert.Equal(t, str("s"), sv)

	assert.True(t, composite.PartitionOnly().Equal(kv))
	assert.False(t, composite.Equal(kv))

	assert.True(t, kv.PartitionEquals("Order:u1:o1"))
	assert.True(t, kv.MatchesTemplate(MustParseTemplate("Order:{user_id}:{order_id}")))
	assert.False(t, NewPartitionKeyValue("pk", &types.AttributeValueMemberN{Value: "1"}).PartitionEquals("1"))
}
