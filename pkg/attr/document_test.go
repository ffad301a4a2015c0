package attr

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

type address struct {
	Street string `dynamodbav:"street"`
	Zip    int    `dynamodbav:"zip"`
}

func TestDocumentRoundTrip(t *testing.T) {
	av, err := EncodeDocument(address{Street: "Main", Zip: 12345})
	require.NoError(t, err)

	m, ok := av.(*types.AttributeValueMemberM)
	require.True(t, ok)
	assert.Equal(t, String("Main"), m.Value["street"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "12345"}, m.Value["zip"])

	var decoded address
	require.NoError(t, DecodeDocument("address", av, &decoded))
	assert.Equal(t, address{Street: "Main", Zip: 12345}, decoded)

	err = DecodeDocument("address", String("nope"), &decoded)
	assert.True(t, errors.IsDecodeError(err))
}

func TestDocumentItemRoundTrip(t *testing.T) {
	item, err := EncodeDocumentItem(map[string]any{"name": "x", "count": 2})
	require.NoError(t, err)
	assert.Equal(t, String("x"), item["name"])

	var out map[string]any
	require.NoError(t, DecodeDocumentItem(item, &out))
	assert.Equal(t, "x", out["name"])
}

func TestFromStreamImage(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"pk":    events.NewStringAttribute("signup"),
		"retry": events.NewNumberAttribute("5"),
		"ok":    events.NewBooleanAttribute(true),
		"tags":  events.NewStringSetAttribute([]string{"a"}),
		"gone":  events.NewNullAttribute(),
		"list":  events.NewListAttribute([]events.DynamoDBAttributeValue{events.NewNumberAttribute("1")}),
		"nested": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"inner": events.NewStringAttribute("v"),
		}),
	}

	item := FromStreamImage(image)

	assert.Equal(t, String("signup"), item["pk"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "5"}, item["retry"])
	assert.Equal(t, Bool(true), item["ok"])
	assert.Equal(t, &types.AttributeValueMemberSS{Value: []string{"a"}}, item["tags"])
	assert.Equal(t, Null(), item["gone"])
	assert.Equal(t, &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberN{Value: "1"}}}, item["list"])
	assert.Equal(t, Map(map[string]types.AttributeValue{"inner": String("v")}), item["nested"])
}
