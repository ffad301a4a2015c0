package expr

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablerow/pkg/attr"
)

func TestNumberFieldAddDecrement(t *testing.T) {
	retry := NewNumberField[int]("retry")

	compiled := retry.AddDecrement(1).Compile()

	assert.Equal(t, "\nADD #var_retry :vu1", compiled.Expression)
	assert.Equal(t, map[string]string{"#var_retry": "retry"}, compiled.Names)
	assert.Equal(t, map[string]types.AttributeValue{":vu1": &types.AttributeValueMemberN{Value: "-1"}}, compiled.Values)
}

func TestNumberFieldOperations(t *testing.T) {
	total := NewNumberField[float64]("total")

	tests := []struct {
		name       string
		update     Update
		expression string
		value      string
	}{
		{name: "set", update: total.Set(2.5), expression: "\nSET #var_total = :vu1", value: "2.5"},
		{name: "set increment", update: total.SetIncrement(1), expression: "\nSET #var_total = #var_total + :vu1", value: "1"},
		{name: "set decrement", update: total.SetDecrement(0.5), expression: "\nSET #var_total = #var_total - :vu1", value: "0.5"},
		{name: "add increment", update: total.AddIncrement(3), expression: "\nADD #var_total :vu1", value: "3"},
		{name: "add decrement of negative", update: total.AddDecrement(-4), expression: "\nADD #var_total :vu1", value: "4"},
		{name: "add decrement of zero", update: total.AddDecrement(0), expression: "\nADD #var_total :vu1", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled := tt.update.Compile()
			assert.Equal(t, tt.expression, compiled.Expression)
			assert.Equal(t, &types.AttributeValueMemberN{Value: tt.value}, compiled.Values[":vu1"])
		})
	}
}

func TestStringField(t *testing.T) {
	email := NewStringField("sk")

	assert.Equal(t, "sk", email.Name())
	assert.Equal(t, "#var_sk = :vc1", email.StringEquals("a@b.c").String())
	assert.Equal(t, "#var_sk = :vc1", email.Equals("a@b.c").String())
	assert.Equal(t, "begins_with(#var_sk, :vc1)", email.BeginsWith("a").String())
	assert.Equal(t, "#var_sk BETWEEN :vc1 AND :vc2", email.Between("a", "b").String())
	assert.Equal(t, "\nSET #var_sk = :vu1", email.Set("x").String())
}

func TestListField(t *testing.T) {
	tags := NewListField("tags", attr.String)

	appended := tags.Append("a", "b").Compile()
	assert.Equal(t, "\nSET #var_tags = list_append(#var_tags, :vu1)", appended.Expression)
	assert.Equal(t, &types.AttributeValueMemberL{Value: []types.AttributeValue{
		&types.AttributeValueMemberS{Value: "a"},
		&types.AttributeValueMemberS{Value: "b"},
	}}, appended.Values[":vu1"])

	assert.Equal(t, "\nSET #var_tags = list_append(:vu1, #var_tags)", tags.Prepend("z").String())
	assert.Equal(t, "\nSET #var_tags = :vu1", tags.Set([]string{"a"}).String())
}

func TestSetField(t *testing.T) {
	ids := NewStringSetField("valid_ids")

	deleted := ids.DeleteElements("a", "b").Compile()
	assert.Equal(t, "\nDELETE #var_valid_ids :vu1", deleted.Expression)
	assert.Equal(t, &types.AttributeValueMemberSS{Value: []string{"a", "b"}}, deleted.Values[":vu1"])

	assert.Equal(t, "\nADD #var_valid_ids :vu1", ids.AddElements("c").String())

	scores := NewNumberSetField[int]("scores")
	added := scores.AddElements(1, 2).Compile()
	assert.Equal(t, &types.AttributeValueMemberNS{Value: []string{"1", "2"}}, added.Values[":vu1"])
	assert.Equal(t, &types.AttributeValueMemberNULL{Value: true}, scores.Set(nil).Values()[":vu1"])
}

func TestOptionalFields(t *testing.T) {
	deactivated := NewOptionalField("DeactivatedOn", attr.String)

	assert.Equal(t, "\nREMOVE #var_DeactivatedOn", deactivated.Remove().String())
	assert.Equal(t, "\nSET #var_DeactivatedOn = if_not_exists(#var_DeactivatedOn, :vu1)", deactivated.SetIfNotExists("now").String())
	assert.Equal(t, "\nREMOVE #var_DeactivatedOn", deactivated.SetOptional(nil).String())

	value := "now"
	assert.Equal(t, "\nSET #var_DeactivatedOn = :vu1", deactivated.SetOptional(&value).String())

	limit := NewOptionalNumberField[int64]("limit")
	assert.Equal(t, "\nREMOVE #var_limit", limit.Remove().String())
	assert.Equal(t, "\nADD #var_limit :vu1", limit.AddIncrement(1).String())
	assert.Equal(t, "\nSET #var_limit = if_not_exists(#var_limit, :vu1)", limit.SetIfNotExists(10).String())
}

func TestEmbeddedField(t *testing.T) {
	type profile struct {
		Name string `json:"name"`
	}

	field := NewEmbeddedField[profile]("profile")
	update, err := field.Set(profile{Name: "Ada"})
	require.NoError(t, err)

	compiled := update.Compile()
	assert.Equal(t, "\nSET #var_profile = :vu1", compiled.Expression)
	assert.Equal(t, &types.AttributeValueMemberS{Value: `{"value":{"name":"Ada"}}`}, compiled.Values[":vu1"])

	bad := NewEmbeddedField[chan int]("bad")
	_, err = bad.Set(make(chan int))
	assert.Error(t, err)
}

func TestCombinedFieldUpdate(t *testing.T) {
	update := NewStringField("user").Set("bob").
		And(NewNumberField[int]("total_sales").SetIncrement(5)).
		And(NewNumberField[int]("count").AddIncrement(1)).
		And(NewStringSetField("valid_ids").DeleteElements("x"))

	assert.Equal(t,
		"\nSET #var_user = :vu1, #var_total_sales = #var_total_sales + :vu2\nADD #var_count :vu3\nDELETE #var_valid_ids :vu4",
		update.String())
}
