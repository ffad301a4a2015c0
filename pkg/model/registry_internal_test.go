package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

func TestGetTableNamePluralization(t *testing.T) {
	type User struct{}
	type Company struct{}
	type Bus struct{}

	require.Equal(t, "Users", getTableName(reflect.TypeOf(User{})))
	require.Equal(t, "Companies", getTableName(reflect.TypeOf(Company{})))
	require.Equal(t, "Buses", getTableName(reflect.TypeOf(Bus{})))
}

func TestParseFieldTags(t *testing.T) {
	tags, err := parseFieldTags("sk, attr:sk ,omitempty")
	require.NoError(t, err)
	assert.Equal(t, fieldTags{attr: "sk", sk: true, omitEmpty: true}, tags)

	_, err = parseFieldTags("json,set")
	assert.ErrorIs(t, err, errors.ErrInvalidTag)

	_, err = parseFieldTags("pk,sk")
	assert.ErrorIs(t, err, errors.ErrInvalidTag)

	_, err = parseFieldTags("ttl")
	assert.ErrorIs(t, err, errors.ErrInvalidTag)
}

func TestFieldKindString(t *testing.T) {
	assert.Equal(t, "string set", KindStringSet.String())
	assert.Equal(t, "embedded json", KindEmbedded.String())
	assert.Equal(t, "FieldKind(99)", FieldKind(99).String())
	assert.True(t, KindNumberSet.IsSet())
	assert.False(t, KindList.IsSet())
}
