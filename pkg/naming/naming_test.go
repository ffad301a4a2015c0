package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAttrName(t *testing.T) {
	tests := map[string]string{
		"Name":      "name",
		"CreatedAt": "createdAt",
		"URLValue":  "urlValue",
		"ID":        "id",
		"UUID":      "uuid",
		"HTTPCode":  "httpCode",
		"PK":        "PK",
		"SK":        "SK",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, DefaultAttrName(input), input)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":         "name",
		"EmailAddress": "email_address",
		"RetryCount":   "retry_count",
		"URLValue":     "url_value",
		"UserID":       "user_id",
		"ID":           "id",
		"Address2":     "address2",
		"":             "",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, ToSnakeCase(input), input)
	}
}

func TestConvertAttrName(t *testing.T) {
	assert.Equal(t, "total_sales", ConvertAttrName("TotalSales", SnakeCase))
	assert.Equal(t, "totalSales", ConvertAttrName("TotalSales", CamelCase))
}

func TestParseConvention(t *testing.T) {
	tests := []struct {
		value string
		want  Convention
	}{
		{value: "snake_case", want: SnakeCase},
		{value: "camel_case", want: CamelCase},
		{value: "camelCase", want: CamelCase},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseConvention(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseConvention("kebab")
	assert.Error(t, err)

	assert.Equal(t, "camel_case", CamelCase.String())
	assert.Equal(t, "snake_case", SnakeCase.String())
}

func TestValidateAttrName(t *testing.T) {
	for _, v := range []string{"pk", "DeactivatedOn", "total_sales", "_hidden", "value1"} {
		assert.NoError(t, ValidateAttrName(v), v)
	}
	for _, v := range []string{"", "hyphen-name", "1st", "with space", "a.b"} {
		assert.Error(t, ValidateAttrName(v), v)
	}
}
