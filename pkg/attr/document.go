package attr

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

// EncodeDocument maps a free-form Go value (maps, slices, structs with
// dynamodbav tags) to its native attribute representation.
func EncodeDocument(v any) (types.AttributeValue, error) {
	av, err := attributevalue.MarshalWithOptions(v, func(o *attributevalue.EncoderOptions) {
		o.NullEmptySets = true
	})
	if err != nil {
		return nil, err
	}
	return av, nil
}

// DecodeDocument maps a native attribute value into target, which must be a
// non-nil pointer.
func DecodeDocument(field string, av types.AttributeValue, target any) error {
	if err := attributevalue.Unmarshal(av, target); err != nil {
		return errors.NewDecodeError(field, "document", Describe(av), err)
	}
	return nil
}

// EncodeDocumentItem maps a struct or map to an item.
func EncodeDocumentItem(v any) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(v)
}

// DecodeDocumentItem maps an item into target.
func DecodeDocumentItem(item map[string]types.AttributeValue, target any) error {
	if err := attributevalue.UnmarshalMap(item, target); err != nil {
		return errors.NewDecodeError("item", "document", Describe(Map(item)), err)
	}
	return nil
}
