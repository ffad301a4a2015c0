package attr

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

// envelope is the self-describing wrapper stored for embedded fields.
type envelope struct {
	Value json.RawMessage `json:"value"`
}

// EncodeEmbedded serializes v into an S value holding {"value": <json>}.
func EncodeEmbedded(v any) (types.AttributeValue, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode embedded value: %w", err)
	}
	text, err := json.Marshal(envelope{Value: payload})
	if err != nil {
		return nil, fmt.Errorf("encode embedded envelope: %w", err)
	}
	return String(string(text)), nil
}

// DecodeEmbedded parses an embedded envelope into target, which must be a
// non-nil pointer. Parse failures carry the raw text.
func DecodeEmbedded(field string, av types.AttributeValue, target any) error {
	text, err := AsString(field, av)
	if err != nil {
		if decodeErr, ok := errors.AsDecodeError(err); ok {
			decodeErr.Expected = TypeEmbedded
		}
		return err
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return errors.NewDecodeError(field, TypeEmbedded, text, err)
	}
	if len(env.Value) == 0 {
		return errors.NewDecodeError(field, TypeEmbedded, text, fmt.Errorf("missing value member"))
	}
	if err := json.Unmarshal(env.Value, target); err != nil {
		return errors.NewDecodeError(field, TypeEmbedded, text, err)
	}
	return nil
}

// Embedded returns a typed decoder for embedded fields of type T.
func Embedded[T any]() func(string, types.AttributeValue) (T, error) {
	return func(field string, av types.AttributeValue) (T, error) {
		var out T
		err := DecodeEmbedded(field, av, &out)
		return out, err
	}
}
