package model

import (
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablerow/pkg/attr"
	"github.com/theory-cloud/tablerow/pkg/errors"
	"github.com/theory-cloud/tablerow/pkg/expr"
)

// The Bind helpers resolve a Go field name to a typed expression handle,
// checking at startup that the handle's capabilities fit the field.

// BindString returns a handle for a required string field.
func BindString(meta *Metadata, name string) (expr.StringField, error) {
	f, err := lookup(meta, name, false, KindString)
	if err != nil {
		return expr.StringField{}, err
	}
	return expr.NewStringField(f.DBName), nil
}

// BindNumber returns a handle for a required numeric field of type T.
func BindNumber[T attr.Number](meta *Metadata, name string) (expr.NumberField[T], error) {
	f, err := lookup(meta, name, false, KindNumber)
	if err != nil {
		return expr.NumberField[T]{}, err
	}
	if err := checkType[T](f); err != nil {
		return expr.NumberField[T]{}, err
	}
	return expr.NewNumberField[T](f.DBName), nil
}

// BindOptionalNumber returns a handle for an optional numeric field.
func BindOptionalNumber[T attr.Number](meta *Metadata, name string) (expr.OptionalNumberField[T], error) {
	f, err := lookup(meta, name, true, KindNumber)
	if err != nil {
		return expr.OptionalNumberField[T]{}, err
	}
	if err := checkType[T](f); err != nil {
		return expr.OptionalNumberField[T]{}, err
	}
	return expr.NewOptionalNumberField[T](f.DBName), nil
}

// BindOptional returns a handle for an optional field of any scalar kind.
func BindOptional[T any](meta *Metadata, name string, encode func(T) types.AttributeValue) (expr.OptionalField[T], error) {
	f, err := lookup(meta, name, true)
	if err != nil {
		return expr.OptionalField[T]{}, err
	}
	if err := checkType[T](f); err != nil {
		return expr.OptionalField[T]{}, err
	}
	return expr.NewOptionalField(f.DBName, encode), nil
}

// BindField returns a plain handle for a required field of any kind.
func BindField[T any](meta *Metadata, name string, encode func(T) types.AttributeValue) (expr.Field[T], error) {
	f, err := lookup(meta, name, false)
	if err != nil {
		return expr.Field[T]{}, err
	}
	if err := checkType[T](f); err != nil {
		return expr.Field[T]{}, err
	}
	return expr.NewField(f.DBName, encode), nil
}

// BindList returns a handle for a list field with elements of type E.
func BindList[E any](meta *Metadata, name string, encode func(E) types.AttributeValue) (expr.ListField[E], error) {
	f, err := lookup(meta, name, false, KindList)
	if err != nil {
		return expr.ListField[E]{}, err
	}
	if f.ValueType.Kind() != reflect.Slice || f.ValueType.Elem() != reflect.TypeOf((*E)(nil)).Elem() {
		return expr.ListField[E]{}, mismatchedType[[]E](f)
	}
	return expr.NewListField(f.DBName, encode), nil
}

// BindStringSet returns a handle for a string set field.
func BindStringSet(meta *Metadata, name string) (expr.SetField[string], error) {
	f, err := lookup(meta, name, false, KindStringSet)
	if err != nil {
		return expr.SetField[string]{}, err
	}
	return expr.NewStringSetField(f.DBName), nil
}

// BindNumberSet returns a handle for a number set field.
func BindNumberSet[T attr.Number](meta *Metadata, name string) (expr.SetField[T], error) {
	f, err := lookup(meta, name, false, KindNumberSet)
	if err != nil {
		return expr.SetField[T]{}, err
	}
	if f.ValueType.Elem() != reflect.TypeOf((*T)(nil)).Elem() {
		return expr.SetField[T]{}, mismatchedType[[]T](f)
	}
	return expr.NewNumberSetField[T](f.DBName), nil
}

// BindEmbedded returns a handle for a json-tagged field.
func BindEmbedded[T any](meta *Metadata, name string) (expr.EmbeddedField[T], error) {
	f, err := lookup(meta, name, false, KindEmbedded)
	if err != nil {
		return expr.EmbeddedField[T]{}, err
	}
	return expr.NewEmbeddedField[T](f.DBName), nil
}

func lookup(meta *Metadata, name string, optional bool, kinds ...FieldKind) (*FieldMetadata, error) {
	f, ok := meta.FieldsByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no mapped field %s", errors.ErrInvalidModel, meta.Type.Name(), name)
	}
	if f.Optional != optional {
		if optional {
			return nil, fmt.Errorf("%w: field %s is required", errors.ErrInvalidModel, name)
		}
		return nil, fmt.Errorf("%w: field %s is optional", errors.ErrInvalidModel, name)
	}
	if len(kinds) == 0 {
		return f, nil
	}
	for _, k := range kinds {
		if f.Kind == k {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: field %s is %s, not %s", errors.ErrInvalidModel, name, f.Kind, kinds[0])
}

func checkType[T any](f *FieldMetadata) error {
	if f.ValueType != reflect.TypeOf((*T)(nil)).Elem() {
		return mismatchedType[T](f)
	}
	return nil
}

func mismatchedType[T any](f *FieldMetadata) error {
	return fmt.Errorf("%w: field %s has type %s, not %s",
		errors.ErrInvalidModel, f.Name, f.ValueType, reflect.TypeOf((*T)(nil)).Elem())
}
