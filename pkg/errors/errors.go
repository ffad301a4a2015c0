// Package errors defines error types and utilities for tablerow
package errors

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Common errors that can occur in tablerow operations
var (
	// ErrItemNotFound is returned when an item or a required attribute is absent
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidModel is returned when a record struct fails schema validation
	ErrInvalidModel = errors.New("invalid model")

	// ErrMissingPrimaryKey is returned when a record declares no partition key
	ErrMissingPrimaryKey = errors.New("missing primary key")

	// ErrDuplicatePrimaryKey is returned when the partition or sort key is declared twice
	ErrDuplicatePrimaryKey = errors.New("duplicate primary key definition")

	// ErrDuplicateAttribute is returned when two mapped fields resolve to the same store-side name
	ErrDuplicateAttribute = errors.New("duplicate attribute name")

	// ErrConditionFailed is returned when a conditional write is rejected by the store
	ErrConditionFailed = errors.New("condition check failed")

	// ErrBatchOperationFailed is returned when a batch write leaves unprocessed items behind
	ErrBatchOperationFailed = errors.New("batch operation failed")

	// ErrUnsupportedType is returned when a field type cannot be mapped
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidTag is returned when a struct tag is invalid
	ErrInvalidTag = errors.New("invalid struct tag")

	// ErrInvalidTemplate is returned when a partition key template cannot be parsed or rendered
	ErrInvalidTemplate = errors.New("invalid key template")

	// ErrInvalidKey is returned when a key schema or key value is malformed
	ErrInvalidKey = errors.New("invalid key")
)

// NotFoundError reports a required attribute, key component or item that was absent.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	if e == nil || e.Name == "" {
		return "tablerow: not found"
	}
	return fmt.Sprintf("tablerow: %s not found", e.Name)
}

// Is lets errors.Is(err, ErrItemNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// NewNotFound creates a NotFoundError for name.
func NewNotFound(name string) *NotFoundError {
	return &NotFoundError{Name: name}
}

// DecodeError is a field-scoped conversion failure. Raw holds a printable
// rendering of the offending store value.
type DecodeError struct {
	Err      error
	Field    string
	Expected string
	Raw      string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "tablerow: decode failed"
	}
	msg := fmt.Sprintf("tablerow: decode %s: expected %s, got %s", e.Field, e.Expected, e.Raw)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse failure
func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewDecodeError creates a DecodeError
func NewDecodeError(field, expected, raw string, err error) *DecodeError {
	return &DecodeError{Field: field, Expected: expected, Raw: raw, Err: err}
}

// StoreError wraps a failure reported by the store client with the operation
// that was being performed.
type StoreError struct {
	Err error
	Op  string
}

func (e *StoreError) Error() string {
	if e == nil {
		return "tablerow: store operation failed"
	}
	return fmt.Sprintf("tablerow: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying client error
func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewStoreError creates a StoreError
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// ConditionFailedError is returned when a conditional write is rejected.
type ConditionFailedError struct {
	Err error
	Op  string
}

func (e *ConditionFailedError) Error() string {
	if e == nil {
		return "tablerow: condition check failed"
	}
	return fmt.Sprintf("tablerow: %s: condition check failed", e.Op)
}

// Unwrap returns the store exception
func (e *ConditionFailedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrConditionFailed) match.
func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// PartialBatchFailure is the terminal state of a batch write whose retries
// were exhausted. Unprocessed holds every write request that did not land,
// grouped by table name.
type PartialBatchFailure struct {
	Unprocessed map[string][]types.WriteRequest
}

func (e *PartialBatchFailure) Error() string {
	if e == nil {
		return "tablerow: batch write left unprocessed items"
	}
	return fmt.Sprintf("tablerow: batch write left %d unprocessed items across %d tables", e.Count(), len(e.Unprocessed))
}

// Is lets errors.Is(err, ErrBatchOperationFailed) match.
func (e *PartialBatchFailure) Is(target error) bool {
	return target == ErrBatchOperationFailed
}

// Count returns the number of unprocessed write requests.
func (e *PartialBatchFailure) Count() int {
	if e == nil {
		return 0
	}
	total := 0
	for _, requests := range e.Unprocessed {
		total += len(requests)
	}
	return total
}

// Tables returns the affected table names in sorted order.
func (e *PartialBatchFailure) Tables() []string {
	if e == nil {
		return nil
	}
	tables := make([]string, 0, len(e.Unprocessed))
	for table := range e.Unprocessed {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}

// IsNotFound checks if an error indicates an item or attribute was not found
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

// IsInvalidModel checks if an error indicates an invalid record schema
func IsInvalidModel(err error) bool {
	return errors.Is(err, ErrInvalidModel)
}

// IsConditionFailed checks if an error indicates a condition check failure
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsDecodeError checks if an error is a field decode failure
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// AsDecodeError extracts a DecodeError from an error chain.
func AsDecodeError(err error) (*DecodeError, bool) {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr, true
	}
	return nil, false
}

// IsStoreError checks if an error came from the store client
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

// IsPartialBatchFailure checks if an error carries unprocessed batch items
func IsPartialBatchFailure(err error) bool {
	var partial *PartialBatchFailure
	return errors.As(err, &partial)
}

// AsPartialBatchFailure extracts a PartialBatchFailure from an error chain.
func AsPartialBatchFailure(err error) (*PartialBatchFailure, bool) {
	var partial *PartialBatchFailure
	if errors.As(err, &partial) {
		return partial, true
	}
	return nil, false
}
