package table

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	tablerowErrors "github.com/theory-cloud/tablerow/pkg/errors"
)

const conditionalCheckFailedCode = "ConditionalCheckFailedException"

// storeError maps a client failure for op onto the error taxonomy. Rejected
// conditions become ConditionFailedError, everything else StoreError.
func storeError(op string, err error) error {
	if isConditionalCheckFailed(err) {
		return &tablerowErrors.ConditionFailedError{Op: op, Err: err}
	}
	return tablerowErrors.NewStoreError(op, err)
}

func isConditionalCheckFailed(err error) bool {
	var ccfe *types.ConditionalCheckFailedException
	if errors.As(err, &ccfe) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == conditionalCheckFailedCode
}
