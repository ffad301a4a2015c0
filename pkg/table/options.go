package table

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,255}$`)

// Option configures a Table.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	tableName string
}

// WithTableName overrides the table name taken from the record schema.
func WithTableName(name string) Option {
	return func(o *options) {
		o.tableName = name
	}
}

// WithLogger sets the logger used for request tracing. The default discards
// everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// validateTableName applies the store's table naming rules.
func validateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid table name %q", errors.ErrInvalidModel, name)
	}
	return nil
}
