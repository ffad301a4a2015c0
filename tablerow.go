// Package tablerow maps Go structs onto DynamoDB items and builds the
// condition and update expressions used to read and write them.
//
// Import path:
//
//	import "github.com/theory-cloud/tablerow"
//
// The root package wires a session, a schema registry and a logger together.
// The work itself lives in pkg/table (per-table operations) and pkg/batch
// (bulk writes).
package tablerow

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/theory-cloud/tablerow/pkg/batch"
	"github.com/theory-cloud/tablerow/pkg/core"
	"github.com/theory-cloud/tablerow/pkg/model"
	"github.com/theory-cloud/tablerow/pkg/session"
	"github.com/theory-cloud/tablerow/pkg/table"
)

type (
	// Re-export types for convenience.
	Config      = session.Config
	BatchConfig = session.BatchConfig
	Registry    = model.Registry
	Operation   = batch.Operation
	BatchResult = batch.Result
)

// Re-export constructors for convenience.
var (
	DefaultConfig = session.DefaultConfig
	LoadConfig    = session.LoadConfig
	NewRegistry   = model.NewRegistry
	Insert        = batch.Insert
	Delete        = batch.Delete
)

// Option configures a DB.
type Option func(*DB)

// WithRegistry shares a schema registry between DB instances.
func WithRegistry(registry *model.Registry) Option {
	return func(db *DB) {
		if registry != nil {
			db.registry = registry
		}
	}
}

// WithLogger sets the logger handed to every table and writer.
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithBatchMetrics records batch writer activity in m.
func WithBatchMetrics(m *batch.Metrics) Option {
	return func(db *DB) {
		db.metrics = m
	}
}

// DB holds what tables and writers share: the client, the registry and the
// batch settings.
type DB struct {
	client   core.Client
	registry *model.Registry
	logger   *zap.Logger
	metrics  *batch.Metrics
	batch    session.BatchConfig
}

// New opens a session from cfg. A nil cfg uses DefaultConfig.
func New(cfg *session.Config, opts ...Option) (*DB, error) {
	if cfg == nil {
		cfg = session.DefaultConfig()
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("tablerow: %w", err)
	}
	client, err := sess.Client()
	if err != nil {
		return nil, fmt.Errorf("tablerow: %w", err)
	}
	db := NewWithClient(client, opts...)
	db.batch = cfg.Batch
	return db, nil
}

// NewWithClient wraps an existing client, such as a mock in tests.
func NewWithClient(client core.Client, opts ...Option) *DB {
	db := &DB{
		client:   client,
		registry: model.NewRegistry(),
		logger:   zap.NewNop(),
		batch:    session.DefaultConfig().Batch,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Client returns the underlying store client.
func (db *DB) Client() core.Client {
	return db.client
}

// Registry returns the schema registry.
func (db *DB) Registry() *model.Registry {
	return db.registry
}

// Writer returns a batch writer using the configured batch settings. Later
// options override them.
func (db *DB) Writer(opts ...batch.Option) *batch.Writer {
	all := append(db.batch.Options(), batch.WithLogger(db.logger), batch.WithMetrics(db.metrics))
	return batch.NewWriter(db.client, append(all, opts...)...)
}

// NewTable registers T and returns its table.
func NewTable[T any](db *DB, opts ...table.Option) (*table.Table[T], error) {
	all := append([]table.Option{table.WithLogger(db.logger)}, opts...)
	return table.New[T](db.client, db.registry, all...)
}
