// Package table is the typed operations facade over one store table.
//
// A Table[T] reads and writes records of type T, a struct registered with a
// model.Registry:
//
//	users, err := table.New[SignUp](client, registry)
//	record, err := users.Get(ctx, kv)
//
// Every operation is a single store call. Missing items surface as
// errors.NotFoundError, rejected conditions as errors.ConditionFailedError
// and other client failures as errors.StoreError.
package table

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/theory-cloud/tablerow/internal/numutil"
	"github.com/theory-cloud/tablerow/pkg/attr"
	"github.com/theory-cloud/tablerow/pkg/core"
	"github.com/theory-cloud/tablerow/pkg/errors"
	"github.com/theory-cloud/tablerow/pkg/expr"
	"github.com/theory-cloud/tablerow/pkg/key"
	"github.com/theory-cloud/tablerow/pkg/model"
)

// Table performs typed operations on records of type T.
type Table[T any] struct {
	client    core.Client
	mapper    *model.Mapper
	logger    *zap.Logger
	tableName string
}

// Page is one page of a range query. Next is nil on the last page.
type Page[T any] struct {
	Next  *key.KeyValue
	Items []T
}

// New registers T with registry and returns a table for it. A nil registry
// gets a fresh one.
func New[T any](client core.Client, registry *model.Registry, opts ...Option) (*Table[T], error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is nil", errors.ErrInvalidModel)
	}
	if registry == nil {
		registry = model.NewRegistry()
	}

	var zero T
	mapper, err := registry.Mapper(&zero)
	if err != nil {
		return nil, err
	}

	o := options{logger: zap.NewNop(), tableName: mapper.TableName()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateTableName(o.tableName); err != nil {
		return nil, err
	}

	return &Table[T]{
		client:    client,
		mapper:    mapper,
		logger:    o.logger,
		tableName: o.tableName,
	}, nil
}

// WithTable returns a copy of the table bound to another table name.
func (t *Table[T]) WithTable(name string) *Table[T] {
	clone := *t
	clone.tableName = name
	return &clone
}

// Name returns the table name requests are sent to.
func (t *Table[T]) Name() string {
	return t.tableName
}

// Mapper returns the record mapper.
func (t *Table[T]) Mapper() *model.Mapper {
	return t.mapper
}

// Get reads the record stored under kv.
func (t *Table[T]) Get(ctx context.Context, kv key.KeyValue) (T, error) {
	var record T
	item, err := t.getItem(ctx, kv)
	if err != nil {
		return record, err
	}
	if item == nil {
		return record, errors.NewNotFound(t.tableName)
	}
	if err := t.mapper.Decode(item, &record); err != nil {
		return record, err
	}
	return record, nil
}

// GetMaybe is Get with a missing item reported as nil instead of an error.
func (t *Table[T]) GetMaybe(ctx context.Context, kv key.KeyValue) (*T, error) {
	item, err := t.getItem(ctx, kv)
	if err != nil || item == nil {
		return nil, err
	}
	var record T
	if err := t.mapper.Decode(item, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (t *Table[T]) getItem(ctx context.Context, kv key.KeyValue) (map[string]types.AttributeValue, error) {
	projection, names := t.mapper.Projection()
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(t.tableName),
		Key:                      kv.ToMap(),
		ProjectionExpression:     aws.String(projection),
		ExpressionAttributeNames: names,
	})
	if err != nil {
		return nil, storeError("get item", err)
	}
	t.logger.Debug("get item", zap.String("table", t.tableName), zap.Bool("found", out.Item != nil))
	return out.Item, nil
}

// Exists reports whether an item is stored under kv. Only key attributes are
// read.
func (t *Table[T]) Exists(ctx context.Context, kv key.KeyValue) (bool, error) {
	projection, names := t.mapper.KeyProjection()
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(t.tableName),
		Key:                      kv.ToMap(),
		ProjectionExpression:     aws.String(projection),
		ExpressionAttributeNames: names,
	})
	if err != nil {
		return false, storeError("get item", err)
	}
	return out.Item != nil && kv.Key().Matches(out.Item), nil
}

// QueryRange returns one page of records matching the key condition. limit
// bounds the page size (zero for no bound), cursor resumes after a previous
// page, ascending sets the sort key order. An item that fails to decode fails
// the whole page.
func (t *Table[T]) QueryRange(ctx context.Context, condition expr.Condition, limit int, cursor *key.KeyValue, ascending bool) (Page[T], error) {
	compiled := condition.Compile()
	projection, projectionNames := t.mapper.Projection()
	names, _ := compiled.Merge(expr.Compiled{Names: projectionNames})

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.tableName),
		KeyConditionExpression:    aws.String(compiled.Expression),
		ProjectionExpression:      aws.String(projection),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: compiled.Values,
		Limit:                     numutil.PageLimit(limit),
		ScanIndexForward:          aws.Bool(ascending),
	}
	if cursor != nil {
		input.ExclusiveStartKey = cursor.ToMap()
	}

	out, err := t.client.Query(ctx, input)
	if err != nil {
		return Page[T]{}, storeError("query", err)
	}

	page := Page[T]{Items: make([]T, 0, len(out.Items))}
	for _, item := range out.Items {
		var record T
		if err := t.mapper.Decode(item, &record); err != nil {
			return Page[T]{}, err
		}
		page.Items = append(page.Items, record)
	}

	if len(out.LastEvaluatedKey) > 0 {
		next, err := key.FromMap(out.LastEvaluatedKey, t.mapper.Key())
		if err != nil {
			return Page[T]{}, err
		}
		page.Next = &next
	}

	t.logger.Debug("query",
		zap.String("table", t.tableName),
		zap.Int("items", len(page.Items)),
		zap.Bool("more", page.Next != nil),
	)
	return page, nil
}

// ListByPartition pages through the records sharing the type's static
// partition value.
func (t *Table[T]) ListByPartition(ctx context.Context, limit int, cursor *key.KeyValue, ascending bool) (Page[T], error) {
	pv, ok := t.mapper.StaticPartitionValue()
	if !ok {
		return Page[T]{}, fmt.Errorf("%w: %s has no static partition value", errors.ErrInvalidModel, t.mapper.Metadata().Type.Name())
	}
	return t.ListByPartitionValue(ctx, pv, limit, cursor, ascending)
}

// ListByPartitionValue pages through the records stored under one partition.
func (t *Table[T]) ListByPartitionValue(ctx context.Context, pv types.AttributeValue, limit int, cursor *key.KeyValue, ascending bool) (Page[T], error) {
	return t.QueryRange(ctx, expr.Equals(t.mapper.Key().PartitionKey(), pv), limit, cursor, ascending)
}

// ListWithSortKeyPrefix pages through the records of one partition whose sort
// key begins with prefix.
func (t *Table[T]) ListWithSortKeyPrefix(ctx context.Context, pv types.AttributeValue, prefix string, limit int, cursor *key.KeyValue, ascending bool) (Page[T], error) {
	schema := t.mapper.Key()
	sortKey, ok := schema.SortKey()
	if !ok {
		return Page[T]{}, fmt.Errorf("%w: %s has no sort key", errors.ErrInvalidModel, t.mapper.Metadata().Type.Name())
	}
	bounds := key.NewPartitionKeyValue(schema.PartitionKey(), pv).WithSortKey(sortKey, attr.String(prefix))
	sv, _ := bounds.SortValue()
	condition := bounds.PartitionOnly().Condition().And(expr.BeginsWith(sortKey, sv))
	return t.QueryRange(ctx, condition, limit, cursor, ascending)
}

// Insert writes record, replacing any item under the same key.
func (t *Table[T]) Insert(ctx context.Context, record T) error {
	return t.put(ctx, record, expr.Condition{})
}

// InsertIfAbsent writes record only when no item exists under its key.
func (t *Table[T]) InsertIfAbsent(ctx context.Context, record T) error {
	return t.put(ctx, record, expr.AttributeNotExists(t.mapper.Key().PartitionKey()))
}

func (t *Table[T]) put(ctx context.Context, record T, condition expr.Condition) error {
	item, err := t.mapper.Encode(&record)
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.tableName),
		Item:      item,
	}
	if !condition.IsZero() {
		compiled := condition.Compile()
		input.ConditionExpression = aws.String(compiled.Expression)
		input.ExpressionAttributeNames = compiled.Names
		if len(compiled.Values) > 0 {
			input.ExpressionAttributeValues = compiled.Values
		}
	}

	if _, err := t.client.PutItem(ctx, input); err != nil {
		return storeError("put item", err)
	}
	t.logger.Debug("put item", zap.String("table", t.tableName))
	return nil
}

// Update overwrites every non-key attribute of the stored item with the
// values in record.
func (t *Table[T]) Update(ctx context.Context, record T) error {
	kv, err := t.mapper.KeyValue(&record)
	if err != nil {
		return err
	}
	expression, names, values, err := t.mapper.RecordUpdate(&record)
	if err != nil {
		return err
	}
	return t.updateItem(ctx, kv, expression, "", names, values)
}

// UpdateWithExpression applies update to the item under kv.
func (t *Table[T]) UpdateWithExpression(ctx context.Context, kv key.KeyValue, update expr.Update) error {
	compiled := update.Compile()
	return t.updateItem(ctx, kv, compiled.Expression, "", compiled.Names, compiled.Values)
}

// UpdateWithCondition applies update when condition holds for the stored
// item. Both placeholder sets are merged into one request.
func (t *Table[T]) UpdateWithCondition(ctx context.Context, kv key.KeyValue, update expr.Update, condition expr.Condition) error {
	u := update.Compile()
	c := condition.Compile()
	names, values := u.Merge(c)
	return t.updateItem(ctx, kv, u.Expression, c.Expression, names, values)
}

func (t *Table[T]) updateItem(ctx context.Context, kv key.KeyValue, expression, condition string, names map[string]string, values map[string]types.AttributeValue) error {
	input := &dynamodb.UpdateItemInput{
		TableName:                aws.String(t.tableName),
		Key:                      kv.ToMap(),
		UpdateExpression:         aws.String(expression),
		ExpressionAttributeNames: names,
	}
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
	}

	if _, err := t.client.UpdateItem(ctx, input); err != nil {
		return storeError("update item", err)
	}
	t.logger.Debug("update item", zap.String("table", t.tableName), zap.Bool("conditional", condition != ""))
	return nil
}

// Delete removes the item under kv. Deleting a missing item succeeds.
func (t *Table[T]) Delete(ctx context.Context, kv key.KeyValue) error {
	return t.deleteItem(ctx, kv, expr.Condition{})
}

// DeleteWithCondition removes the item under kv when condition holds.
func (t *Table[T]) DeleteWithCondition(ctx context.Context, kv key.KeyValue, condition expr.Condition) error {
	return t.deleteItem(ctx, kv, condition)
}

func (t *Table[T]) deleteItem(ctx context.Context, kv key.KeyValue, condition expr.Condition) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(t.tableName),
		Key:       kv.ToMap(),
	}
	if !condition.IsZero() {
		compiled := condition.Compile()
		input.ConditionExpression = aws.String(compiled.Expression)
		input.ExpressionAttributeNames = compiled.Names
		if len(compiled.Values) > 0 {
			input.ExpressionAttributeValues = compiled.Values
		}
	}

	if _, err := t.client.DeleteItem(ctx, input); err != nil {
		return storeError("delete item", err)
	}
	t.logger.Debug("delete item", zap.String("table", t.tableName))
	return nil
}
