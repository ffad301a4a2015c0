// Package key models table key schemas and concrete key values.
package key

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablerow/pkg/errors"
	"github.com/theory-cloud/tablerow/pkg/expr"
)

// Key is a key schema: a partition key name and an optional sort key name.
type Key struct {
	partition string
	sort      string
}

// NewPartitionKey creates a partition-only schema.
func NewPartitionKey(name string) Key {
	return Key{partition: name}
}

// NewCompositeKey creates a partition + sort schema.
func NewCompositeKey(partition, sort string) Key {
	return Key{partition: partition, sort: sort}
}

// PartitionKey returns the partition key attribute name.
func (k Key) PartitionKey() string {
	return k.partition
}

// SortKey returns the sort key attribute name, if any.
func (k Key) SortKey() (string, bool) {
	return k.sort, k.sort != ""
}

// IsComposite reports whether the schema has a sort key.
func (k Key) IsComposite() bool {
	return k.sort != ""
}

// Names returns the key attribute names, partition first.
func (k Key) Names() []string {
	if k.IsComposite() {
		return []string{k.partition, k.sort}
	}
	return []string{k.partition}
}

// Validate checks that names are present and distinct.
func (k Key) Validate() error {
	if k.partition == "" {
		return fmt.Errorf("%w: empty partition key name", errors.ErrInvalidKey)
	}
	if k.sort != "" && k.sort == k.partition {
		return fmt.Errorf("%w: partition and sort key are both %q", errors.ErrInvalidKey, k.partition)
	}
	return nil
}

// ProjectionExpression lists the key attributes: "pk" or "pk, sk".
func (k Key) ProjectionExpression() string {
	return strings.Join(k.Names(), ", ")
}

// Matches reports whether item holds exactly the key attributes of k.
func (k Key) Matches(item map[string]types.AttributeValue) bool {
	for _, name := range k.Names() {
		if _, ok := item[name]; !ok {
			return false
		}
	}
	return len(item) == len(k.Names())
}

// KeyValue is a concrete primary key: a schema plus one value per component.
type KeyValue struct {
	partitionValue types.AttributeValue
	sortValue      types.AttributeValue
	key            Key
}

// NewPartitionKeyValue creates a partition-only key value.
func NewPartitionKeyValue(name string, value types.AttributeValue) KeyValue {
	return KeyValue{key: NewPartitionKey(name), partitionValue: value}
}

// NewCompositeKeyValue creates a partition + sort key value.
func NewCompositeKeyValue(partition string, partitionValue types.AttributeValue, sort string, sortValue types.AttributeValue) KeyValue {
	return KeyValue{
		key:            NewCompositeKey(partition, sort),
		partitionValue: partitionValue,
		sortValue:      sortValue,
	}
}

// FromMap extracts the components named by schema from raw. A missing
// component is reported as a NotFoundError naming the attribute.
func FromMap(raw map[string]types.AttributeValue, schema Key) (KeyValue, error) {
	pv, ok := raw[schema.partition]
	if !ok {
		return KeyValue{}, errors.NewNotFound(schema.partition)
	}
	if !schema.IsComposite() {
		return NewPartitionKeyValue(schema.partition, pv), nil
	}
	sv, ok := raw[schema.sort]
	if !ok {
		return KeyValue{}, errors.NewNotFound(schema.sort)
	}
	return NewCompositeKeyValue(schema.partition, pv, schema.sort, sv), nil
}

// Key returns the schema of kv.
func (kv KeyValue) Key() Key {
	return kv.key
}

// PartitionValue returns the partition component.
func (kv KeyValue) PartitionValue() types.AttributeValue {
	return kv.partitionValue
}

// SortValue returns the sort component, if any.
func (kv KeyValue) SortValue() (types.AttributeValue, bool) {
	return kv.sortValue, kv.key.IsComposite()
}

// PartitionOnly drops the sort component.
func (kv KeyValue) PartitionOnly() KeyValue {
	return NewPartitionKeyValue(kv.key.partition, kv.partitionValue)
}

// WithSortKey returns a composite key value with the same partition.
func (kv KeyValue) WithSortKey(name string, value types.AttributeValue) KeyValue {
	return NewCompositeKeyValue(kv.key.partition, kv.partitionValue, name, value)
}

// ToMap returns the key as an item-shaped map.
func (kv KeyValue) ToMap() map[string]types.AttributeValue {
	out := map[string]types.AttributeValue{kv.key.partition: kv.partitionValue}
	if kv.key.IsComposite() {
		out[kv.key.sort] = kv.sortValue
	}
	return out
}

// Condition renders the key as equality units joined by AND, partition first.
func (kv KeyValue) Condition() expr.Condition {
	cond := expr.Equals(kv.key.partition, kv.partitionValue)
	if kv.key.IsComposite() {
		cond = cond.And(expr.Equals(kv.key.sort, kv.sortValue))
	}
	return cond
}

// Equal reports whether kv and other have the same schema and values.
func (kv KeyValue) Equal(other KeyValue) bool {
	return kv.key == other.key &&
		reflect.DeepEqual(kv.partitionValue, other.partitionValue) &&
		reflect.DeepEqual(kv.sortValue, other.sortValue)
}

// PartitionEquals reports whether the partition value is the string value.
func (kv KeyValue) PartitionEquals(value string) bool {
	s, ok := kv.partitionValue.(*types.AttributeValueMemberS)
	return ok && s.Value == value
}

// MatchesTemplate reports whether the partition value is a string matching t.
func (kv KeyValue) MatchesTemplate(t Template) bool {
	s, ok := kv.partitionValue.(*types.AttributeValueMemberS)
	return ok && t.Matches(s.Value)
}
