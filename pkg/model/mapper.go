package model

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablerow/internal/reflectutil"
	"github.com/theory-cloud/tablerow/pkg/attr"
	"github.com/theory-cloud/tablerow/pkg/errors"
	"github.com/theory-cloud/tablerow/pkg/key"
)

// Mapper converts one record type to and from store items.
type Mapper struct {
	meta     *Metadata
	registry *Registry
}

// Metadata returns the record schema.
func (m *Mapper) Metadata() *Metadata {
	return m.meta
}

// TableName returns the table the record lives in.
func (m *Mapper) TableName() string {
	return m.meta.TableName
}

// Key returns the primary key schema.
func (m *Mapper) Key() key.Key {
	return m.meta.Key()
}

// Encode converts record into an item, including a struct-level partition
// value rendered from its template.
func (m *Mapper) Encode(record any) (map[string]types.AttributeValue, error) {
	v, err := m.recordValue(record)
	if err != nil {
		return nil, err
	}

	item, err := m.registry.encodeFields(m.meta, v)
	if err != nil {
		return nil, err
	}

	if m.meta.PartitionTemplate != nil {
		pv, err := renderPartition(m.meta, item)
		if err != nil {
			return nil, err
		}
		item[m.meta.PartitionKeyName] = pv
	}
	return item, nil
}

// Decode populates target, a non-nil pointer to the record type, from item.
// A missing required attribute is a NotFoundError, a type mismatch a
// DecodeError naming the attribute path.
func (m *Mapper) Decode(item map[string]types.AttributeValue, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer", errors.ErrInvalidModel)
	}
	v = v.Elem()
	if v.Type() != m.meta.Type {
		return fmt.Errorf("%w: decode target is %s, mapper is for %s", errors.ErrInvalidModel, v.Type(), m.meta.Type)
	}
	return m.registry.decodeFields(m.meta, item, v, "")
}

// KeyValue returns the primary key of record.
func (m *Mapper) KeyValue(record any) (key.KeyValue, error) {
	item, err := m.Encode(record)
	if err != nil {
		return key.KeyValue{}, err
	}
	return key.FromMap(item, m.meta.Key())
}

// PartitionValue returns the partition key value of record.
func (m *Mapper) PartitionValue(record any) (types.AttributeValue, error) {
	kv, err := m.KeyValue(record)
	if err != nil {
		return nil, err
	}
	return kv.PartitionValue(), nil
}

// StaticPartitionValue returns the partition value shared by every record of
// the type, when the template has no placeholders.
func (m *Mapper) StaticPartitionValue() (types.AttributeValue, bool) {
	if !m.meta.HasStaticPartition() {
		return nil, false
	}
	return attr.String(m.meta.PartitionTemplate.String()), true
}

// MatchesPartitionTemplate reports whether value could be this record type's
// partition value. Types without a partition template never match.
func (m *Mapper) MatchesPartitionTemplate(value string) bool {
	if m.meta.PartitionTemplate == nil {
		return false
	}
	return m.meta.PartitionTemplate.Matches(value)
}

// Projection returns a projection expression over every mapped attribute,
// with one "#v_<name>" placeholder per attribute.
func (m *Mapper) Projection() (string, map[string]string) {
	names := make(map[string]string, len(m.meta.Fields))
	parts := make([]string, len(m.meta.Fields))
	for i, f := range m.meta.Fields {
		placeholder := projectionPlaceholder(f.DBName)
		names[placeholder] = f.DBName
		parts[i] = placeholder
	}
	return strings.Join(parts, ", "), names
}

// KeyProjection returns a projection expression over the key attributes,
// with the same "#v_<name>" placeholders as Projection.
func (m *Mapper) KeyProjection() (string, map[string]string) {
	names := m.meta.Key().Names()
	out := make(map[string]string, len(names))
	parts := make([]string, len(names))
	for i, name := range names {
		placeholder := projectionPlaceholder(name)
		out[placeholder] = name
		parts[i] = placeholder
	}
	return strings.Join(parts, ", "), out
}

func projectionPlaceholder(name string) string {
	return "#v_" + strings.ReplaceAll(name, ".", "_")
}

// RecordUpdate renders "SET #a = :v_a, #b = :v_b" over the non-key attributes
// of record, in schema order.
func (m *Mapper) RecordUpdate(record any) (string, map[string]string, map[string]types.AttributeValue, error) {
	item, err := m.Encode(record)
	if err != nil {
		return "", nil, nil, err
	}

	names := make(map[string]string)
	values := make(map[string]types.AttributeValue)
	var parts []string
	for _, f := range m.meta.Fields {
		if f.IsPK || f.IsSK {
			continue
		}
		av, ok := item[f.DBName]
		if !ok {
			continue
		}
		names["#"+f.DBName] = f.DBName
		values[":v_"+f.DBName] = av
		parts = append(parts, "#"+f.DBName+" = :v_"+f.DBName)
	}

	if len(parts) == 0 {
		return "", nil, nil, fmt.Errorf("%w: %s has no non-key attributes to update", errors.ErrInvalidModel, m.meta.Type.Name())
	}
	return "SET " + strings.Join(parts, ", "), names, values, nil
}

func (m *Mapper) recordValue(record any) (reflect.Value, error) {
	v, ok := reflectutil.Indirect(reflect.ValueOf(record))
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: record is nil", errors.ErrInvalidModel)
	}
	if v.Type() != m.meta.Type {
		return reflect.Value{}, fmt.Errorf("%w: expected %s, got %T", errors.ErrInvalidModel, m.meta.Type, record)
	}
	return v, nil
}

func renderPartition(meta *Metadata, item map[string]types.AttributeValue) (types.AttributeValue, error) {
	rendered, err := meta.PartitionTemplate.Render(func(name string) (string, bool) {
		switch v := item[name].(type) {
		case *types.AttributeValueMemberS:
			return v.Value, true
		case *types.AttributeValueMemberN:
			return v.Value, true
		default:
			return "", false
		}
	})
	if err != nil {
		return nil, err
	}
	return attr.String(rendered), nil
}

// EncodeStruct implements attr.StructCodec for nested records.
func (r *Registry) EncodeStruct(v reflect.Value) (types.AttributeValue, error) {
	meta, err := r.recordMetadata(v.Type())
	if err != nil {
		return nil, err
	}
	item, err := r.encodeFields(meta, v)
	if err != nil {
		return nil, err
	}
	return attr.Map(item), nil
}

// DecodeStruct implements attr.StructCodec for nested records.
func (r *Registry) DecodeStruct(field string, m map[string]types.AttributeValue, target reflect.Value) error {
	meta, err := r.recordMetadata(target.Type())
	if err != nil {
		return err
	}
	return r.decodeFields(meta, m, target, field)
}

func (r *Registry) encodeFields(meta *Metadata, v reflect.Value) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(meta.Fields)+1)
	for _, f := range meta.Fields {
		fv := v.FieldByIndex(f.IndexPath)
		if f.OmitEmpty && reflectutil.IsEmpty(fv) {
			continue
		}
		av, err := r.encodeField(f, fv)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		item[f.DBName] = av
	}
	return item, nil
}

func (r *Registry) encodeField(f *FieldMetadata, fv reflect.Value) (types.AttributeValue, error) {
	if f.Optional && fv.IsNil() {
		return attr.Null(), nil
	}

	switch f.Kind {
	case KindStringSet, KindNumberSet:
		return r.converter.EncodeSet(fv)
	case KindEmbedded:
		return attr.EncodeEmbedded(fv.Interface())
	case KindDocument:
		return attr.EncodeDocument(fv.Interface())
	default:
		return r.converter.Encode(fv)
	}
}

func (r *Registry) decodeFields(meta *Metadata, item map[string]types.AttributeValue, target reflect.Value, prefix string) error {
	for _, f := range meta.Fields {
		path := f.DBName
		if prefix != "" {
			path = prefix + "." + f.DBName
		}
		fv := target.FieldByIndex(f.IndexPath)
		av, present := item[f.DBName]

		if !present || attr.IsNull(av) {
			switch {
			case f.Optional:
				fv.Set(reflect.Zero(fv.Type()))
				continue
			case f.Kind.IsSet():
				if err := r.converter.DecodeSet(path, av, fv); err != nil {
					return err
				}
				continue
			case !present && f.OmitEmpty:
				fv.Set(reflect.Zero(fv.Type()))
				continue
			case !present:
				return errors.NewNotFound(path)
			case f.Kind.acceptsNull():
				if err := r.decodeField(f, path, av, fv); err != nil {
					return err
				}
				continue
			default:
				return errors.NewDecodeError(path, f.Kind.String(), attr.Describe(av), nil)
			}
		}

		if err := r.decodeField(f, path, av, fv); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) decodeField(f *FieldMetadata, path string, av types.AttributeValue, fv reflect.Value) error {
	switch f.Kind {
	case KindStringSet, KindNumberSet:
		return r.converter.DecodeSet(path, av, fv)
	case KindEmbedded:
		return decodeInto(f, fv, func(ptr any) error { return attr.DecodeEmbedded(path, av, ptr) })
	case KindDocument:
		return decodeInto(f, fv, func(ptr any) error { return attr.DecodeDocument(path, av, ptr) })
	default:
		return r.converter.Decode(path, av, fv)
	}
}

// decodeInto hands decode a pointer to the field's value, allocating one for
// optional fields.
func decodeInto(f *FieldMetadata, fv reflect.Value, decode func(ptr any) error) error {
	if !f.Optional {
		return decode(fv.Addr().Interface())
	}
	ptr := reflect.New(f.ValueType)
	if err := decode(ptr.Interface()); err != nil {
		return err
	}
	fv.Set(ptr)
	return nil
}

// ResolveItem returns the mapper of the record type registered on tableName
// whose partition template matches item. Tables shared by several record
// types tell rows apart this way.
func (r *Registry) ResolveItem(tableName string, item map[string]types.AttributeValue) (*Mapper, bool) {
	for _, meta := range r.ModelsForTable(tableName) {
		if meta.PartitionTemplate == nil {
			continue
		}
		kv := key.NewPartitionKeyValue(meta.PartitionKeyName, item[meta.PartitionKeyName])
		matched := kv.MatchesTemplate(*meta.PartitionTemplate)
		if meta.HasStaticPartition() {
			matched = kv.PartitionEquals(meta.PartitionTemplate.String())
		}
		if matched {
			return &Mapper{meta: meta, registry: r}, true
		}
	}
	return nil, false
}
