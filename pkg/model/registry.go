// Package model provides record registration and schema metadata for tablerow.
//
// A record is a Go struct whose fields are described with `tablerow` struct
// tags. Struct-level settings live on a blank field:
//
//	type SignUp struct {
//		_            struct{} `tablerow:"pk:pk,pk_value:signup"`
//		EmailAddress string   `tablerow:"sk,attr:sk"`
//		RetryCount   int      `tablerow:"attr:retry"`
//	}
//
// Schemas are validated once, on registration, before any mapping runs.
package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/theory-cloud/tablerow/internal/reflectutil"
	"github.com/theory-cloud/tablerow/pkg/attr"
	"github.com/theory-cloud/tablerow/pkg/errors"
	"github.com/theory-cloud/tablerow/pkg/key"
	"github.com/theory-cloud/tablerow/pkg/naming"
)

// TagName is the struct tag key read by the registry.
const TagName = "tablerow"

var (
	timeType      = reflect.TypeOf(time.Time{})
	marshalerType = reflect.TypeOf((*attr.Marshaler)(nil)).Elem()
)

// Registry manages registered records and their metadata
type Registry struct {
	models    map[reflect.Type]*Metadata
	records   map[reflect.Type]*Metadata
	tables    map[string][]*Metadata
	converter *attr.Converter
	mu        sync.RWMutex
}

// NewRegistry creates a new registry. Nested structs encoded through the
// registry's converter follow their own parsed schema.
func NewRegistry() *Registry {
	r := &Registry{
		models:    make(map[reflect.Type]*Metadata),
		records:   make(map[reflect.Type]*Metadata),
		tables:    make(map[string][]*Metadata),
		converter: attr.NewConverter(),
	}
	r.converter.SetStructCodec(r)
	return r
}

// Converter returns the converter used for field values.
func (r *Registry) Converter() *attr.Converter {
	return r.converter
}

// RegisterConverter installs a custom converter for typ. It must be called
// before registering records that use typ.
func (r *Registry) RegisterConverter(typ reflect.Type, converter attr.CustomConverter) {
	r.converter.RegisterConverter(typ, converter)
}

// Register validates a record type and caches its metadata
func (r *Registry) Register(model any) error {
	_, err := r.register(model)
	return err
}

func (r *Registry) register(model any) (*Metadata, error) {
	modelType, err := structType(model)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if metadata, exists := r.models[modelType]; exists {
		return metadata, nil
	}

	metadata, err := r.parseMetadata(modelType, false, map[reflect.Type]bool{})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", modelType.Name(), err)
	}

	r.models[modelType] = metadata
	r.tables[metadata.TableName] = append(r.tables[metadata.TableName], metadata)
	return metadata, nil
}

// GetMetadata retrieves metadata for a registered record
func (r *Registry) GetMetadata(model any) (*Metadata, error) {
	modelType, err := structType(model)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, exists := r.models[modelType]
	if !exists {
		return nil, fmt.Errorf("%w: model not registered: %s", errors.ErrInvalidModel, modelType.Name())
	}
	return metadata, nil
}

// ModelsForTable returns every record type registered against tableName, in
// registration order.
func (r *Registry) ModelsForTable(tableName string) []*Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := r.tables[tableName]
	out := make([]*Metadata, len(models))
	copy(out, models)
	return out
}

// Mapper registers model if needed and returns its mapper.
func (r *Registry) Mapper(model any) (*Mapper, error) {
	metadata, err := r.register(model)
	if err != nil {
		return nil, err
	}
	return &Mapper{meta: metadata, registry: r}, nil
}

func structType(model any) (reflect.Type, error) {
	modelType := reflect.TypeOf(model)
	if modelType == nil {
		return nil, fmt.Errorf("%w: model is nil", errors.ErrInvalidModel)
	}
	modelType = reflectutil.IndirectType(modelType)
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: model must be a struct", errors.ErrInvalidModel)
	}
	return modelType, nil
}

// FieldKind classifies how a field maps to an attribute value.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindBool
	KindBinary
	KindTime
	KindStringSet
	KindNumberSet
	KindList
	KindMap
	KindRecord
	KindEmbedded
	KindDocument
	KindCustom
)

var kindNames = map[FieldKind]string{
	KindString:    attr.TypeString,
	KindNumber:    attr.TypeNumber,
	KindBool:      attr.TypeBool,
	KindBinary:    attr.TypeBinary,
	KindTime:      "time",
	KindStringSet: attr.TypeStringSet,
	KindNumberSet: attr.TypeNumberSet,
	KindList:      attr.TypeList,
	KindMap:       attr.TypeMap,
	KindRecord:    "record",
	KindEmbedded:  attr.TypeEmbedded,
	KindDocument:  "document",
	KindCustom:    "custom",
}

func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// IsSet reports whether the kind is a string or number set.
func (k FieldKind) IsSet() bool {
	return k == KindStringSet || k == KindNumberSet
}

// acceptsNull reports whether a NULL value decodes to the zero value instead
// of failing, for kinds whose Go zero value encodes to NULL.
func (k FieldKind) acceptsNull() bool {
	switch k {
	case KindDocument, KindCustom, KindList, KindMap, KindBinary:
		return true
	default:
		return false
	}
}

// Metadata holds the validated schema of a record type
type Metadata struct {
	Type              reflect.Type
	PartitionKey      *FieldMetadata
	SortKey           *FieldMetadata
	PartitionTemplate *key.Template
	FieldsByName      map[string]*FieldMetadata
	FieldsByDBName    map[string]*FieldMetadata
	TableName         string
	PartitionKeyName  string
	Fields            []*FieldMetadata
	NamingConvention  naming.Convention
	nested            bool
}

// Key returns the primary key schema.
func (m *Metadata) Key() key.Key {
	if m.SortKey != nil {
		return key.NewCompositeKey(m.PartitionKeyName, m.SortKey.DBName)
	}
	return key.NewPartitionKey(m.PartitionKeyName)
}

// HasStaticPartition reports whether every record shares one literal
// partition value.
func (m *Metadata) HasStaticPartition() bool {
	return m.PartitionTemplate != nil && m.PartitionTemplate.IsStatic()
}

// IsNested reports whether the schema describes a nested record rather than a
// table row.
func (m *Metadata) IsNested() bool {
	return m.nested
}

// FieldMetadata holds metadata for a single mapped field
type FieldMetadata struct {
	Type      reflect.Type
	ValueType reflect.Type
	Nested    *Metadata
	Name      string
	DBName    string
	IndexPath []int
	Kind      FieldKind
	IsPK      bool
	IsSK      bool
	Optional  bool
	OmitEmpty bool
}

type structTags struct {
	partitionKey   string
	partitionValue string
	table          string
	convention     naming.Convention
}

type fieldTags struct {
	attr      string
	pk        bool
	sk        bool
	json      bool
	set       bool
	document  bool
	omitEmpty bool
}

func (r *Registry) parseMetadata(modelType reflect.Type, nested bool, visiting map[reflect.Type]bool) (*Metadata, error) {
	if visiting[modelType] {
		return nil, fmt.Errorf("%w: recursive record type %s", errors.ErrInvalidModel, modelType)
	}
	visiting[modelType] = true
	defer delete(visiting, modelType)

	st, err := parseStructTags(modelType)
	if err != nil {
		return nil, err
	}

	metadata := &Metadata{
		Type:             modelType,
		NamingConvention: st.convention,
		FieldsByName:     make(map[string]*FieldMetadata),
		FieldsByDBName:   make(map[string]*FieldMetadata),
		nested:           nested,
	}

	if err := r.parseFields(modelType, metadata, nil, visiting); err != nil {
		return nil, err
	}

	if nested {
		if st.partitionKey != "" || st.partitionValue != "" || metadata.PartitionKey != nil || metadata.SortKey != nil {
			return nil, fmt.Errorf("%w: key tags are not allowed on nested record %s", errors.ErrInvalidTag, modelType)
		}
		return metadata, nil
	}

	metadata.TableName = resolveTableName(modelType, st.table)
	if err := applyStructKey(metadata, st); err != nil {
		return nil, err
	}
	if err := validateKeys(metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

func parseStructTags(modelType reflect.Type) (structTags, error) {
	var st structTags
	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if field.Name != "_" {
			continue
		}
		tag := field.Tag.Get(TagName)
		for _, part := range strings.Split(tag, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, ok := strings.Cut(part, ":")
			if !ok {
				return st, fmt.Errorf("%w: unknown struct tag '%s'", errors.ErrInvalidTag, part)
			}
			value = strings.TrimSpace(value)
			switch name {
			case "pk":
				st.partitionKey = value
			case "pk_value":
				st.partitionValue = value
			case "table":
				st.table = value
			case "naming":
				convention, err := naming.ParseConvention(value)
				if err != nil {
					return st, fmt.Errorf("%w: %v", errors.ErrInvalidTag, err)
				}
				st.convention = convention
			default:
				return st, fmt.Errorf("%w: unknown struct tag '%s'", errors.ErrInvalidTag, name)
			}
		}
	}
	return st, nil
}

func resolveTableName(modelType reflect.Type, tagged string) string {
	if tagged != "" {
		return tagged
	}
	if name := tableNameFromMethod(reflect.New(modelType).Elem()); name != "" {
		return name
	}
	if name := tableNameFromMethod(reflect.New(modelType)); name != "" {
		return name
	}
	return getTableName(modelType)
}

func tableNameFromMethod(receiver reflect.Value) string {
	method := receiver.MethodByName("TableName")
	if !method.IsValid() {
		return ""
	}
	if method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return ""
	}

	results := method.Call(nil)
	if len(results) == 0 || results[0].Kind() != reflect.String {
		return ""
	}

	return results[0].String()
}

// getTableName derives the table name from the model type
func getTableName(modelType reflect.Type) string {
	name := modelType.Name()
	if strings.HasSuffix(name, "s") {
		return name + "es"
	}
	if strings.HasSuffix(name, "y") {
		return name[:len(name)-1] + "ies"
	}
	return name + "s"
}

// parseFields walks the struct, flattening untagged embedded structs.
func (r *Registry) parseFields(modelType reflect.Type, metadata *Metadata, indexPath []int, visiting map[reflect.Type]bool) error {
	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		currentPath := appendIndexPath(indexPath, i)

		if err := r.parseField(field, currentPath, metadata, visiting); err != nil {
			return err
		}
	}
	return nil
}

func appendIndexPath(indexPath []int, index int) []int {
	currentPath := make([]int, len(indexPath)+1)
	copy(currentPath, indexPath)
	currentPath[len(indexPath)] = index
	return currentPath
}

func (r *Registry) parseField(field reflect.StructField, indexPath []int, metadata *Metadata, visiting map[reflect.Type]bool) error {
	if !field.IsExported() {
		return nil
	}

	tag, hasTag := field.Tag.Lookup(TagName)
	if tag == "-" {
		return nil
	}
	if field.Anonymous && field.Type.Kind() == reflect.Struct && !hasTag {
		return r.parseFields(field.Type, metadata, indexPath, visiting)
	}

	tags, err := parseFieldTags(tag)
	if err != nil {
		return fmt.Errorf("field %s: %w", field.Name, err)
	}

	meta, err := r.newFieldMetadata(field, indexPath, tags, metadata.NamingConvention, visiting)
	if err != nil {
		return fmt.Errorf("field %s: %w", field.Name, err)
	}

	if existing, dup := metadata.FieldsByDBName[meta.DBName]; dup {
		return fmt.Errorf("%w: %w: %s and %s both map to %q",
			errors.ErrInvalidModel, errors.ErrDuplicateAttribute, existing.Name, meta.Name, meta.DBName)
	}

	if meta.IsPK {
		if metadata.PartitionKey != nil {
			return fmt.Errorf("%w: %w: %s and %s", errors.ErrInvalidModel, errors.ErrDuplicatePrimaryKey, metadata.PartitionKey.Name, meta.Name)
		}
		metadata.PartitionKey = meta
	}
	if meta.IsSK {
		if metadata.SortKey != nil {
			return fmt.Errorf("%w: %w: duplicate sort key %s and %s", errors.ErrInvalidModel, errors.ErrDuplicatePrimaryKey, metadata.SortKey.Name, meta.Name)
		}
		metadata.SortKey = meta
	}

	metadata.Fields = append(metadata.Fields, meta)
	metadata.FieldsByName[meta.Name] = meta
	metadata.FieldsByDBName[meta.DBName] = meta
	return nil
}

func parseFieldTags(tag string) (fieldTags, error) {
	var tags fieldTags
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, value, ok := strings.Cut(part, ":"); ok {
			if name != "attr" {
				return tags, fmt.Errorf("%w: unknown tag '%s'", errors.ErrInvalidTag, name)
			}
			tags.attr = strings.TrimSpace(value)
			continue
		}
		switch part {
		case "pk":
			tags.pk = true
		case "sk":
			tags.sk = true
		case "json":
			tags.json = true
		case "set":
			tags.set = true
		case "document":
			tags.document = true
		case "omitempty":
			tags.omitEmpty = true
		default:
			return tags, fmt.Errorf("%w: unknown tag '%s'", errors.ErrInvalidTag, part)
		}
	}

	modes := 0
	for _, on := range []bool{tags.json, tags.set, tags.document} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return tags, fmt.Errorf("%w: json, set and document are mutually exclusive", errors.ErrInvalidTag)
	}
	if tags.pk && tags.sk {
		return tags, fmt.Errorf("%w: a field cannot be both pk and sk", errors.ErrInvalidTag)
	}
	return tags, nil
}

func (r *Registry) newFieldMetadata(field reflect.StructField, indexPath []int, tags fieldTags, convention naming.Convention, visiting map[reflect.Type]bool) (*FieldMetadata, error) {
	meta := &FieldMetadata{
		Name:      field.Name,
		Type:      field.Type,
		ValueType: field.Type,
		DBName:    naming.ConvertAttrName(field.Name, convention),
		IndexPath: indexPath,
		IsPK:      tags.pk,
		IsSK:      tags.sk,
		OmitEmpty: tags.omitEmpty,
	}
	if tags.attr != "" {
		meta.DBName = tags.attr
	}
	if err := naming.ValidateAttrName(meta.DBName); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidTag, err)
	}

	if field.Type.Kind() == reflect.Ptr {
		meta.Optional = true
		meta.ValueType = field.Type.Elem()
		if meta.ValueType.Kind() == reflect.Ptr {
			return nil, fmt.Errorf("%w: pointer to pointer", errors.ErrUnsupportedType)
		}
	}

	kind, err := r.classify(meta.ValueType, tags)
	if err != nil {
		return nil, err
	}
	meta.Kind = kind

	if kind == KindRecord {
		nested, err := r.recordMetadataLocked(meta.ValueType, visiting)
		if err != nil {
			return nil, err
		}
		meta.Nested = nested
	}

	if (meta.IsPK || meta.IsSK) && meta.OmitEmpty {
		return nil, fmt.Errorf("%w: key fields cannot be omitempty", errors.ErrInvalidTag)
	}
	return meta, nil
}

func (r *Registry) classify(t reflect.Type, tags fieldTags) (FieldKind, error) {
	switch {
	case tags.json:
		return KindEmbedded, nil
	case tags.document:
		return KindDocument, nil
	case tags.set:
		return classifySet(t)
	}

	if r.converter.HasCustomConverter(t) || t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType) {
		return KindCustom, nil
	}
	if t == timeType {
		return KindTime, nil
	}

	switch t.Kind() {
	case reflect.String:
		return KindString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber, nil
	case reflect.Bool:
		return KindBool, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBinary, nil
		}
		return KindList, nil
	case reflect.Array:
		return KindList, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return 0, fmt.Errorf("%w: map keys must be strings, got %s", errors.ErrUnsupportedType, t)
		}
		return KindMap, nil
	case reflect.Struct:
		return KindRecord, nil
	default:
		return 0, fmt.Errorf("%w: %s (use the document tag for free-form values)", errors.ErrUnsupportedType, t)
	}
}

func classifySet(t reflect.Type) (FieldKind, error) {
	if t.Kind() != reflect.Slice {
		return 0, fmt.Errorf("%w: set tag can only be used on slice types", errors.ErrInvalidTag)
	}
	switch t.Elem().Kind() {
	case reflect.String:
		return KindStringSet, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumberSet, nil
	default:
		return 0, fmt.Errorf("%w: set elements must be strings or numbers, got %s", errors.ErrInvalidTag, t.Elem())
	}
}

func applyStructKey(metadata *Metadata, st structTags) error {
	if st.partitionValue != "" && st.partitionKey == "" {
		return fmt.Errorf("%w: pk_value requires a struct-level pk", errors.ErrInvalidTag)
	}

	if st.partitionKey == "" {
		if metadata.PartitionKey == nil {
			return fmt.Errorf("%w: %w", errors.ErrInvalidModel, errors.ErrMissingPrimaryKey)
		}
		metadata.PartitionKeyName = metadata.PartitionKey.DBName
		return nil
	}

	if metadata.PartitionKey != nil {
		return fmt.Errorf("%w: %w: partition key declared on the struct and on field %s",
			errors.ErrInvalidModel, errors.ErrDuplicatePrimaryKey, metadata.PartitionKey.Name)
	}
	if st.partitionValue == "" {
		return fmt.Errorf("%w: struct-level pk requires pk_value", errors.ErrInvalidTag)
	}
	if err := naming.ValidateAttrName(st.partitionKey); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidTag, err)
	}
	if existing, dup := metadata.FieldsByDBName[st.partitionKey]; dup {
		return fmt.Errorf("%w: %w: partition key %q collides with field %s",
			errors.ErrInvalidModel, errors.ErrDuplicateAttribute, st.partitionKey, existing.Name)
	}

	template, err := key.ParseTemplate(st.partitionValue)
	if err != nil {
		return err
	}
	for _, part := range template.Parts() {
		field, ok := metadata.FieldsByDBName[part]
		if !ok {
			return fmt.Errorf("%w: %q names no mapped field", errors.ErrInvalidTemplate, part)
		}
		if field.Optional || (field.Kind != KindString && field.Kind != KindNumber) {
			return fmt.Errorf("%w: %q must be a required string or number field", errors.ErrInvalidTemplate, part)
		}
	}

	metadata.PartitionKeyName = st.partitionKey
	metadata.PartitionTemplate = &template
	return nil
}

func validateKeys(metadata *Metadata) error {
	for _, field := range []*FieldMetadata{metadata.PartitionKey, metadata.SortKey} {
		if field == nil {
			continue
		}
		if field.Optional {
			return fmt.Errorf("%w: key field %s cannot be optional", errors.ErrInvalidModel, field.Name)
		}
		switch field.Kind {
		case KindString, KindNumber, KindBinary:
		default:
			return fmt.Errorf("%w: key field %s must be a string, number or binary, got %s",
				errors.ErrInvalidModel, field.Name, field.Kind)
		}
	}
	return nil
}

// recordMetadata returns the schema used for a nested struct type.
func (r *Registry) recordMetadata(t reflect.Type) (*Metadata, error) {
	r.mu.RLock()
	metadata, ok := r.records[t]
	r.mu.RUnlock()
	if ok {
		return metadata, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordMetadataLocked(t, map[reflect.Type]bool{})
}

func (r *Registry) recordMetadataLocked(t reflect.Type, visiting map[reflect.Type]bool) (*Metadata, error) {
	if metadata, ok := r.records[t]; ok {
		return metadata, nil
	}
	metadata, err := r.parseMetadata(t, true, visiting)
	if err != nil {
		return nil, err
	}
	r.records[t] = metadata
	return metadata, nil
}
