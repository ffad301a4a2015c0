package attr

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablerow/pkg/errors"
)

var (
	timeType        = reflect.TypeOf(time.Time{})
	marshalerType   = reflect.TypeOf((*Marshaler)(nil)).Elem()
	unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
)

// Marshaler is implemented by types that encode themselves.
type Marshaler interface {
	MarshalAttributeValue() (types.AttributeValue, error)
}

// Unmarshaler is implemented by types that decode themselves.
type Unmarshaler interface {
	UnmarshalAttributeValue(types.AttributeValue) error
}

// CustomConverter converts a foreign type the caller cannot add methods to.
type CustomConverter interface {
	// ToAttributeValue converts a Go value to DynamoDB AttributeValue
	ToAttributeValue(value any) (types.AttributeValue, error)

	// FromAttributeValue converts a DynamoDB AttributeValue into target, a pointer
	FromAttributeValue(av types.AttributeValue, target any) error
}

// StructCodec maps nested struct values. The model package installs one so
// nested records follow their registered schema.
type StructCodec interface {
	EncodeStruct(v reflect.Value) (types.AttributeValue, error)
	DecodeStruct(field string, m map[string]types.AttributeValue, target reflect.Value) error
}

// Converter handles reflection-driven conversion between Go values and
// AttributeValues.
type Converter struct {
	customConverters map[reflect.Type]CustomConverter
	structs          StructCodec
	mu               sync.RWMutex
}

// NewConverter creates a new converter
func NewConverter() *Converter {
	return &Converter{
		customConverters: make(map[reflect.Type]CustomConverter),
	}
}

// RegisterConverter registers a custom converter for a specific type
func (c *Converter) RegisterConverter(typ reflect.Type, converter CustomConverter) {
	if typ == nil || converter == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customConverters[typ] = converter
}

// HasCustomConverter returns true if a custom converter exists for the given type.
func (c *Converter) HasCustomConverter(typ reflect.Type) bool {
	_, ok := c.lookupConverter(typ)
	return ok
}

// SetStructCodec installs the codec used for nested structs.
func (c *Converter) SetStructCodec(codec StructCodec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.structs = codec
}

func (c *Converter) structCodec() StructCodec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.structs
}

// lookupConverter walks pointer indirections until a registered converter is found.
func (c *Converter) lookupConverter(typ reflect.Type) (CustomConverter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if typ == nil {
		return nil, false
	}

	for {
		if converter, ok := c.customConverters[typ]; ok {
			return converter, true
		}
		if typ.Kind() != reflect.Ptr {
			break
		}
		typ = typ.Elem()
	}

	return nil, false
}

// ToAttributeValue converts a Go value to an AttributeValue
func (c *Converter) ToAttributeValue(value any) (types.AttributeValue, error) {
	if value == nil {
		return Null(), nil
	}
	return c.Encode(reflect.ValueOf(value))
}

// Encode converts a reflected value.
func (c *Converter) Encode(v reflect.Value) (types.AttributeValue, error) {
	if !v.IsValid() {
		return Null(), nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return Null(), nil
		}
		if v.Type().Implements(marshalerType) {
			return v.Interface().(Marshaler).MarshalAttributeValue()
		}
		return c.Encode(v.Elem())
	}

	if converter, exists := c.lookupConverter(v.Type()); exists {
		return converter.ToAttributeValue(v.Interface())
	}

	if v.Type().Implements(marshalerType) {
		return v.Interface().(Marshaler).MarshalAttributeValue()
	}
	if v.CanAddr() && v.Addr().Type().Implements(marshalerType) {
		return v.Addr().Interface().(Marshaler).MarshalAttributeValue()
	}

	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		return String(t.Format(time.RFC3339Nano)), nil
	}

	switch v.Kind() {
	case reflect.String:
		return String(v.String()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(v.Int(), 10)}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &types.AttributeValueMemberN{Value: strconv.FormatUint(v.Uint(), 10)}, nil

	case reflect.Float32, reflect.Float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits())}, nil

	case reflect.Bool:
		return Bool(v.Bool()), nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return &types.AttributeValueMemberB{Value: v.Bytes()}, nil
		}
		return c.sliceToList(v)

	case reflect.Array:
		return c.sliceToList(v)

	case reflect.Map:
		return c.mapToAttributeValueMap(v)

	case reflect.Struct:
		if codec := c.structCodec(); codec != nil {
			return codec.EncodeStruct(v)
		}
		return c.structToMap(v)

	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedType, v.Type())
	}
}

func (c *Converter) sliceToList(v reflect.Value) (types.AttributeValue, error) {
	list := make([]types.AttributeValue, v.Len())
	for i := 0; i < v.Len(); i++ {
		av, err := c.Encode(v.Index(i))
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		list[i] = av
	}
	return &types.AttributeValueMemberL{Value: list}, nil
}

func (c *Converter) mapToAttributeValueMap(v reflect.Value) (types.AttributeValue, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: map keys must be strings", errors.ErrUnsupportedType)
	}

	m := make(map[string]types.AttributeValue, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		keyStr := iter.Key().String()
		av, err := c.Encode(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", keyStr, err)
		}
		m[keyStr] = av
	}
	return Map(m), nil
}

// structToMap is the fallback for structs when no codec is installed: exported
// fields keyed by Go name.
func (c *Converter) structToMap(v reflect.Value) (types.AttributeValue, error) {
	m := make(map[string]types.AttributeValue)
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		av, err := c.Encode(v.Field(i))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		m[field.Name] = av
	}
	return Map(m), nil
}

// FromAttributeValue decodes av into target, which must be a non-nil pointer.
// field names the attribute in decode errors.
func (c *Converter) FromAttributeValue(field string, av types.AttributeValue, target any) error {
	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer")
	}
	if targetValue.IsNil() {
		return fmt.Errorf("target pointer is nil")
	}
	return c.Decode(field, av, targetValue.Elem())
}

// Decode decodes av into a settable reflected target. NULL leaves the target
// at its zero value.
func (c *Converter) Decode(field string, av types.AttributeValue, target reflect.Value) error {
	if !target.CanSet() {
		return fmt.Errorf("target for %s is not settable", field)
	}
	if IsNull(av) {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	if target.Kind() == reflect.Ptr {
		if converter, exists := c.lookupConverter(target.Type()); exists {
			if target.IsNil() {
				target.Set(reflect.New(target.Type().Elem()))
			}
			return wrapCustom(field, av, converter.FromAttributeValue(av, target.Interface()))
		}
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		return c.Decode(field, av, target.Elem())
	}

	if converter, exists := c.lookupConverter(target.Type()); exists {
		return wrapCustom(field, av, converter.FromAttributeValue(av, target.Addr().Interface()))
	}
	if target.Addr().Type().Implements(unmarshalerType) {
		return wrapCustom(field, av, target.Addr().Interface().(Unmarshaler).UnmarshalAttributeValue(av))
	}

	if target.Type() == timeType {
		return decodeTime(field, av, target)
	}

	return c.decodeByKind(field, av, target)
}

func wrapCustom(field string, av types.AttributeValue, err error) error {
	if err == nil || errors.IsDecodeError(err) {
		return err
	}
	return errors.NewDecodeError(field, "custom", Describe(av), err)
}

func decodeTime(field string, av types.AttributeValue, target reflect.Value) error {
	s, err := AsString(field, av)
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return errors.NewDecodeError(field, "time", Describe(av), err)
	}
	target.Set(reflect.ValueOf(t))
	return nil
}

func (c *Converter) decodeByKind(field string, av types.AttributeValue, target reflect.Value) error {
	switch target.Kind() {
	case reflect.String:
		s, err := AsString(field, av)
		if err != nil {
			return err
		}
		target.SetString(s)
		return nil

	case reflect.Bool:
		b, err := AsBool(field, av)
		if err != nil {
			return err
		}
		target.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return mismatch(field, TypeNumber, av)
		}
		if err := setNumber(target, n.Value); err != nil {
			return errors.NewDecodeError(field, TypeNumber, Describe(av), err)
		}
		return nil

	case reflect.Slice:
		if target.Type().Elem().Kind() == reflect.Uint8 {
			b, ok := av.(*types.AttributeValueMemberB)
			if !ok {
				return mismatch(field, TypeBinary, av)
			}
			target.SetBytes(b.Value)
			return nil
		}
		return c.listToSlice(field, av, target)

	case reflect.Map:
		m, err := AsMap(field, av)
		if err != nil {
			return err
		}
		return c.attributeValueMapToMap(field, m, target)

	case reflect.Struct:
		m, err := AsMap(field, av)
		if err != nil {
			return err
		}
		if codec := c.structCodec(); codec != nil {
			return codec.DecodeStruct(field, m, target)
		}
		return c.mapToStruct(field, m, target)

	default:
		return errors.NewDecodeError(field, target.Type().String(), Describe(av), errors.ErrUnsupportedType)
	}
}

func setNumber(target reflect.Value, raw string) error {
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(raw, 10, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetUint(u)
	default:
		f, err := strconv.ParseFloat(raw, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetFloat(f)
	}
	return nil
}

func (c *Converter) listToSlice(field string, av types.AttributeValue, target reflect.Value) error {
	l, ok := av.(*types.AttributeValueMemberL)
	if !ok {
		return mismatch(field, TypeList, av)
	}

	slice := reflect.MakeSlice(target.Type(), len(l.Value), len(l.Value))
	for i, elem := range l.Value {
		if err := c.Decode(fmt.Sprintf("%s[%d]", field, i), elem, slice.Index(i)); err != nil {
			return err
		}
	}
	target.Set(slice)
	return nil
}

func (c *Converter) attributeValueMapToMap(field string, m map[string]types.AttributeValue, target reflect.Value) error {
	if target.Type().Key().Kind() != reflect.String {
		return errors.NewDecodeError(field, target.Type().String(), "map", errors.ErrUnsupportedType)
	}

	mapValue := reflect.MakeMapWithSize(target.Type(), len(m))
	for k, av := range m {
		elem := reflect.New(target.Type().Elem()).Elem()
		if err := c.Decode(field+"."+k, av, elem); err != nil {
			return err
		}
		mapValue.SetMapIndex(reflect.ValueOf(k).Convert(target.Type().Key()), elem)
	}
	target.Set(mapValue)
	return nil
}

func (c *Converter) mapToStruct(field string, m map[string]types.AttributeValue, target reflect.Value) error {
	targetType := target.Type()
	for i := 0; i < targetType.NumField(); i++ {
		sf := targetType.Field(i)
		if !sf.IsExported() {
			continue
		}
		av, exists := m[sf.Name]
		if !exists {
			continue
		}
		if err := c.Decode(field+"."+sf.Name, av, target.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

// EncodeSet converts a slice to an SS or NS value. Empty slices encode to NULL.
func (c *Converter) EncodeSet(v reflect.Value) (types.AttributeValue, error) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return Null(), nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: set requires a slice, got %s", errors.ErrInvalidTag, v.Type())
	}
	if v.Len() == 0 {
		return Null(), nil
	}

	elemType := v.Type().Elem()
	switch elemType.Kind() {
	case reflect.String:
		set := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			set[i] = v.Index(i).String()
		}
		return &types.AttributeValueMemberSS{Value: set}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		set := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			av, err := c.Encode(v.Index(i))
			if err != nil {
				return nil, err
			}
			n, ok := av.(*types.AttributeValueMemberN)
			if !ok {
				return nil, fmt.Errorf("%w: expected number type for set", errors.ErrUnsupportedType)
			}
			set[i] = n.Value
		}
		return &types.AttributeValueMemberNS{Value: set}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported set element type: %s", errors.ErrUnsupportedType, elemType)
	}
}

// DecodeSet decodes an SS or NS value into a slice target. NULL or absent
// yields an empty, non-nil slice.
func (c *Converter) DecodeSet(field string, av types.AttributeValue, target reflect.Value) error {
	if target.Kind() == reflect.Ptr {
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		target = target.Elem()
	}
	if IsNull(av) {
		target.Set(reflect.MakeSlice(target.Type(), 0, 0))
		return nil
	}

	switch set := av.(type) {
	case *types.AttributeValueMemberSS:
		if target.Type().Elem().Kind() != reflect.String {
			return mismatch(field, target.Type().String(), av)
		}
		slice := reflect.MakeSlice(target.Type(), len(set.Value), len(set.Value))
		for i, s := range set.Value {
			slice.Index(i).SetString(s)
		}
		target.Set(slice)
		return nil

	case *types.AttributeValueMemberNS:
		slice := reflect.MakeSlice(target.Type(), len(set.Value), len(set.Value))
		for i, raw := range set.Value {
			elem := slice.Index(i)
			switch elem.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
				reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
				reflect.Float32, reflect.Float64:
			default:
				return mismatch(field, target.Type().String(), av)
			}
			if err := setNumber(elem, raw); err != nil {
				return errors.NewDecodeError(field, TypeNumberSet, Describe(av), err)
			}
		}
		target.Set(slice)
		return nil

	default:
		expected := TypeStringSet
		if target.Type().Elem().Kind() != reflect.String {
			expected = TypeNumberSet
		}
		return mismatch(field, expected, av)
	}
}
