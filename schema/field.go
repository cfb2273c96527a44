package schema

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"gorm.io/dynform/utils"
)

type DataType string

type TimeType int64

var TimeReflectType = reflect.TypeOf(time.Time{})

const (
	UnixSecond      TimeType = 1
	UnixMillisecond TimeType = 2
	UnixNanosecond  TimeType = 3
)

const (
	Bool   DataType = "bool"
	Int    DataType = "int"
	Uint   DataType = "uint"
	Float  DataType = "float"
	String DataType = "string"
	Time   DataType = "time"
	Bytes  DataType = "bytes"
	JSON   DataType = "json"
)

type Field struct {
	Name              string
	DBName            string
	DataType          DataType
	PrimaryKey        bool
	AutoIncrement     bool
	Creatable         bool
	Updatable         bool
	Readable          bool
	AutoCreateTime    TimeType
	AutoUpdateTime    TimeType
	NotNull           bool
	Unique            bool
	Comment           string
	FieldType         reflect.Type
	IndirectFieldType reflect.Type
	StructField       reflect.StructField
	Tag               reflect.StructTag
	TagSettings       map[string]string
	Schema            *Schema
	EmbeddedSchema    *Schema
}

func (schema *Schema) ParseField(fieldStruct reflect.StructField) *Field {
	field := &Field{
		Name:              fieldStruct.Name,
		FieldType:         fieldStruct.Type,
		IndirectFieldType: fieldStruct.Type,
		StructField:       fieldStruct,
		Creatable:         true,
		Updatable:         true,
		Readable:          true,
		Tag:               fieldStruct.Tag,
		TagSettings:       ParseTagSetting(fieldStruct.Tag.Get("gorm"), ";"),
		Schema:            schema,
	}

	for field.IndirectFieldType.Kind() == reflect.Ptr {
		field.IndirectFieldType = field.IndirectFieldType.Elem()
	}

	fieldValue := reflect.New(field.IndirectFieldType)
	_, isValuer := fieldValue.Interface().(driver.Valuer)

	if dbName, ok := field.TagSettings["COLUMN"]; ok {
		field.DBName = dbName
	}

	if val, ok := field.TagSettings["PRIMARYKEY"]; ok && utils.CheckTruth(val) {
		field.PrimaryKey = true
	} else if val, ok := field.TagSettings["PRIMARY_KEY"]; ok && utils.CheckTruth(val) {
		field.PrimaryKey = true
	}

	if val, ok := field.TagSettings["AUTOINCREMENT"]; ok && utils.CheckTruth(val) {
		field.AutoIncrement = true
	}

	if val, ok := field.TagSettings["NOT NULL"]; ok && utils.CheckTruth(val) {
		field.NotNull = true
	} else if val, ok := field.TagSettings["NOTNULL"]; ok && utils.CheckTruth(val) {
		field.NotNull = true
	}

	if val, ok := field.TagSettings["UNIQUE"]; ok && utils.CheckTruth(val) {
		field.Unique = true
	}

	if val, ok := field.TagSettings["COMMENT"]; ok {
		field.Comment = val
	}

	switch field.IndirectFieldType.Kind() {
	case reflect.Bool:
		field.DataType = Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		field.DataType = Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		field.DataType = Uint
	case reflect.Float32, reflect.Float64:
		field.DataType = Float
	case reflect.String:
		field.DataType = String
	case reflect.Struct:
		if field.IndirectFieldType.ConvertibleTo(TimeReflectType) {
			field.DataType = Time
		} else if isValuer {
			field.DataType = JSON
		}
	case reflect.Array, reflect.Slice:
		if field.IndirectFieldType.Elem() == reflect.TypeOf(uint8(0)) {
			field.DataType = Bytes
		} else if !isRelationElem(field.IndirectFieldType.Elem()) {
			field.DataType = JSON
		}
	case reflect.Map:
		field.DataType = JSON
	}

	if v, ok := field.TagSettings["AUTOCREATETIME"]; ok || (field.Name == "CreatedAt" && (field.DataType == Time || field.DataType == Int || field.DataType == Uint)) {
		field.AutoCreateTime = parseTimeType(v)
	}

	if v, ok := field.TagSettings["AUTOUPDATETIME"]; ok || (field.Name == "UpdatedAt" && (field.DataType == Time || field.DataType == Int || field.DataType == Uint)) {
		field.AutoUpdateTime = parseTimeType(v)
	}

	// setup permission
	if _, ok := field.TagSettings["-"]; ok {
		field.Creatable = false
		field.Updatable = false
		field.Readable = false
		field.DataType = ""
	}

	if v, ok := field.TagSettings["->"]; ok {
		field.Creatable = false
		field.Updatable = false
		field.Readable = strings.ToLower(v) != "false"
	}

	if _, ok := field.TagSettings["EMBEDDED"]; ok || (fieldStruct.Anonymous && !isValuer && field.DataType == "") {
		if field.IndirectFieldType.Kind() == reflect.Struct && field.FieldType.Kind() != reflect.Ptr {
			field.EmbeddedSchema = &Schema{FieldsByName: map[string]*Field{}}
			for i := 0; i < field.IndirectFieldType.NumField(); i++ {
				embedded := field.IndirectFieldType.Field(i)
				if !embedded.IsExported() {
					continue
				}
				embedded.Index = append(append([]int{}, fieldStruct.Index...), embedded.Index...)
				ef := schema.ParseField(embedded)
				if ef.EmbeddedSchema != nil {
					field.EmbeddedSchema.Fields = append(field.EmbeddedSchema.Fields, ef.EmbeddedSchema.Fields...)
				} else {
					field.EmbeddedSchema.Fields = append(field.EmbeddedSchema.Fields, ef)
				}
			}
		}
	}

	return field
}

func parseTimeType(v string) TimeType {
	switch strings.ToUpper(v) {
	case "NANO":
		return UnixNanosecond
	case "MILLI":
		return UnixMillisecond
	}
	return UnixSecond
}

func isRelationElem(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && !t.ConvertibleTo(TimeReflectType)
}

// ReflectValueOf returns the field value of a struct value, allocating nil pointers of embedded structs on the way
func (field *Field) ReflectValueOf(value reflect.Value) reflect.Value {
	value = reflect.Indirect(value)
	for i, idx := range field.StructField.Index {
		if i > 0 && value.Kind() == reflect.Ptr {
			if value.IsNil() {
				value.Set(reflect.New(value.Type().Elem()))
			}
			value = value.Elem()
		}
		value = value.Field(idx)
	}
	return value
}

// ValueOf returns the field value of a struct value and whether it is zero
func (field *Field) ValueOf(value reflect.Value) (interface{}, bool) {
	fieldValue := field.ReflectValueOf(value)
	return fieldValue.Interface(), fieldValue.IsZero()
}

// Set assigns v to the field of value, converting strings and numbers the way submitted form input arrives
func (field *Field) Set(value reflect.Value, v interface{}) error {
	return setReflectValue(field.ReflectValueOf(value), v, field.Name)
}

func setReflectValue(target reflect.Value, v interface{}, name string) error {
	if v == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target.Type()) {
		target.Set(rv)
		return nil
	}

	if target.Kind() == reflect.Ptr {
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				target.Set(reflect.Zero(target.Type()))
				return nil
			}
			rv = rv.Elem()
		}
		if s, ok := rv.Interface().(string); ok && s == "" {
			target.Set(reflect.Zero(target.Type()))
			return nil
		}
		elem := reflect.New(target.Type().Elem())
		if err := setReflectValue(elem.Elem(), rv.Interface(), name); err != nil {
			return err
		}
		target.Set(elem)
		return nil
	}

	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			target.Set(reflect.Zero(target.Type()))
			return nil
		}
		rv = rv.Elem()
	}

	if s, ok := rv.Interface().(string); ok {
		return setFromString(target, s, name)
	}

	if target.Type() == TimeReflectType {
		return fmt.Errorf("failed to set value %#v to field %v: %w", v, name, ErrInvalidValue)
	}

	if rv.Type().ConvertibleTo(target.Type()) && numericOrSame(rv.Kind(), target.Kind()) {
		target.Set(rv.Convert(target.Type()))
		return nil
	}

	return fmt.Errorf("failed to set value %#v to field %v: %w", v, name, ErrInvalidValue)
}

func numericOrSame(from, to reflect.Kind) bool {
	if from == to {
		return true
	}
	return isNumericKind(from) && isNumericKind(to)
}

func isNumericKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func setFromString(target reflect.Value, s string, name string) error {
	invalid := func(err error) error {
		return fmt.Errorf("failed to set value %q to field %v: %w", s, name, ErrInvalidValue)
	}

	if target.Type().ConvertibleTo(TimeReflectType) {
		if strings.TrimSpace(s) == "" {
			target.Set(reflect.Zero(target.Type()))
			return nil
		}
		t, err := now.Parse(s)
		if err != nil {
			return invalid(err)
		}
		target.Set(reflect.ValueOf(t).Convert(target.Type()))
		return nil
	}

	switch target.Kind() {
	case reflect.String:
		target.SetString(s)
	case reflect.Bool:
		if s == "" {
			target.SetBool(false)
			return nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			b = s == "on"
			if !b && s != "off" {
				return invalid(err)
			}
		}
		target.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if s == "" {
			target.SetInt(0)
			return nil
		}
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, target.Type().Bits())
		if err != nil {
			return invalid(err)
		}
		target.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if s == "" {
			target.SetUint(0)
			return nil
		}
		u, err := strconv.ParseUint(strings.TrimSpace(s), 10, target.Type().Bits())
		if err != nil {
			return invalid(err)
		}
		target.SetUint(u)
	case reflect.Float32, reflect.Float64:
		if s == "" {
			target.SetFloat(0)
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), target.Type().Bits())
		if err != nil {
			return invalid(err)
		}
		target.SetFloat(f)
	case reflect.Slice:
		if target.Type().Elem().Kind() == reflect.Uint8 {
			target.SetBytes([]byte(s))
			return nil
		}
		return invalid(nil)
	default:
		return invalid(nil)
	}
	return nil
}
