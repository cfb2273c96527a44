package schema

import (
	"errors"
	"fmt"
	"go/ast"
	"reflect"
	"sync"
)

var (
	// ErrUnsupportedDataType unsupported data type
	ErrUnsupportedDataType = errors.New("unsupported data type")
	// ErrInvalidValue a value could not be assigned to a field
	ErrInvalidValue = errors.New("invalid value")
)

type Schema struct {
	Name                    string
	ModelType               reflect.Type
	Table                   string
	PrioritizedPrimaryField *Field
	PrimaryFields           []*Field
	Fields                  []*Field
	FieldsByName            map[string]*Field
	FieldsByDBName          map[string]*Field
	Relationships           Relationships
	err                     error
	namer                   Namer
	cacheStore              *sync.Map
}

func (schema Schema) String() string {
	if schema.ModelType.Name() == "" {
		return fmt.Sprintf("%s(%s)", schema.Name, schema.Table)
	}
	return fmt.Sprintf("%s.%s", schema.ModelType.PkgPath(), schema.ModelType.Name())
}

// LookUpField finds a field by column name or struct field name
func (schema Schema) LookUpField(name string) *Field {
	if field, ok := schema.FieldsByDBName[name]; ok {
		return field
	}
	if field, ok := schema.FieldsByName[name]; ok {
		return field
	}
	return nil
}

// Namer returns the naming strategy the schema was parsed with
func (schema Schema) Namer() Namer {
	return schema.namer
}

// New allocates a new zero model, returning a pointer to it
func (schema *Schema) New() reflect.Value {
	return reflect.New(schema.ModelType)
}

// PrimaryValue returns the prioritized primary key value of a model value
func (schema *Schema) PrimaryValue(value reflect.Value) (interface{}, bool) {
	if schema.PrioritizedPrimaryField == nil {
		return nil, true
	}
	return schema.PrioritizedPrimaryField.ValueOf(value)
}

// Parse get data type from dialector
func Parse(dest interface{}, cacheStore *sync.Map, namer Namer) (*Schema, error) {
	if dest == nil {
		return nil, fmt.Errorf("%w: %+v", ErrUnsupportedDataType, dest)
	}

	modelType := reflect.ValueOf(dest).Type()
	if t, ok := dest.(reflect.Type); ok {
		modelType = t
	}
	modelType = indirectType(modelType)

	if modelType.Kind() != reflect.Struct {
		if modelType.PkgPath() == "" {
			return nil, fmt.Errorf("%w: %+v", ErrUnsupportedDataType, dest)
		}
		return nil, fmt.Errorf("%w: %s.%s", ErrUnsupportedDataType, modelType.PkgPath(), modelType.Name())
	}

	if v, ok := cacheStore.Load(modelType); ok {
		return v.(*Schema), nil
	}

	schema := &Schema{
		Name:           modelType.Name(),
		ModelType:      modelType,
		Table:          namer.TableName(modelType.Name()),
		FieldsByName:   map[string]*Field{},
		FieldsByDBName: map[string]*Field{},
		Relationships:  Relationships{Relations: map[string]*Relationship{}},
		cacheStore:     cacheStore,
		namer:          namer,
	}

	defer func() {
		if schema.err != nil {
			cacheStore.Delete(modelType)
		}
	}()

	for i := 0; i < modelType.NumField(); i++ {
		if fieldStruct := modelType.Field(i); ast.IsExported(fieldStruct.Name) {
			if field := schema.ParseField(fieldStruct); field.EmbeddedSchema != nil {
				for _, ef := range field.EmbeddedSchema.Fields {
					ef.Schema = schema
				}
				schema.Fields = append(schema.Fields, field.EmbeddedSchema.Fields...)
			} else {
				schema.Fields = append(schema.Fields, field)
			}
		}
	}

	for _, field := range schema.Fields {
		if field.DBName == "" && field.DataType != "" {
			field.DBName = namer.ColumnName(schema.Table, field.Name)
		}

		if field.DBName != "" {
			// nonexistence or shortest path or first appear prioritized
			if v, ok := schema.FieldsByDBName[field.DBName]; !ok || len(field.StructField.Index) < len(v.StructField.Index) {
				schema.FieldsByDBName[field.DBName] = field
				schema.FieldsByName[field.Name] = field

				if field.PrimaryKey {
					if schema.PrioritizedPrimaryField == nil {
						schema.PrioritizedPrimaryField = field
					}
					schema.PrimaryFields = append(schema.PrimaryFields, field)
				}
			}
		}

		if _, ok := schema.FieldsByName[field.Name]; !ok {
			schema.FieldsByName[field.Name] = field
		}
	}

	if f := schema.LookUpField("id"); f != nil {
		if f.PrimaryKey {
			schema.PrioritizedPrimaryField = f
		} else if len(schema.PrimaryFields) == 0 {
			f.PrimaryKey = true
			schema.PrioritizedPrimaryField = f
			schema.PrimaryFields = append(schema.PrimaryFields, f)
		}
	}

	if f := schema.PrioritizedPrimaryField; f != nil && (f.DataType == Int || f.DataType == Uint) {
		if _, ok := f.TagSettings["AUTOINCREMENT"]; !ok {
			f.AutoIncrement = true
		}
	}

	cacheStore.Store(modelType, schema)

	// parse relations for unidentified fields
	for _, field := range schema.Fields {
		if field.DataType == "" && field.Creatable && isRelationElem(indirectType(field.IndirectFieldType)) {
			if schema.parseRelation(field); schema.err != nil {
				return schema, schema.err
			}
		}
	}

	return schema, schema.err
}
