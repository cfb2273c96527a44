package schema

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnsupportedRelation unsupported relations
var ErrUnsupportedRelation = errors.New("unsupported relations")

// RelationshipType relationship type
type RelationshipType string

const (
	HasOne    RelationshipType = "has_one"    // HasOneRel has one relationship
	HasMany   RelationshipType = "has_many"   // HasManyRel has many relationship
	BelongsTo RelationshipType = "belongs_to" // BelongsToRel belongs to relationship
)

type Relationships struct {
	HasOne    []*Relationship
	BelongsTo []*Relationship
	HasMany   []*Relationship
	Relations map[string]*Relationship
}

type Relationship struct {
	Name                     string
	Type                     RelationshipType
	Field                    *Field
	References               []Reference
	Schema                   *Schema
	FieldSchema              *Schema
	foreignKeys, primaryKeys []string
}

type Reference struct {
	PrimaryKey    *Field
	ForeignKey    *Field
	OwnPrimaryKey bool
}

func (schema *Schema) parseRelation(field *Field) {
	var (
		err      error
		relation = &Relationship{
			Name:        field.Name,
			Field:       field,
			Schema:      schema,
			foreignKeys: toColumns(field.TagSettings["FOREIGNKEY"]),
			primaryKeys: toColumns(field.TagSettings["REFERENCES"]),
		}
	)

	if _, ok := field.TagSettings["MANY2MANY"]; ok {
		schema.err = fmt.Errorf("%w: many2many is not supported, %v on field %v", ErrUnsupportedRelation, schema, field.Name)
		return
	}

	if relation.FieldSchema, err = Parse(indirectType(field.IndirectFieldType), schema.cacheStore, schema.namer); err != nil {
		schema.err = err
		return
	}

	switch field.IndirectFieldType.Kind() {
	case reflect.Struct:
		schema.guessRelation(relation, field, true)
	case reflect.Slice:
		schema.guessRelation(relation, field, true)
	default:
		schema.err = fmt.Errorf("%w: data type %v for %v on field %v", ErrUnsupportedRelation, relation.FieldSchema, schema, field.Name)
	}

	if relation.Type == "has" {
		switch field.IndirectFieldType.Kind() {
		case reflect.Struct:
			relation.Type = HasOne
		case reflect.Slice:
			relation.Type = HasMany
		}
	}

	if schema.err == nil {
		schema.Relationships.Relations[relation.Name] = relation
		switch relation.Type {
		case HasOne:
			schema.Relationships.HasOne = append(schema.Relationships.HasOne, relation)
		case HasMany:
			schema.Relationships.HasMany = append(schema.Relationships.HasMany, relation)
		case BelongsTo:
			schema.Relationships.BelongsTo = append(schema.Relationships.BelongsTo, relation)
		}
	}
}

func (schema *Schema) guessRelation(relation *Relationship, field *Field, guessHas bool) {
	var (
		primaryFields, foreignFields []*Field
		primarySchema, foreignSchema = schema, relation.FieldSchema
	)

	if !guessHas {
		primarySchema, foreignSchema = relation.FieldSchema, schema
	}

	reguessOrErr := func(err string, args ...interface{}) {
		if guessHas && field.IndirectFieldType.Kind() == reflect.Struct {
			schema.guessRelation(relation, field, false)
		} else {
			schema.err = fmt.Errorf("%w: "+err, append([]interface{}{ErrUnsupportedRelation}, args...)...)
		}
	}

	if len(relation.foreignKeys) > 0 {
		for _, foreignKey := range relation.foreignKeys {
			if f := foreignSchema.LookUpField(foreignKey); f != nil {
				foreignFields = append(foreignFields, f)
			} else {
				reguessOrErr("%v for %v on field %v with foreign keys %v", relation.FieldSchema, schema, field.Name, relation.foreignKeys)
				return
			}
		}
	} else {
		for _, primaryField := range primarySchema.PrimaryFields {
			lookUpName := schema.Name + primaryField.Name
			if !guessHas {
				lookUpName = field.Name + primaryField.Name
			}

			if f := foreignSchema.LookUpField(lookUpName); f != nil {
				foreignFields = append(foreignFields, f)
				primaryFields = append(primaryFields, primaryField)
			}
		}
	}

	if len(foreignFields) == 0 {
		reguessOrErr("failed to guess %v's relations with %v's field %v", relation.FieldSchema, schema, field.Name)
		return
	} else if len(relation.primaryKeys) > 0 {
		for idx, primaryKey := range relation.primaryKeys {
			if f := primarySchema.LookUpField(primaryKey); f != nil {
				if len(primaryFields) < idx+1 {
					primaryFields = append(primaryFields, f)
				} else if f != primaryFields[idx] {
					reguessOrErr("%v for %v on field %v with primary keys %v", relation.FieldSchema, schema, field.Name, relation.primaryKeys)
					return
				}
			} else {
				reguessOrErr("%v for %v on field %v with primary keys %v", relation.FieldSchema, schema, field.Name, relation.primaryKeys)
				return
			}
		}
	} else if len(primaryFields) == 0 {
		if len(foreignFields) == 1 && primarySchema.PrioritizedPrimaryField != nil {
			primaryFields = append(primaryFields, primarySchema.PrioritizedPrimaryField)
		} else if len(primarySchema.PrimaryFields) == len(foreignFields) {
			primaryFields = append(primaryFields, primarySchema.PrimaryFields...)
		} else {
			reguessOrErr("%v for %v on field %v", relation.FieldSchema, schema, field.Name)
			return
		}
	}

	// build references
	relation.References = relation.References[:0]
	for idx, foreignField := range foreignFields {
		relation.References = append(relation.References, Reference{
			PrimaryKey:    primaryFields[idx],
			ForeignKey:    foreignField,
			OwnPrimaryKey: schema == primarySchema && guessHas,
		})
	}

	if guessHas {
		relation.Type = "has"
	} else {
		relation.Type = BelongsTo
	}
}

// IsToMany reports whether one owner holds a collection of related records
func (rel *Relationship) IsToMany() bool {
	return rel.Type == HasMany
}

// ForeignKey returns the first foreign key field of the relation, on the related schema for has relations
func (rel *Relationship) ForeignKey() *Field {
	if len(rel.References) == 0 {
		return nil
	}
	return rel.References[0].ForeignKey
}

// ForeignKeyNotNull reports whether related rows cannot exist without their owner
func (rel *Relationship) ForeignKeyNotNull() bool {
	for _, ref := range rel.References {
		if ref.ForeignKey.NotNull {
			return true
		}
	}
	return false
}
