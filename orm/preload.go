package orm

import (
	"fmt"
	"reflect"
	"strings"

	"gorm.io/dynform/schema"
	"gorm.io/dynform/utils"
)

// Preload loads the associations named by the statement, nested names are dot separated
func Preload(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil || len(stmt.Preloads) == 0 || stmt.Settings["orm:count"] != nil {
		return
	}

	db.AddError(preload(db, stmt.Schema, loadedValues(stmt.ReflectValue), stmt.Preloads))
}

func preload(db *DB, s *schema.Schema, owners []reflect.Value, names []string) error {
	var (
		order  []string
		nested = map[string][]string{}
	)

	for _, name := range names {
		parts := strings.SplitN(name, ".", 2)
		if _, ok := nested[parts[0]]; !ok {
			order = append(order, parts[0])
			nested[parts[0]] = nil
		}
		if len(parts) == 2 {
			nested[parts[0]] = append(nested[parts[0]], parts[1])
		}
	}

	for _, name := range order {
		rel, ok := s.Relationships.Relations[name]
		if !ok {
			return fmt.Errorf("%w: %v has no relation %v", ErrUnsupportedRelation, s, name)
		}

		var err error
		if rel.Type == schema.BelongsTo {
			err = preloadBelongsTo(db, rel, owners)
		} else {
			err = preloadHas(db, rel, owners)
		}
		if err != nil {
			return err
		}

		if len(nested[name]) > 0 {
			var related []reflect.Value
			for _, owner := range owners {
				related = append(related, loadedValues(rel.Field.ReflectValueOf(owner))...)
			}
			if len(related) > 0 {
				if err := preload(db, rel.FieldSchema, related, nested[name]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func preloadHas(db *DB, rel *schema.Relationship, owners []reflect.Value) error {
	byKey := map[string][]reflect.Value{}
	for _, owner := range owners {
		fieldValue := rel.Field.ReflectValueOf(owner)
		fieldValue.Set(reflect.Zero(fieldValue.Type()))
		if rel.Type == schema.HasMany {
			fieldValue.Set(reflect.MakeSlice(fieldValue.Type(), 0, 0))
		}

		key := ownerKeyOf(rel, owner)
		byKey[key] = append(byKey[key], owner)
	}

	return scan(db.Statement.tx, rel.FieldSchema, func(child reflect.Value) (bool, error) {
		for _, owner := range byKey[childKeyOf(rel, child)] {
			assignAssociation(rel.Field.ReflectValueOf(owner), child)
		}
		return true, nil
	})
}

func preloadBelongsTo(db *DB, rel *schema.Relationship, owners []reflect.Value) error {
	bucket := db.Statement.tx.Bucket([]byte(rel.FieldSchema.Table))
	for _, owner := range owners {
		fieldValue := rel.Field.ReflectValueOf(owner)
		fieldValue.Set(reflect.Zero(fieldValue.Type()))

		fk, _ := rel.ForeignKey().ValueOf(owner)
		if bucket == nil || utils.IsBlank(fk) {
			continue
		}

		key, err := encodeKey(fk)
		if err != nil {
			return err
		}

		if data := bucket.Get(key); data != nil {
			value := rel.FieldSchema.New()
			if err := decodeRecord(rel.FieldSchema, data, value.Elem()); err != nil {
				return err
			}
			assignAssociation(fieldValue, value)
		}
	}
	return nil
}

func assignAssociation(fieldValue reflect.Value, value reflect.Value) {
	switch fieldValue.Kind() {
	case reflect.Slice:
		if fieldValue.Type().Elem().Kind() == reflect.Ptr {
			fieldValue.Set(reflect.Append(fieldValue, value))
		} else {
			fieldValue.Set(reflect.Append(fieldValue, value.Elem()))
		}
	case reflect.Ptr:
		fieldValue.Set(value)
	default:
		fieldValue.Set(value.Elem())
	}
}
