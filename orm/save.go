package orm

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"gorm.io/dynform/schema"
	"gorm.io/dynform/utils"
)

// BeforeSave runs the listeners registered for the saved object, then its BeforeSave hook
func BeforeSave(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}

	if stmt.ReflectValue.Kind() != reflect.Struct || !stmt.ReflectValue.CanAddr() {
		db.AddError(ErrInvalidValue)
		return
	}

	value := stmt.ReflectValue.Addr().Interface()
	if stmt.state != nil {
		stmt.state.saving[value] = true
		stmt.state.saved[value] = true
	}

	tx := db.Session(&Session{NewDB: true})
	for _, l := range db.listeners.get(value) {
		if db.AddError(l.BeforeSave(tx, value)) != nil {
			return
		}
	}

	if i, ok := value.(BeforeSaveInterface); ok {
		db.AddError(i.BeforeSave(tx))
	}
}

// SaveBeforeAssociations saves belongs-to owners first so their keys can be copied into the record
func SaveBeforeAssociations(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}

	for _, rel := range stmt.Schema.Relationships.BelongsTo {
		owner, ok := associationValue(rel.Field.ReflectValueOf(stmt.ReflectValue))
		if !ok {
			continue
		}

		if saveAssociation(db, owner) != nil {
			return
		}

		for _, ref := range rel.References {
			if !ref.OwnPrimaryKey {
				pv, _ := ref.PrimaryKey.ValueOf(owner)
				db.AddError(ref.ForeignKey.Set(stmt.ReflectValue, pv))
			}
		}
	}
}

// SaveRecord inserts or updates the record, assigning the auto increment primary key and timestamps
func SaveRecord(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}

	pk := stmt.Schema.PrioritizedPrimaryField
	if pk == nil {
		db.AddError(fmt.Errorf("%w: %v", ErrPrimaryKeyRequired, stmt.Schema))
		return
	}

	bucket, err := stmt.tx.CreateBucketIfNotExists([]byte(stmt.Table))
	if err != nil {
		db.AddError(err)
		return
	}

	if pv := pk.ReflectValueOf(stmt.ReflectValue); pv.IsZero() {
		if !pk.AutoIncrement {
			db.AddError(fmt.Errorf("%w: %v", ErrPrimaryKeyRequired, stmt.Schema))
			return
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			db.AddError(err)
			return
		}
		if db.AddError(pk.Set(stmt.ReflectValue, seq)) != nil {
			return
		}
	}

	pv, _ := pk.ValueOf(stmt.ReflectValue)
	key, err := encodeKey(pv)
	if err != nil {
		db.AddError(err)
		return
	}

	var existing record
	if data := bucket.Get(key); data != nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			db.AddError(err)
			return
		}
	} else if pk.AutoIncrement && len(key) == 8 {
		// explicit keys must not be handed out again by NextSequence
		if id := binary.BigEndian.Uint64(key); id > bucket.Sequence() {
			if db.AddError(bucket.SetSequence(id)) != nil {
				return
			}
		}
	}

	now := db.NowFunc()
	for _, field := range stmt.Schema.Fields {
		if field.AutoCreateTime > 0 && field.ReflectValueOf(stmt.ReflectValue).IsZero() {
			if raw, ok := existing[field.DBName]; ok {
				if err := json.Unmarshal(raw, field.ReflectValueOf(stmt.ReflectValue).Addr().Interface()); err != nil {
					db.AddError(err)
					return
				}
			} else if db.AddError(assignTime(field, stmt.ReflectValue, now, field.AutoCreateTime)) != nil {
				return
			}
		}

		if field.AutoUpdateTime > 0 {
			if db.AddError(assignTime(field, stmt.ReflectValue, now, field.AutoUpdateTime)) != nil {
				return
			}
		}
	}

	rec, err := encodeRecord(stmt.Schema, stmt.ReflectValue)
	if err != nil {
		db.AddError(err)
		return
	}

	data, err := rec.bytes()
	if err == nil {
		err = bucket.Put(key, data)
	}

	if db.AddError(err) == nil {
		db.RowsAffected++
	}
}

// SaveAfterAssociations saves has-one and has-many values with their foreign keys pointing at the record
func SaveAfterAssociations(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}

	for _, rel := range stmt.Schema.Relationships.HasOne {
		if child, ok := associationValue(rel.Field.ReflectValueOf(stmt.ReflectValue)); ok {
			if db.AddError(setForeignKeys(rel, stmt.ReflectValue, child)) != nil || saveAssociation(db, child) != nil {
				return
			}
		}
	}

	for _, rel := range stmt.Schema.Relationships.HasMany {
		var (
			collection = rel.Field.ReflectValueOf(stmt.ReflectValue)
			kept       = map[string]bool{}
		)

		for i := 0; i < collection.Len(); i++ {
			child, ok := associationValue(collection.Index(i))
			if !ok {
				continue
			}

			if db.AddError(setForeignKeys(rel, stmt.ReflectValue, child)) != nil || saveAssociation(db, child) != nil {
				return
			}

			pv, _ := rel.FieldSchema.PrimaryValue(child)
			kept[utils.ToStringKey(pv)] = true
		}

		if db.AddError(detachOrphans(db, rel, stmt.ReflectValue, kept)) != nil {
			return
		}
	}
}

// AfterSave calls the AfterSave hook
func AfterSave(db *DB) {
	if db.Error == nil && db.Statement.Schema != nil {
		if i, ok := db.Statement.ReflectValue.Addr().Interface().(AfterSaveInterface); ok {
			db.AddError(i.AfterSave(db.Session(&Session{NewDB: true})))
		}
	}
}

// detachOrphans nulls the foreign key of stored rows that left the collection.
// Rows whose foreign key is not null are left to the owner's listeners.
func detachOrphans(db *DB, rel *schema.Relationship, owner reflect.Value, kept map[string]bool) error {
	if rel.ForeignKeyNotNull() {
		return nil
	}

	var (
		ownerKey = ownerKeyOf(rel, owner)
		orphans  []reflect.Value
		tx       = db.Statement.tx
	)

	err := scan(tx, rel.FieldSchema, func(child reflect.Value) (bool, error) {
		if childKeyOf(rel, child) == ownerKey {
			if pv, _ := rel.FieldSchema.PrimaryValue(child); !kept[utils.ToStringKey(pv)] {
				orphans = append(orphans, child)
			}
		}
		return true, nil
	})
	if err != nil || len(orphans) == 0 {
		return err
	}

	bucket := tx.Bucket([]byte(rel.FieldSchema.Table))
	for _, orphan := range orphans {
		for _, ref := range rel.References {
			if err := ref.ForeignKey.Set(orphan, nil); err != nil {
				return err
			}
		}

		pv, _ := rel.FieldSchema.PrimaryValue(orphan)
		key, err := encodeKey(pv)
		if err != nil {
			return err
		}

		rec, err := encodeRecord(rel.FieldSchema, orphan.Elem())
		if err != nil {
			return err
		}

		data, err := rec.bytes()
		if err != nil {
			return err
		}

		if err := bucket.Put(key, data); err != nil {
			return err
		}
	}

	db.Logger.Info(db.Statement.Context, "detached %d %v from %v", len(orphans), rel.FieldSchema.Table, db.Statement.Table)
	return nil
}

func saveAssociation(db *DB, value reflect.Value) error {
	return db.AddError(db.Session(&Session{NewDB: true}).Save(value.Interface()).Error)
}

// associationValue returns a pointer to a present association value
func associationValue(fieldValue reflect.Value) (reflect.Value, bool) {
	switch fieldValue.Kind() {
	case reflect.Ptr:
		if fieldValue.IsNil() || fieldValue.Elem().Kind() != reflect.Struct {
			return fieldValue, false
		}
		return fieldValue, true
	case reflect.Struct:
		if fieldValue.IsZero() || !fieldValue.CanAddr() {
			return fieldValue, false
		}
		return fieldValue.Addr(), true
	}
	return fieldValue, false
}

func setForeignKeys(rel *schema.Relationship, owner, child reflect.Value) error {
	for _, ref := range rel.References {
		if ref.OwnPrimaryKey {
			pv, _ := ref.PrimaryKey.ValueOf(owner)
			if err := ref.ForeignKey.Set(child, pv); err != nil {
				return err
			}
		}
	}
	return nil
}

func ownerKeyOf(rel *schema.Relationship, owner reflect.Value) string {
	values := make([]interface{}, 0, len(rel.References))
	for _, ref := range rel.References {
		pv, _ := ref.PrimaryKey.ValueOf(owner)
		values = append(values, pv)
	}
	return utils.ToStringKey(values...)
}

func childKeyOf(rel *schema.Relationship, child reflect.Value) string {
	values := make([]interface{}, 0, len(rel.References))
	for _, ref := range rel.References {
		fv, _ := ref.ForeignKey.ValueOf(child)
		values = append(values, fv)
	}
	return utils.ToStringKey(values...)
}

func assignTime(field *schema.Field, value reflect.Value, now time.Time, timeType schema.TimeType) error {
	switch field.DataType {
	case schema.Int, schema.Uint:
		switch timeType {
		case schema.UnixNanosecond:
			return field.Set(value, now.UnixNano())
		case schema.UnixMillisecond:
			return field.Set(value, now.UnixMilli())
		default:
			return field.Set(value, now.Unix())
		}
	}
	return field.Set(value, now)
}
