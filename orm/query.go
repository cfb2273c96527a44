package orm

import (
	"fmt"
	"reflect"
)

// Query loads the records matching the statement into its destination
func Query(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}

	for _, cond := range stmt.Conds {
		if stmt.Schema.LookUpField(cond.Column) == nil {
			db.AddError(fmt.Errorf("%w: %v has no column %v", ErrInvalidField, stmt.Schema, cond.Column))
			return
		}
	}

	if count, ok := stmt.Settings["orm:count"].(*int64); ok {
		*count = 0
		db.AddError(scan(stmt.tx, stmt.Schema, func(value reflect.Value) (bool, error) {
			if stmt.Matches(value) {
				*count++
			}
			return true, nil
		}))
		db.RowsAffected = *count
		return
	}

	switch stmt.ReflectValue.Kind() {
	case reflect.Struct:
		if stmt.PrimaryValue != nil {
			queryByPrimaryKey(db)
			return
		}

		found := false
		if db.AddError(scan(stmt.tx, stmt.Schema, func(value reflect.Value) (bool, error) {
			if stmt.Matches(value) {
				stmt.ReflectValue.Set(value.Elem())
				found = true
				return false, nil
			}
			return true, nil
		})) != nil {
			return
		}

		if !found {
			db.AddError(ErrRecordNotFound)
			return
		}
		db.RowsAffected = 1
	case reflect.Slice:
		var (
			elemType = stmt.ReflectValue.Type().Elem()
			isPtr    = elemType.Kind() == reflect.Ptr
			results  = reflect.MakeSlice(stmt.ReflectValue.Type(), 0, 0)
		)

		if db.AddError(scan(stmt.tx, stmt.Schema, func(value reflect.Value) (bool, error) {
			if stmt.Matches(value) {
				if isPtr {
					results = reflect.Append(results, value)
				} else {
					results = reflect.Append(results, value.Elem())
				}
			}
			return true, nil
		})) != nil {
			return
		}

		stmt.ReflectValue.Set(results)
		db.RowsAffected = int64(results.Len())
	default:
		db.AddError(ErrInvalidValue)
	}
}

func queryByPrimaryKey(db *DB) {
	stmt := db.Statement
	pk := stmt.Schema.PrioritizedPrimaryField
	if pk == nil {
		db.AddError(ErrPrimaryKeyRequired)
		return
	}

	key, err := primaryKeyOf(pk, stmt.PrimaryValue)
	if err != nil {
		db.AddError(err)
		return
	}

	bucket := stmt.tx.Bucket([]byte(stmt.Table))
	if bucket == nil {
		db.AddError(ErrRecordNotFound)
		return
	}

	data := bucket.Get(key)
	if data == nil {
		db.AddError(ErrRecordNotFound)
		return
	}

	value := stmt.Schema.New()
	if db.AddError(decodeRecord(stmt.Schema, data, value.Elem())) != nil {
		return
	}

	if !stmt.Matches(value) {
		db.AddError(ErrRecordNotFound)
		return
	}

	stmt.ReflectValue.Set(value.Elem())
	db.RowsAffected = 1
}

// AfterQuery calls the AfterFind hook of every loaded value
func AfterQuery(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil || stmt.Settings["orm:count"] != nil {
		return
	}

	tx := db.Session(&Session{NewDB: true})
	for _, value := range loadedValues(stmt.ReflectValue) {
		if i, ok := value.Interface().(AfterFindInterface); ok {
			if db.AddError(i.AfterFind(tx)) != nil {
				return
			}
		}
	}
}

// loadedValues returns pointers to the struct values held by a destination
func loadedValues(rv reflect.Value) []reflect.Value {
	var values []reflect.Value
	switch rv.Kind() {
	case reflect.Ptr:
		if !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
			values = append(values, rv)
		}
	case reflect.Struct:
		if rv.CanAddr() {
			values = append(values, rv.Addr())
		}
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			if v, ok := associationValue(rv.Index(i)); ok {
				values = append(values, v)
			}
		}
	}
	return values
}
