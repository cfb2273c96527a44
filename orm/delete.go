package orm

import (
	"fmt"
	"reflect"
)

// BeforeDelete calls the BeforeDelete hook
func BeforeDelete(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}

	if stmt.ReflectValue.Kind() != reflect.Struct || !stmt.ReflectValue.CanAddr() {
		db.AddError(ErrInvalidValue)
		return
	}

	if i, ok := stmt.ReflectValue.Addr().Interface().(BeforeDeleteInterface); ok {
		db.AddError(i.BeforeDelete(db.Session(&Session{NewDB: true})))
	}
}

// DeleteRecord removes the record stored under the value's primary key
func DeleteRecord(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}

	pv, isZero := stmt.Schema.PrimaryValue(stmt.ReflectValue)
	if isZero || stmt.Schema.PrioritizedPrimaryField == nil {
		db.AddError(fmt.Errorf("%w: delete %v", ErrPrimaryKeyRequired, stmt.Schema))
		return
	}

	key, err := encodeKey(pv)
	if err != nil {
		db.AddError(err)
		return
	}

	bucket := stmt.tx.Bucket([]byte(stmt.Table))
	if bucket == nil || bucket.Get(key) == nil {
		return
	}

	if db.AddError(bucket.Delete(key)) == nil {
		db.RowsAffected++
	}
}

// AfterDelete calls the AfterDelete hook and forgets the listeners of the deleted value
func AfterDelete(db *DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}

	value := stmt.ReflectValue.Addr().Interface()
	db.listeners.forget(value)

	if i, ok := value.(AfterDeleteInterface); ok {
		db.AddError(i.AfterDelete(db.Session(&Session{NewDB: true})))
	}
}
