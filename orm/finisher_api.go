package orm

import (
	"reflect"
)

// Save update value in database, if the value doesn't have primary key, will insert it
func (db *DB) Save(value interface{}) (tx *DB) {
	tx = db.getInstance()
	key, ok := listenerKey(value)
	state := tx.Statement.state
	if ok && state != nil && state.saving[key] {
		// already being saved further up the association chain
		return tx
	}

	tx.Statement.Dest = value
	tx = tx.callbacks.Save().Execute(tx)
	if ok && state != nil {
		delete(state.saving, key)
	}
	return tx
}

// First find first record that match given conditions, the optional argument is the primary key
func (db *DB) First(dest interface{}, conds ...interface{}) (tx *DB) {
	tx = db.getInstance()
	if len(conds) > 0 {
		tx.Statement.PrimaryValue = conds[0]
	}
	tx.Statement.Dest = dest
	return tx.callbacks.Query().Execute(tx)
}

// Find find records that match given conditions, dest should be a pointer to a slice
func (db *DB) Find(dest interface{}) (tx *DB) {
	tx = db.getInstance()
	tx.Statement.Dest = dest
	if rv := reflect.Indirect(reflect.ValueOf(dest)); rv.Kind() != reflect.Slice {
		tx.AddError(ErrInvalidValue)
		return tx
	}
	return tx.callbacks.Query().Execute(tx)
}

// Count counts the records of the model that match given conditions
func (db *DB) Count(count *int64) (tx *DB) {
	tx = db.getInstance()
	if tx.Statement.Model == nil {
		tx.AddError(ErrModelValueRequired)
		return tx
	}
	tx.Statement.Settings["orm:count"] = count
	return tx.callbacks.Query().Execute(tx)
}

// Delete delete value from database by its primary key
func (db *DB) Delete(value interface{}) (tx *DB) {
	tx = db.getInstance()
	tx.Statement.Dest = value
	return tx.callbacks.Delete().Execute(tx)
}
