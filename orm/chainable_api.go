package orm

// Model specify the model you would like to run db operations
//
//	// count all users
//	db.Model(&User{}).Count(&count)
func (db *DB) Model(value interface{}) (tx *DB) {
	tx = db.getInstance()
	tx.Statement.Model = value
	return
}

// Where add an equality condition on a column or field name
//
//	db.Where("user_id", user.ID).Find(&pets)
func (db *DB) Where(column string, value interface{}) (tx *DB) {
	tx = db.getInstance()
	tx.Statement.Conds = append(tx.Statement.Conds, Cond{Column: column, Value: value})
	return
}

// Preload preload associations with given relation names, nested ones are joined with dots
//
//	db.Preload("Pets.Toys").First(&user, 1)
func (db *DB) Preload(query ...string) (tx *DB) {
	tx = db.getInstance()
	tx.Statement.Preloads = append(tx.Statement.Preloads, query...)
	return
}

// Set store value with key into current db instance's context
func (db *DB) Set(key string, value interface{}) *DB {
	tx := db.getInstance()
	tx.Statement.Settings[key] = value
	return tx
}

// Get get value with key from current db instance's context
func (db *DB) Get(key string) (interface{}, bool) {
	if db.Statement != nil {
		v, ok := db.Statement.Settings[key]
		return v, ok
	}
	return nil, false
}
