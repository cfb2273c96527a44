package orm

import (
	"fmt"
)

func beginTransaction(writable bool) func(*DB) {
	return func(db *DB) {
		stmt := db.Statement
		if db.Error != nil {
			return
		}

		if stmt.tx != nil {
			if writable && !stmt.tx.Writable() {
				db.AddError(fmt.Errorf("%w: write inside a read-only transaction", ErrInvalidTransaction))
			}
			return
		}

		tx, err := db.bolt.Begin(writable)
		if err != nil {
			db.AddError(err)
			return
		}

		stmt.tx = tx
		stmt.startedTransaction = true
		if stmt.state == nil {
			stmt.state = newTxState()
		}
	}
}

// CommitOrRollbackTransaction finishes the transaction the statement started, nested statements leave it to their owner
func CommitOrRollbackTransaction(db *DB) {
	stmt := db.Statement
	if !stmt.startedTransaction {
		return
	}

	tx, state := stmt.tx, stmt.state
	stmt.tx = nil
	stmt.startedTransaction = false
	stmt.state = nil

	if db.Error == nil && tx.Writable() {
		if db.AddError(tx.Commit()) == nil {
			db.listeners.committed(state.saved)
		}
	} else if err := tx.Rollback(); err != nil {
		db.AddError(err)
	}
}

// Transaction runs fc inside one write transaction, committing when it returns nil
func (db *DB) Transaction(fc func(tx *DB) error) (err error) {
	tx := db.Session(&Session{})
	if tx.Statement.tx != nil {
		return fc(tx)
	}

	btx, err := db.bolt.Begin(true)
	if err != nil {
		return err
	}
	state := newTxState()
	tx.Statement.tx = btx
	tx.Statement.state = state

	panicked := true
	defer func() {
		if panicked || err != nil {
			btx.Rollback()
		}
	}()

	if err = fc(tx); err == nil {
		if err = btx.Commit(); err == nil {
			db.listeners.committed(state.saved)
		}
	}
	panicked = false
	return
}
