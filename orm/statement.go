package orm

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	bolt "go.etcd.io/bbolt"

	"gorm.io/dynform/schema"
	"gorm.io/dynform/utils"
)

// Statement statement
type Statement struct {
	*DB
	Table        string
	Model        interface{}
	Dest         interface{}
	ReflectValue reflect.Value
	Schema       *schema.Schema
	Context      context.Context
	Conds        []Cond
	Preloads     []string
	// PrimaryValue is the primary key First looks up, nil for the first record
	PrimaryValue interface{}
	Settings     map[string]interface{}

	tx                 *bolt.Tx
	startedTransaction bool
	state              *txState
}

// txState is shared by the statements of one transaction
type txState struct {
	// saving the objects whose save is running, nested saves of them are skipped
	saving map[interface{}]bool
	// saved the objects saved so far, their listeners are notified once the transaction commits
	saved map[interface{}]bool
}

func newTxState() *txState {
	return &txState{saving: map[interface{}]bool{}, saved: map[interface{}]bool{}}
}

// Cond an equality condition on a column
type Cond struct {
	Column string
	Value  interface{}
}

// Parse parse model value into the statement schema
func (stmt *Statement) Parse(value interface{}) (err error) {
	if stmt.Schema, err = stmt.DB.Parse(value); err == nil && stmt.Table == "" {
		stmt.Table = stmt.Schema.Table
	}
	return err
}

// Tx returns the running bbolt transaction, nil outside of callbacks
func (stmt *Statement) Tx() *bolt.Tx {
	return stmt.tx
}

// Matches reports whether a model value satisfies every condition of the statement
func (stmt *Statement) Matches(value reflect.Value) bool {
	for _, cond := range stmt.Conds {
		field := stmt.Schema.LookUpField(cond.Column)
		if field == nil {
			return false
		}
		if utils.ToStringKey(field.ReflectValueOf(value).Interface()) != utils.ToStringKey(cond.Value) {
			return false
		}
	}
	return true
}

// Explain describes the statement for tracing
func (stmt *Statement) Explain(op string) string {
	var b strings.Builder
	b.WriteString(op)
	if stmt.Table != "" {
		b.WriteString(" ")
		b.WriteString(stmt.Table)
	}

	if stmt.Schema != nil && stmt.Schema.PrioritizedPrimaryField != nil && stmt.ReflectValue.Kind() == reflect.Struct {
		if pv, isZero := stmt.Schema.PrioritizedPrimaryField.ValueOf(stmt.ReflectValue); !isZero {
			fmt.Fprintf(&b, "#%v", utils.ToStringKey(pv))
		}
	} else if stmt.PrimaryValue != nil {
		fmt.Fprintf(&b, "#%v", utils.ToStringKey(stmt.PrimaryValue))
	}

	for _, cond := range stmt.Conds {
		fmt.Fprintf(&b, " %v=%v", cond.Column, utils.ToStringKey(cond.Value))
	}

	if len(stmt.Preloads) > 0 {
		fmt.Fprintf(&b, " preload(%v)", strings.Join(stmt.Preloads, ","))
	}
	return b.String()
}

func (stmt *Statement) clone() *Statement {
	newStmt := &Statement{
		Table:    stmt.Table,
		DB:       stmt.DB,
		Context:  stmt.Context,
		tx:       stmt.tx,
		state:    stmt.state,
		Settings: map[string]interface{}{},
	}

	if len(stmt.Conds) > 0 {
		newStmt.Conds = append([]Cond{}, stmt.Conds...)
	}

	if len(stmt.Preloads) > 0 {
		newStmt.Preloads = append([]string{}, stmt.Preloads...)
	}

	for k, v := range stmt.Settings {
		newStmt.Settings[k] = v
	}

	return newStmt
}
