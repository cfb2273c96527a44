package orm

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"gorm.io/dynform/utils"
)

func initializeCallbacks(db *DB) *callbacks {
	return &callbacks{
		processors: map[string]*processor{
			"save":   {db: db, name: "save"},
			"query":  {db: db, name: "query"},
			"delete": {db: db, name: "delete"},
		},
	}
}

// callbacks orm callbacks manager
type callbacks struct {
	processors map[string]*processor
}

type processor struct {
	db   *DB
	name string
	// names the compiled callback names, in execution order
	names     []string
	fns       []func(*DB)
	callbacks []*callback
}

type callback struct {
	name      string
	before    string
	after     string
	remove    bool
	replace   bool
	handler   func(*DB)
	processor *processor
}

func (cs *callbacks) Save() *processor {
	return cs.processors["save"]
}

func (cs *callbacks) Query() *processor {
	return cs.processors["query"]
}

func (cs *callbacks) Delete() *processor {
	return cs.processors["delete"]
}

func (p *processor) Execute(db *DB) *DB {
	curTime := time.Now()
	stmt := db.Statement

	if stmt.Model == nil {
		stmt.Model = stmt.Dest
	} else if stmt.Dest == nil {
		stmt.Dest = stmt.Model
	}

	if stmt.Model != nil {
		if err := stmt.Parse(stmt.Model); err != nil {
			db.AddError(err)
		}
	} else {
		db.AddError(ErrModelValueRequired)
	}

	if stmt.Dest != nil {
		stmt.ReflectValue = reflect.ValueOf(stmt.Dest)
		for stmt.ReflectValue.Kind() == reflect.Ptr {
			stmt.ReflectValue = stmt.ReflectValue.Elem()
		}
		if !stmt.ReflectValue.IsValid() {
			db.AddError(ErrInvalidValue)
		}
	}

	for _, f := range p.fns {
		f(db)
	}

	db.Logger.Trace(stmt.Context, curTime, func() (string, int64) {
		return stmt.Explain(p.name), db.RowsAffected
	}, db.Error)

	return db
}

func (p *processor) Before(name string) *callback {
	return &callback{before: name, processor: p}
}

func (p *processor) After(name string) *callback {
	return &callback{after: name, processor: p}
}

func (p *processor) Register(name string, fn func(*DB)) error {
	return (&callback{processor: p}).Register(name, fn)
}

func (p *processor) Remove(name string) error {
	return (&callback{processor: p}).Remove(name)
}

func (p *processor) Replace(name string, fn func(*DB)) error {
	return (&callback{processor: p}).Replace(name, fn)
}

func (p *processor) compile() (err error) {
	if p.names, p.fns, err = sortCallbacks(p.callbacks); err != nil {
		p.db.Logger.Error(context.Background(), "Got error when compile callbacks, got %v", err)
	}
	return
}

func (c *callback) Before(name string) *callback {
	c.before = name
	return c
}

func (c *callback) After(name string) *callback {
	c.after = name
	return c
}

func (c *callback) Register(name string, fn func(*DB)) error {
	c.name = name
	c.handler = fn
	c.processor.callbacks = append(c.processor.callbacks, c)
	return c.processor.compile()
}

func (c *callback) Remove(name string) error {
	c.processor.db.Logger.Warn(context.Background(), "removing callback `%v` from %v\n", name, utils.FileWithLineNum())
	c.name = name
	c.remove = true
	c.processor.callbacks = append(c.processor.callbacks, c)
	return c.processor.compile()
}

func (c *callback) Replace(name string, fn func(*DB)) error {
	c.processor.db.Logger.Info(context.Background(), "replacing callback `%v` from %v\n", name, utils.FileWithLineNum())
	c.name = name
	c.handler = fn
	c.replace = true
	c.processor.callbacks = append(c.processor.callbacks, c)
	return c.processor.compile()
}

// getRIndex get right index from string slice
func getRIndex(strs []string, str string) int {
	for i := len(strs) - 1; i >= 0; i-- {
		if strs[i] == str {
			return i
		}
	}
	return -1
}

func sortCallbacks(cs []*callback) (compiled []string, fns []func(*DB), err error) {
	var (
		names, sorted []string
		sortCallback  func(*callback) error
	)
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[j].before == "*" || cs[j].after == "*"
	})

	for _, c := range cs {
		// a callback registered twice under one name without Replace is most likely a mistake
		if idx := getRIndex(names, c.name); idx > -1 && !c.replace && !c.remove && !cs[idx].remove {
			c.processor.db.Logger.Warn(context.Background(), "duplicated callback `%v` from %v\n", c.name, utils.FileWithLineNum())
		}
		names = append(names, c.name)
	}

	sortCallback = func(c *callback) error {
		if c.before != "" {
			if c.before == "*" && len(sorted) > 0 {
				if curIdx := getRIndex(sorted, c.name); curIdx == -1 {
					sorted = append([]string{c.name}, sorted...)
				}
			} else if sortedIdx := getRIndex(sorted, c.before); sortedIdx != -1 {
				if curIdx := getRIndex(sorted, c.name); curIdx == -1 {
					sorted = append(sorted[:sortedIdx], append([]string{c.name}, sorted[sortedIdx:]...)...)
				} else if curIdx > sortedIdx {
					return fmt.Errorf("conflicting callback %v with before %v", c.name, c.before)
				}
			} else if idx := getRIndex(names, c.before); idx != -1 {
				cs[idx].after = c.name
			}
		}

		if c.after != "" {
			if c.after == "*" && len(sorted) > 0 {
				if curIdx := getRIndex(sorted, c.name); curIdx == -1 {
					sorted = append(sorted, c.name)
				}
			} else if sortedIdx := getRIndex(sorted, c.after); sortedIdx != -1 {
				if curIdx := getRIndex(sorted, c.name); curIdx == -1 {
					sorted = append(sorted, c.name)
				} else if curIdx < sortedIdx {
					return fmt.Errorf("conflicting callback %v with after %v", c.name, c.after)
				}
			} else if idx := getRIndex(names, c.after); idx != -1 {
				// the after target is known but unsorted: pin it before us and sort both
				after := cs[idx]

				if after.before == "" {
					after.before = c.name
				}

				if err := sortCallback(after); err != nil {
					return err
				}

				if err := sortCallback(c); err != nil {
					return err
				}
			}
		}

		if getRIndex(sorted, c.name) == -1 {
			sorted = append(sorted, c.name)
		}

		return nil
	}

	for _, c := range cs {
		if err = sortCallback(c); err != nil {
			return
		}
	}

	for _, name := range sorted {
		if idx := getRIndex(names, name); !cs[idx].remove {
			compiled = append(compiled, name)
			fns = append(fns, cs[idx].handler)
		}
	}

	return
}

func registerDefaultCallbacks(db *DB) {
	saveCallback := db.Callback().Save()
	saveCallback.Register("orm:begin_transaction", beginTransaction(true))
	saveCallback.Register("orm:before_save", BeforeSave)
	saveCallback.Register("orm:save_before_associations", SaveBeforeAssociations)
	saveCallback.Register("orm:save", SaveRecord)
	saveCallback.Register("orm:save_after_associations", SaveAfterAssociations)
	saveCallback.Register("orm:after_save", AfterSave)
	saveCallback.Register("orm:commit_or_rollback_transaction", CommitOrRollbackTransaction)

	queryCallback := db.Callback().Query()
	queryCallback.Register("orm:begin_transaction", beginTransaction(false))
	queryCallback.Register("orm:query", Query)
	queryCallback.Register("orm:preload", Preload)
	queryCallback.Register("orm:after_query", AfterQuery)
	queryCallback.Register("orm:commit_or_rollback_transaction", CommitOrRollbackTransaction)

	deleteCallback := db.Callback().Delete()
	deleteCallback.Register("orm:begin_transaction", beginTransaction(true))
	deleteCallback.Register("orm:before_delete", BeforeDelete)
	deleteCallback.Register("orm:delete", DeleteRecord)
	deleteCallback.Register("orm:after_delete", AfterDelete)
	deleteCallback.Register("orm:commit_or_rollback_transaction", CommitOrRollbackTransaction)
}
