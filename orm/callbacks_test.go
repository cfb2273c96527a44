package orm

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"gorm.io/dynform/logger"
)

func assertCallbacks(p *processor, fnames []string) (result bool, msg string) {
	var got []string

	for _, f := range p.fns {
		got = append(got, getFuncName(f))
	}

	return fmt.Sprint(got) == fmt.Sprint(fnames), fmt.Sprintf("expects %v, got %v", fnames, got)
}

func getFuncName(fc interface{}) string {
	reflectValue, ok := fc.(reflect.Value)
	if !ok {
		reflectValue = reflect.ValueOf(fc)
	}

	fnames := strings.Split(runtime.FuncForPC(reflectValue.Pointer()).Name(), ".")
	return fnames[len(fnames)-1]
}

func c1(*DB) {}
func c2(*DB) {}
func c3(*DB) {}
func c4(*DB) {}
func c5(*DB) {}

func openTestDB(t *testing.T) *DB {
	db, err := Open(filepath.Join(t.TempDir(), "callbacks.db"), &Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("failed to open database, got error %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCallbacks(t *testing.T) {
	type callback struct {
		name    string
		before  string
		after   string
		remove  bool
		replace bool
		h       func(*DB)
	}

	datas := []struct {
		callbacks []callback
		results   []string
	}{
		{
			callbacks: []callback{{h: c1}, {h: c2}, {h: c3}, {h: c4}, {h: c5}},
			results:   []string{"c1", "c2", "c3", "c4", "c5"},
		},
		{
			callbacks: []callback{{h: c1}, {h: c2}, {h: c3}, {h: c4}, {h: c5, before: "c4"}},
			results:   []string{"c1", "c2", "c3", "c5", "c4"},
		},
		{
			callbacks: []callback{{h: c1}, {h: c2}, {h: c3}, {h: c4, after: "c5"}, {h: c5}},
			results:   []string{"c1", "c2", "c3", "c5", "c4"},
		},
		{
			callbacks: []callback{{h: c1}, {h: c2}, {h: c3}, {h: c4, after: "c5"}, {h: c5, before: "c4"}},
			results:   []string{"c1", "c2", "c3", "c5", "c4"},
		},
		{
			callbacks: []callback{{h: c1}, {h: c2, before: "c4", after: "c5"}, {h: c3}, {h: c4}, {h: c5}},
			results:   []string{"c1", "c5", "c2", "c3", "c4"},
		},
		{
			callbacks: []callback{{h: c1, after: "c3"}, {h: c2, before: "c4", after: "c5"}, {h: c3, before: "c5"}, {h: c4}, {h: c5}},
			results:   []string{"c3", "c1", "c5", "c2", "c4"},
		},
		{
			callbacks: []callback{{h: c1}, {h: c2, before: "c4", after: "c5"}, {h: c3}, {h: c4}, {h: c5}, {h: c2, remove: true}},
			results:   []string{"c1", "c5", "c3", "c4"},
		},
		{
			callbacks: []callback{{h: c1}, {name: "c", h: c2}, {h: c3}, {name: "c", h: c4, replace: true}},
			results:   []string{"c1", "c4", "c3"},
		},
	}

	for idx, data := range datas {
		db := openTestDB(t)
		callbacks := initializeCallbacks(db)

		for _, c := range data.callbacks {
			var v interface{} = callbacks.Save()
			callMethod := func(s interface{}, name string, args ...interface{}) {
				var argValues []reflect.Value
				for _, arg := range args {
					argValues = append(argValues, reflect.ValueOf(arg))
				}

				results := reflect.ValueOf(s).MethodByName(name).Call(argValues)
				if len(results) > 0 {
					v = results[0].Interface()
				}
			}

			if c.name == "" {
				c.name = getFuncName(c.h)
			}

			if c.before != "" {
				callMethod(v, "Before", c.before)
			}

			if c.after != "" {
				callMethod(v, "After", c.after)
			}

			if c.remove {
				callMethod(v, "Remove", c.name)
			} else if c.replace {
				callMethod(v, "Replace", c.name, c.h)
			} else {
				callMethod(v, "Register", c.name, c.h)
			}
		}

		if ok, msg := assertCallbacks(callbacks.Save(), data.results); !ok {
			t.Errorf("callbacks tests #%v failed, got %v", idx+1, msg)
		}
	}
}

func TestDefaultCallbacks(t *testing.T) {
	db := openTestDB(t)

	for name, expects := range map[string][]string{
		"save":   {"orm:begin_transaction", "orm:before_save", "orm:save_before_associations", "orm:save", "orm:save_after_associations", "orm:after_save", "orm:commit_or_rollback_transaction"},
		"query":  {"orm:begin_transaction", "orm:query", "orm:preload", "orm:after_query", "orm:commit_or_rollback_transaction"},
		"delete": {"orm:begin_transaction", "orm:before_delete", "orm:delete", "orm:after_delete", "orm:commit_or_rollback_transaction"},
	} {
		p := db.Callback().processors[name]
		if fmt.Sprint(p.names) != fmt.Sprint(expects) {
			t.Errorf("default %v callbacks failed, expects %v, got %v", name, expects, p.names)
		}

		if len(p.fns) != len(expects) {
			t.Errorf("default %v callbacks should compile %v handlers, got %v", name, len(expects), len(p.fns))
		}
	}
}

func TestCallbacksRemoveDefault(t *testing.T) {
	db := openTestDB(t)
	query := db.Callback().Query()

	if err := query.Remove("orm:preload"); err != nil {
		t.Fatalf("failed to remove callback, got %v", err)
	}

	expects := []string{"orm:begin_transaction", "orm:query", "orm:after_query", "orm:commit_or_rollback_transaction"}
	if fmt.Sprint(query.names) != fmt.Sprint(expects) {
		t.Errorf("expects %v, got %v", expects, query.names)
	}
}
