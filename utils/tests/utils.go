package tests

import (
	"fmt"
	"go/ast"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"gorm.io/dynform"
	"gorm.io/dynform/form"
	"gorm.io/dynform/logger"
	"gorm.io/dynform/orm"
	"gorm.io/dynform/utils"
)

// OpenDB opens a database in a temporary directory, closed when the test ends
func OpenDB(t *testing.T) *orm.DB {
	t.Helper()

	db, err := orm.Open(filepath.Join(t.TempDir(), "test.db"), &orm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("failed to open database, got error %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database, got error %v", err)
		}
	})
	return db
}

// NewManager returns a manager over db with its own registry holding the fixture forms
func NewManager(db *orm.DB, config *dynform.Config) *dynform.Manager {
	if config == nil {
		config = &dynform.Config{}
	}
	if config.Registry == nil {
		config.Registry = form.NewRegistry()
	}
	if config.Logger == nil {
		config.Logger = logger.Discard
	}

	m := dynform.New(db, config)
	RegisterForms(config.Registry, m)
	return m
}

// GetUser builds a user with pets and accounts, named after name
func GetUser(name string, pets, accounts int) *User {
	user := User{Name: name, Age: 18}

	for i := 0; i < pets; i++ {
		user.Pets = append(user.Pets, &Pet{Name: name + "_pet_" + fmt.Sprint(i+1)})
	}

	for i := 0; i < accounts; i++ {
		user.Accounts = append(user.Accounts, &Account{Number: name + "_account_" + fmt.Sprint(i+1)})
	}

	return &user
}

// ChildIDs returns the primary keys behind the forms embedded under field, in order
func ChildIDs(t *testing.T, f *form.Form, field string) []uint {
	t.Helper()

	container, err := f.EmbeddedForm(field)
	if err != nil {
		t.Fatalf("no form embedded under %v, got error %v", field, err)
	}

	ids := make([]uint, 0)
	for _, child := range container.EmbeddedForms() {
		id := reflect.Indirect(reflect.ValueOf(child.Object())).FieldByName("ID")
		ids = append(ids, uint(id.Uint()))
	}
	return ids
}

func AssertObjEqual(t *testing.T, r, e interface{}, names ...string) {
	for _, name := range names {
		got := reflect.Indirect(reflect.ValueOf(r)).FieldByName(name).Interface()
		expect := reflect.Indirect(reflect.ValueOf(e)).FieldByName(name).Interface()
		t.Run(name, func(t *testing.T) {
			AssertEqual(t, got, expect)
		})
	}
}

func AssertEqual(t *testing.T, got, expect interface{}) {
	if reflect.DeepEqual(got, expect) || fmt.Sprint(got) == fmt.Sprint(expect) {
		return
	}

	if reflect.Indirect(reflect.ValueOf(got)).IsValid() != reflect.Indirect(reflect.ValueOf(expect)).IsValid() {
		t.Errorf("%v: expect: %+v, got %+v", utils.FileWithLineNum(), expect, got)
		return
	}

	if got != nil {
		got = reflect.Indirect(reflect.ValueOf(got)).Interface()
	}

	if expect != nil {
		expect = reflect.Indirect(reflect.ValueOf(expect)).Interface()
	}

	if curTime, ok := got.(time.Time); ok {
		format := "2006-01-02T15:04:05Z07:00"
		expectTime, _ := expect.(time.Time)
		if curTime.Round(time.Second).UTC().Format(format) != expectTime.Round(time.Second).UTC().Format(format) &&
			curTime.Truncate(time.Second).UTC().Format(format) != expectTime.Truncate(time.Second).UTC().Format(format) {
			t.Errorf("%v: expect: %v, got %v after time round", utils.FileWithLineNum(), expectTime, curTime)
		}
		return
	}

	gotValue, expectValue := reflect.ValueOf(got), reflect.ValueOf(expect)
	if gotValue.IsValid() != expectValue.IsValid() {
		t.Errorf("%v: expect: %+v, got %+v", utils.FileWithLineNum(), expect, got)
		return
	}

	if gotValue.Kind() == reflect.Slice && expectValue.Kind() == reflect.Slice {
		if gotValue.Len() != expectValue.Len() {
			t.Errorf("%v expects length: %v, got %v (expects: %+v, got %+v)", gotValue.Type().Elem().Name(), expectValue.Len(), gotValue.Len(), expect, got)
			return
		}

		for i := 0; i < gotValue.Len(); i++ {
			name := fmt.Sprintf(gotValue.Type().Name()+" #%v", i)
			t.Run(name, func(t *testing.T) {
				AssertEqual(t, gotValue.Index(i).Interface(), expectValue.Index(i).Interface())
			})
		}
		return
	}

	if gotValue.Kind() == reflect.Struct && gotValue.Type() == expectValue.Type() {
		exported := false
		for i := 0; i < gotValue.NumField(); i++ {
			if fieldStruct := gotValue.Type().Field(i); ast.IsExported(fieldStruct.Name) {
				exported = true
				field := gotValue.Field(i)
				t.Run(fieldStruct.Name, func(t *testing.T) {
					AssertEqual(t, field.Interface(), expectValue.Field(i).Interface())
				})
			}
		}

		if exported {
			return
		}
	}

	if gotValue.Type().ConvertibleTo(expectValue.Type()) && fmt.Sprint(gotValue.Convert(expectValue.Type()).Interface()) == fmt.Sprint(expect) {
		return
	}

	t.Errorf("%v: expect: %#v, got %#v", utils.FileWithLineNum(), expect, got)
}

func Now() *time.Time {
	now := time.Now()
	return &now
}
