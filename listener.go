package dynform

import (
	"fmt"
	"reflect"

	"gorm.io/dynform/orm"
)

// deletionListener drops, before its object is saved, the related records no child form represents anymore
type deletionListener struct {
	manager *Manager
	form    EmbeddableRelationForm
}

func (l *deletionListener) Name() string {
	return listenerName
}

// AfterCommit releases the registration, the form's next Bind registers the listener again
func (l *deletionListener) AfterCommit(value interface{}) {
	l.manager.host.RemoveListener(value, listenerName)
}

func (l *deletionListener) BeforeSave(tx *orm.DB, value interface{}) error {
	if value != l.form.Object() {
		return nil
	}

	var (
		ctx       = tx.Statement.Context
		relations = Relations(l.form)
		owner     = reflect.ValueOf(value)
	)

	for _, field := range relations.Fields() {
		cfg, _ := relations.Get(field)

		var removed, deleted int64
		err := l.manager.trace(ctx, func() (string, int64) {
			return fmt.Sprintf("delete orphans %v.%v removed=%d", l.form.Name(), field, removed), deleted
		}, func() error {
			kept := map[interface{}]bool{}
			container, err := l.form.EmbeddedForm(field)
			if cfg.Disabled || err != nil {
				if l.manager.config.KeepOnMissingEmbedding {
					l.manager.config.Logger.Warn(ctx, "dynform: %v is not embedded, keeping its records", field)
					return nil
				}
				l.manager.config.Logger.Warn(ctx, "dynform: %v is not embedded, dropping every record", field)
			} else {
				for _, child := range container.EmbeddedForms() {
					if object := child.Object(); object != nil {
						kept[object] = true
					}
				}
			}

			var (
				collection = cfg.Relation.Field.ReflectValueOf(owner)
				remaining  = reflect.MakeSlice(collection.Type(), 0, collection.Len())
				orphans    []reflect.Value
			)

			for i := 0; i < collection.Len(); i++ {
				elem := collection.Index(i)
				if elem.IsNil() {
					continue
				}
				if kept[elem.Interface()] {
					remaining = reflect.Append(remaining, elem)
				} else {
					orphans = append(orphans, elem)
				}
			}
			collection.Set(remaining)
			removed = int64(len(orphans))

			for _, orphan := range orphans {
				l.manager.release(orphan.Interface())
			}

			if !cfg.Relation.ForeignKeyNotNull() {
				return nil
			}

			for _, orphan := range orphans {
				if _, isZero := cfg.Relation.FieldSchema.PrimaryValue(orphan); isZero {
					continue
				}
				result := tx.Session(&orm.Session{NewDB: true}).Delete(orphan.Interface())
				if result.Error != nil {
					return result.Error
				}
				deleted += result.RowsAffected
			}
			return nil
		})

		if err != nil {
			return err
		}
	}
	return nil
}

// release drops the deletion listener of object and those of the records embedded under its form
func (m *Manager) release(object interface{}) {
	for _, l := range m.host.Listeners(object) {
		dl, ok := l.(*deletionListener)
		if !ok || !m.host.RemoveListener(object, listenerName) {
			continue
		}

		relations := Relations(dl.form)
		for _, field := range relations.Fields() {
			container, err := dl.form.EmbeddedForm(field)
			if err != nil {
				continue
			}
			for _, child := range container.EmbeddedForms() {
				if child.Object() != nil {
					m.release(child.Object())
				}
			}
		}
	}
}
