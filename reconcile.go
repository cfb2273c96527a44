package dynform

import (
	"context"
	"fmt"

	"gorm.io/dynform/form"
)

// Reconcile rebuilds the child forms of every dynamic relation of f, and of its child forms,
// from submitted values. It is the values filter EmbedRelation registers, values are returned
// unchanged.
//
// Fields are processed in declaration order. All rows of a field are embedded before its
// child forms are reconciled, and a field's subtree is done before the next field starts.
func (m *Manager) Reconcile(ctx context.Context, f *form.Form, values form.Values) (form.Values, error) {
	var embedded int64
	err := m.trace(ctx, func() (string, int64) {
		return fmt.Sprintf("reconcile %v", f.Name()), embedded
	}, func() error {
		return m.reconcile(f, values, &embedded)
	})

	if err != nil {
		return nil, err
	}
	return values, nil
}

func (m *Manager) reconcile(f EmbeddableRelationForm, values form.Values, embedded *int64) error {
	relations := Relations(f)
	if relations.Len() > 0 {
		m.listen(f)
	}

	for _, field := range relations.Fields() {
		cfg, _ := relations.Get(field)
		if cfg.Disabled {
			continue
		}

		rows, err := form.Rows(values[field])
		if err != nil {
			return fmt.Errorf("%w: field %v", err, field)
		}

		if err := m.embed(f, cfg, rows); err != nil {
			return err
		}

		container, err := f.EmbeddedForm(field)
		if err != nil {
			return err
		}

		for i, child := range container.EmbeddedForms() {
			row, _ := form.AsValues(rows[i])
			if err := m.reconcile(child, row, embedded); err != nil {
				return err
			}
		}
		*embedded += int64(len(rows))
	}
	return nil
}
