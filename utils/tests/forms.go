package tests

import (
	"gorm.io/dynform"
	"gorm.io/dynform/form"
)

// RegisterForms registers the fixture form types. PetForm embeds its toys through m.
//
//	UserForm            id, name, age
//	PetForm             id, name, with the Toys relation as `toys`
//	ToyForm             id, name
//	AccountForm         id, number
//	AnonymousPetForm    name only, it cannot be embedded dynamically
func RegisterForms(registry *form.Registry, m *dynform.Manager) {
	registry.Register("UserForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		return form.New("user", object, form.WithFields("id", "name", "age"))
	})

	registry.Register("PetForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		f, err := form.New("pet", object, form.WithFields("id", "name"))
		if err != nil {
			return nil, err
		}

		for _, arg := range args {
			if opt, ok := arg.(form.Option); ok {
				opt(f)
			}
		}

		if err := m.EmbedRelation(f, "Toys"); err != nil {
			return nil, err
		}
		return f, nil
	})

	registry.Register("ToyForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		return form.New("toy", object, form.WithFields("id", "name"))
	})

	registry.Register("AccountForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		return form.New("account", object, form.WithFields("id", "number"))
	})

	registry.Register("AnonymousPetForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		return form.New("pet", object, form.WithFields("name"))
	})
}
