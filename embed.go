package dynform

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/dynform/form"
	"gorm.io/dynform/utils"
)

type embedOptions struct {
	formType string
	formArgs []interface{}
}

// EmbedOption configures EmbedRelation
type EmbedOption func(*embedOptions)

// WithFormType overrides the child form type
func WithFormType(name string) EmbedOption {
	return func(o *embedOptions) {
		o.formType = name
	}
}

// WithFormArgs passes extra arguments to the child form constructor
func WithFormArgs(args ...interface{}) EmbedOption {
	return func(o *embedOptions) {
		o.formArgs = args
	}
}

// EmbedRelation embeds the has-many relation named by spec, `Pets` or `Pets as animals`, into f.
// The child forms are built from the records currently in the relation. f's object gets a
// deletion listener and f a values filter reconciling the child forms on Bind.
// Only has-many relations over a slice of pointers can be embedded, many2many is not supported.
//
//	err := manager.EmbedRelation(userForm, "Pets")
func (m *Manager) EmbedRelation(f EmbeddableRelationForm, spec string, opts ...EmbedOption) error {
	object := f.Object()
	if object == nil {
		return fmt.Errorf("%w: form %v has no object", ErrConfiguration, f.Name())
	}

	s, err := m.host.Parse(object)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	name, field, ok := parseRelationSpec(spec, f.Namer())
	if !ok {
		return fmt.Errorf("%w: invalid relation %q", ErrConfiguration, spec)
	}

	rel, ok := s.Relationships.Relations[name]
	if !ok {
		return fmt.Errorf("%w: %v has no relation %v", ErrUnknownRelation, s, name)
	}

	if !rel.IsToMany() {
		return fmt.Errorf("%w: %v.%v is %v", ErrNotToMany, s.Name, rel.Name, rel.Type)
	}

	if rel.Field.FieldType.Kind() != reflect.Slice || rel.Field.FieldType.Elem().Kind() != reflect.Ptr {
		return fmt.Errorf("%w: %v.%v is %v, expects a slice of pointers", ErrUnsupportedCollection, s.Name, rel.Name, rel.Field.FieldType)
	}

	options := embedOptions{formType: f.Namer().FormTypeName(rel.FieldSchema.Name)}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := &RelationConfig{
		Field:    field,
		Relation: rel,
		FormType: options.formType,
		FormArgs: options.formArgs,
	}

	if cfg.Identifier, err = m.probe(f, cfg); err != nil {
		return err
	}

	collection := rel.Field.ReflectValueOf(reflect.ValueOf(object))
	values := make([]interface{}, 0, collection.Len())
	for i := 0; i < collection.Len(); i++ {
		if elem := collection.Index(i); !elem.IsNil() {
			values = append(values, elem.Interface())
		}
	}

	if err := m.embed(f, cfg, values); err != nil {
		return err
	}

	f.SetOption(OptionName, Relations(f).merge(cfg))
	m.listen(f)
	f.AddFilter(filterName, m.Reconcile)
	return nil
}

// DisableField removes the child forms of a configured field and stops reconciling it.
// Saving the object then drops every related record, or keeps them all with KeepOnMissingEmbedding.
func (m *Manager) DisableField(f EmbeddableRelationForm, field string) error {
	cfg, ok := Relations(f).Get(field)
	if !ok {
		return fmt.Errorf("%w: field %v of form %v is not a dynamic relation", ErrConfiguration, field, f.Name())
	}

	disabled := *cfg
	disabled.Disabled = true
	f.SetOption(OptionName, Relations(f).merge(&disabled))
	f.Unembed(field)
	return nil
}

// probe builds the child form type over a zero record and returns its identifier field.
// Relations embedded while building a probe form are not probed again, they fall back to the
// primary key name since the probe form is thrown away.
func (m *Manager) probe(f EmbeddableRelationForm, cfg *RelationConfig) (string, error) {
	if _, ok := m.config.Registry.Lookup(cfg.FormType); !ok {
		return "", fmt.Errorf("%w: %v for field %v", ErrUnknownFormType, cfg.FormType, cfg.Field)
	}

	if _, nested := m.probing.Load(f.Object()); nested {
		if pk := cfg.Relation.FieldSchema.PrioritizedPrimaryField; pk != nil {
			return f.Namer().FormFieldName(pk.Name), nil
		}
		return "", fmt.Errorf("%w: %v has no primary key", ErrMissingIdentifier, cfg.Relation.FieldSchema)
	}

	object := cfg.Relation.FieldSchema.New().Interface()
	m.probing.Store(object, true)
	defer m.probing.Delete(object)

	child, err := m.build(cfg, object)
	if err != nil {
		return "", fmt.Errorf("%w: %v: %w", ErrConfiguration, cfg.FormType, err)
	}
	defer m.Disconnect(child)

	identifier, ok := child.IdentifierField()
	if !ok {
		return "", fmt.Errorf("%w: %v must include the %v primary key to be embedded as %v", ErrMissingIdentifier, cfg.FormType, cfg.Relation.FieldSchema.Name, cfg.Field)
	}
	return identifier, nil
}

// EmbedField rebuilds the child forms of a configured field from values. Each value is either a
// related record or a submitted row: rows carrying an identifier reuse the child form embedded
// for that record, rows without one create a record appended to the relation.
func (m *Manager) EmbedField(f EmbeddableRelationForm, field string, values []interface{}) error {
	cfg, ok := Relations(f).Get(field)
	if !ok {
		return fmt.Errorf("%w: field %v of form %v is not a dynamic relation", ErrConfiguration, field, f.Name())
	}
	return m.embed(f, cfg, values)
}

func (m *Manager) embed(f EmbeddableRelationForm, cfg *RelationConfig, values []interface{}) (err error) {
	var (
		previous, _ = f.EmbeddedForm(cfg.Field)
		children    = make([]*form.Form, 0, len(values))
		created     []*form.Form
		reused      = map[*form.Form]bool{}
	)

	defer func() {
		if err != nil {
			for _, child := range created {
				m.Disconnect(child)
			}
		}
	}()

	for i, value := range values {
		var child *form.Form

		if isBackingObject(cfg, value) {
			child, err = m.build(cfg, value)
		} else {
			row, ok := form.AsValues(value)
			if !ok {
				return fmt.Errorf("%w: row %v of %v is %T", ErrInvalidInput, i, cfg.Field, value)
			}

			if id := row[cfg.Identifier]; !utils.IsBlank(id) {
				if child = findByIdentifier(cfg, previous, id); child == nil {
					return fmt.Errorf("%w: could not find a previously embedded %v form with %v %q", ErrUnresolvableReference, cfg.Field, cfg.Identifier, utils.ToStringKey(id))
				}
				if reused[child] {
					return fmt.Errorf("%w: %v %q of %v submitted twice", ErrInvalidInput, cfg.Identifier, utils.ToStringKey(id), cfg.Field)
				}
				reused[child] = true
			} else if child, err = m.create(cfg, row); err == nil {
				created = append(created, child)
			}
		}

		if err != nil {
			return err
		}
		children = append(children, child)
	}

	// new records join the relation once every row resolved
	if len(created) > 0 {
		collection := cfg.Relation.Field.ReflectValueOf(reflect.ValueOf(f.Object()))
		for _, child := range created {
			collection.Set(reflect.Append(collection, reflect.ValueOf(child.Object())))
		}
	}

	f.Embed(cfg.Field, form.NewCollection(cfg.Field, children))
	return nil
}

// create builds the child form of a new related record, populating the child form's own fields from row
func (m *Manager) create(cfg *RelationConfig, row form.Values) (*form.Form, error) {
	object := cfg.Relation.FieldSchema.New()
	child, err := m.build(cfg, object.Interface())
	if err != nil {
		return nil, err
	}

	for _, name := range child.Fields() {
		v, ok := row[name]
		if !ok {
			continue
		}

		field, err := child.Field(name)
		if err != nil || field.PrimaryKey {
			continue
		}
		if err := field.Set(object, v); err != nil {
			// binding reports the value against the child form
			m.config.Logger.Info(context.Background(), "dynform: %v", err)
		}
	}
	return child, nil
}

func findByIdentifier(cfg *RelationConfig, container *form.Form, id interface{}) *form.Form {
	if container == nil {
		return nil
	}

	key := utils.ToStringKey(id)
	for _, child := range container.EmbeddedForms() {
		object := child.Object()
		if object == nil {
			continue
		}

		if pv, isZero := cfg.Relation.FieldSchema.PrimaryValue(reflect.ValueOf(object)); !isZero && utils.ToStringKey(pv) == key {
			return child
		}
	}
	return nil
}

// IsConfigurationError reports whether err comes from a misconfigured embedding
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
