// Package dynform embeds has-many relations into forms as variable-length sets of
// child forms, reconciles those sets against submitted values and deletes the
// related records a submission dropped.
package dynform

import (
	"context"
	"reflect"
	"sync"
	"time"

	"gorm.io/dynform/form"
	"gorm.io/dynform/logger"
	"gorm.io/dynform/orm"
	"gorm.io/dynform/schema"
)

const (
	// OptionName the form option holding the *RelationConfigs of a form
	OptionName = "dynamic_relations"

	listenerName = "dynform:delete_orphans"
	filterName   = "dynform:reconcile"
)

// EmbeddableRelationForm is the form capability the manager needs, *form.Form implements it
type EmbeddableRelationForm interface {
	Name() string
	Object() interface{}
	Namer() schema.Namer
	Option(key string) (interface{}, bool)
	SetOption(key string, value interface{})
	Embed(name string, child *form.Form)
	EmbeddedForm(name string) (*form.Form, error)
	Unembed(name string) bool
	IdentifierField() (string, bool)
	AddFilter(name string, fn form.Filter) bool
	RemoveFilter(name string) bool
}

// Host is the ORM capability the manager needs, *orm.DB implements it
type Host interface {
	Parse(value interface{}) (*schema.Schema, error)
	AddListener(value interface{}, l orm.Listener) bool
	RemoveListener(value interface{}, name string) bool
	Listeners(value interface{}) []orm.Listener
}

var (
	_ EmbeddableRelationForm = (*form.Form)(nil)
	_ Host                   = (*orm.DB)(nil)
)

// Config manager config
type Config struct {
	// Logger defaults to logger.Default
	Logger logger.Interface
	// Registry child form constructors, defaults to form.DefaultRegistry
	Registry *form.Registry
	// KeepOnMissingEmbedding skips a relation on save when its embedded container was removed
	// from the form. By default a missing container means nothing was submitted, so every
	// related record is dropped.
	KeepOnMissingEmbedding bool
}

// Manager embeds dynamic relations into forms
type Manager struct {
	host   Host
	config Config
	// probing the objects of the probe forms being built
	probing sync.Map
}

// New creates a manager over host
func New(host Host, config *Config) *Manager {
	m := &Manager{host: host}
	if config != nil {
		m.config = *config
	}

	if m.config.Logger == nil {
		m.config.Logger = logger.Default
	}

	if m.config.Registry == nil {
		m.config.Registry = form.DefaultRegistry
	}
	return m
}

// Registry returns the registry child forms are built from
func (m *Manager) Registry() *form.Registry {
	return m.config.Registry
}

// Disconnect detaches the manager from f: the deletion listener f registered and its values filter are removed.
// The embedded forms and the relation configuration stay in place.
func (m *Manager) Disconnect(f EmbeddableRelationForm) bool {
	disconnected := f.RemoveFilter(filterName)

	if object := f.Object(); object != nil {
		for _, l := range m.host.Listeners(object) {
			if dl, ok := l.(*deletionListener); ok && dl.form == f {
				disconnected = m.host.RemoveListener(object, listenerName) || disconnected
			}
		}
	}
	return disconnected
}

// listen registers the deletion listener of f's object, unless a form already did.
// The listener releases itself once the save that ran it commits, reconciling registers it again.
func (m *Manager) listen(f EmbeddableRelationForm) {
	m.host.AddListener(f.Object(), &deletionListener{manager: m, form: f})
}

func (m *Manager) build(cfg *RelationConfig, object interface{}) (*form.Form, error) {
	return m.config.Registry.Build(cfg.FormType, object, cfg.FormArgs...)
}

func (m *Manager) trace(ctx context.Context, op func() (string, int64), fc func() error) error {
	begin := time.Now()
	err := fc()
	m.config.Logger.Trace(ctx, begin, op, err)
	return err
}

// isBackingObject reports whether value is a related model instance rather than a submitted row
func isBackingObject(cfg *RelationConfig, value interface{}) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Ptr && rv.Type().Elem() == cfg.Relation.FieldSchema.ModelType
}
