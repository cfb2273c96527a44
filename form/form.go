package form

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"

	"gorm.io/dynform/schema"
	"gorm.io/dynform/utils"
)

// StructValidator validates a bound object, *validator.Validate satisfies it
type StructValidator interface {
	StructCtx(ctx context.Context, s interface{}) error
}

// Filter rewrites submitted values before they are bound
type Filter func(ctx context.Context, f *Form, values Values) (Values, error)

type namedFilter struct {
	name string
	fn   Filter
}

// Form binds submitted values to an object and its embedded forms
type Form struct {
	name      string
	object    interface{}
	schema    *schema.Schema
	fields    []string
	fieldsMap map[string]*schema.Field
	options   map[string]interface{}
	embedded  map[string]*Form
	order     []string
	filters   []namedFilter
	bound     bool
	values    Values
	errors    Errors
	namer     schema.Namer
	validator StructValidator
	only      []string
}

// Option configures a form
type Option func(*Form)

// WithFields restricts the form to the named fields
func WithFields(names ...string) Option {
	return func(f *Form) {
		f.only = names
	}
}

// WithNamer sets the naming strategy used to derive field names
func WithNamer(namer schema.Namer) Option {
	return func(f *Form) {
		f.namer = namer
	}
}

// WithValidator sets the validator run after binding, nil disables validation
func WithValidator(v StructValidator) Option {
	return func(f *Form) {
		f.validator = v
	}
}

// WithOption sets a form option
func WithOption(key string, value interface{}) Option {
	return func(f *Form) {
		f.options[key] = value
	}
}

var (
	cacheStore       = &sync.Map{}
	defaultValidator = validator.New()
)

// New builds a form over object, a pointer to a model. Every column of the model
// except the automatic timestamps becomes a field named by the naming strategy.
func New(name string, object interface{}, opts ...Option) (*Form, error) {
	f := newForm(name)
	for _, opt := range opts {
		opt(f)
	}

	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidObject, object)
	}

	s, err := schema.Parse(object, cacheStore, f.namer)
	if err != nil {
		return nil, err
	}

	f.object = object
	f.schema = s
	for _, field := range s.Fields {
		if field.DBName == "" || field.AutoCreateTime > 0 || field.AutoUpdateTime > 0 {
			continue
		}
		name := f.namer.FormFieldName(field.Name)
		if _, ok := f.fieldsMap[name]; !ok {
			f.fieldsMap[name] = field
			f.fields = append(f.fields, name)
		}
	}

	if f.only != nil {
		fields := make([]string, 0, len(f.only))
		for _, name := range f.only {
			if _, ok := f.fieldsMap[name]; !ok {
				return nil, fmt.Errorf("%w: %v on %v", ErrUnknownField, name, s)
			}
			fields = append(fields, name)
		}
		for name := range f.fieldsMap {
			if !utils.Contains(fields, name) {
				delete(f.fieldsMap, name)
			}
		}
		f.fields = fields
	}

	return f, nil
}

// NewCollection builds a container form without object holding children named "0".."n-1"
func NewCollection(name string, children []*Form) *Form {
	f := newForm(name)
	for idx, child := range children {
		f.Embed(strconv.Itoa(idx), child)
	}
	return f
}

func newForm(name string) *Form {
	return &Form{
		name:      name,
		fieldsMap: map[string]*schema.Field{},
		options:   map[string]interface{}{},
		embedded:  map[string]*Form{},
		namer:     schema.NamingStrategy{},
		validator: defaultValidator,
	}
}

func (f *Form) Name() string {
	return f.name
}

// Object returns the backing object, nil for containers
func (f *Form) Object() interface{} {
	return f.object
}

func (f *Form) Schema() *schema.Schema {
	return f.schema
}

func (f *Form) Namer() schema.Namer {
	return f.namer
}

// Fields returns the own field names in declaration order
func (f *Form) Fields() []string {
	return append([]string(nil), f.fields...)
}

// Has reports whether name is an own field or an embedded form
func (f *Form) Has(name string) bool {
	if _, ok := f.fieldsMap[name]; ok {
		return true
	}
	_, ok := f.embedded[name]
	return ok
}

// Field returns the schema field behind an own form field
func (f *Form) Field(name string) (*schema.Field, error) {
	if field, ok := f.fieldsMap[name]; ok {
		return field, nil
	}
	return nil, fmt.Errorf("%w: %v on form %v", ErrUnknownField, name, f.name)
}

// IdentifierField returns the form field holding the object's primary key
func (f *Form) IdentifierField() (string, bool) {
	for _, name := range f.fields {
		if f.fieldsMap[name].PrimaryKey {
			return name, true
		}
	}
	return "", false
}

func (f *Form) Option(key string) (interface{}, bool) {
	v, ok := f.options[key]
	return v, ok
}

func (f *Form) SetOption(key string, value interface{}) {
	f.options[key] = value
}

// Embed embeds child under name, replacing any form embedded there. Embedding is allowed at any stage.
func (f *Form) Embed(name string, child *Form) {
	if _, ok := f.embedded[name]; !ok {
		f.order = append(f.order, name)
	}
	child.name = name
	f.embedded[name] = child
}

// Unembed removes the form embedded under name
func (f *Form) Unembed(name string) bool {
	if _, ok := f.embedded[name]; !ok {
		return false
	}
	delete(f.embedded, name)
	for idx, n := range f.order {
		if n == name {
			f.order = append(f.order[:idx:idx], f.order[idx+1:]...)
			break
		}
	}
	return true
}

func (f *Form) EmbeddedForm(name string) (*Form, error) {
	if child, ok := f.embedded[name]; ok {
		return child, nil
	}
	return nil, fmt.Errorf("%w: %v on form %v", ErrNotEmbedded, name, f.name)
}

// EmbeddedForms returns the embedded forms in embedding order
func (f *Form) EmbeddedForms() []*Form {
	forms := make([]*Form, 0, len(f.order))
	for _, name := range f.order {
		forms = append(forms, f.embedded[name])
	}
	return forms
}

// AddFilter registers a values filter under name, it returns false when the name is taken
func (f *Form) AddFilter(name string, fn Filter) bool {
	if f.HasFilter(name) {
		return false
	}
	f.filters = append(f.filters, namedFilter{name: name, fn: fn})
	return true
}

func (f *Form) HasFilter(name string) bool {
	for _, filter := range f.filters {
		if filter.name == name {
			return true
		}
	}
	return false
}

func (f *Form) RemoveFilter(name string) bool {
	for idx, filter := range f.filters {
		if filter.name == name {
			f.filters = append(f.filters[:idx:idx], f.filters[idx+1:]...)
			return true
		}
	}
	return false
}

func (f *Form) IsBound() bool {
	return f.bound
}

// IsValid reports whether the form is bound without errors
func (f *Form) IsValid() bool {
	return f.bound && len(f.errors) == 0
}

func (f *Form) Errors() Errors {
	return f.errors
}

// Values returns the values the form was bound with, after filtering
func (f *Form) Values() Values {
	return f.values
}

func (f *Form) Value(name string) (interface{}, bool) {
	v, ok := f.values[name]
	return v, ok
}
