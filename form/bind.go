package form

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Bind runs the values filters, binds values to the object and every embedded form, then validates the tree.
// A filter error aborts binding and leaves the form unbound.
func (f *Form) Bind(ctx context.Context, values Values) error {
	f.bound = false
	f.errors = Errors{}

	if values == nil {
		values = Values{}
	}

	for _, filter := range f.filters {
		filtered, err := filter.fn(ctx, f, values)
		if err != nil {
			return err
		}
		values = filtered
	}

	f.bind(values, "", f.errors)
	f.validate(ctx, "", f.errors)
	return nil
}

func (f *Form) bind(values Values, path string, errs Errors) {
	f.values = values
	f.bound = true
	f.errors = errs

	if f.object != nil {
		rv := reflect.ValueOf(f.object)
		for _, name := range f.fields {
			field := f.fieldsMap[name]
			if field.PrimaryKey {
				continue
			}

			v, ok := values[name]
			if !ok {
				continue
			}

			if err := field.Set(rv, v); err != nil {
				errs.Add(path+name, "invalid value")
			}
		}
	}

	for _, name := range f.order {
		child := f.embedded[name]
		child.bind(childValues(values[name], child.object == nil), path+name+".", errs)
	}
}

// Validate validates the object of the form and of every embedded form
func (f *Form) Validate(ctx context.Context) Errors {
	errs := Errors{}
	f.validate(ctx, "", errs)
	return errs
}

func (f *Form) validate(ctx context.Context, path string, errs Errors) {
	if f.object != nil && f.validator != nil {
		if err := f.validator.StructCtx(ctx, f.object); err != nil {
			var fieldErrors validator.ValidationErrors
			if errors.As(err, &fieldErrors) {
				for _, fe := range fieldErrors {
					errs.Add(path+f.namer.FormFieldName(fe.StructField()), fe.Tag())
				}
			} else {
				errs.Add(strings.TrimSuffix(path, "."), err.Error())
			}
		}
	}

	for _, name := range f.order {
		f.embedded[name].validate(ctx, path+name+".", errs)
	}
}
