package dynform

import (
	"errors"
	"fmt"

	"gorm.io/dynform/form"
)

var (
	// ErrConfiguration an embedding is misconfigured, returned when it is declared
	ErrConfiguration = errors.New("dynamic relation configuration error")
	// ErrNotToMany the relation does not own a collection
	ErrNotToMany = fmt.Errorf("%w: not a to-many relation", ErrConfiguration)
	// ErrUnknownRelation the model has no relation with that name
	ErrUnknownRelation = fmt.Errorf("%w: unknown relation", ErrConfiguration)
	// ErrUnsupportedCollection the relation field is not a slice of pointers
	ErrUnsupportedCollection = fmt.Errorf("%w: unsupported collection", ErrConfiguration)
	// ErrUnknownFormType no form constructor is registered for the child form type
	ErrUnknownFormType = fmt.Errorf("%w: unknown form type", ErrConfiguration)
	// ErrMissingIdentifier the child form does not expose the primary key field
	ErrMissingIdentifier = fmt.Errorf("%w: child form has no identifier field", ErrConfiguration)

	// ErrInvalidInput submitted values cannot be reconciled
	ErrInvalidInput = form.ErrInvalidInput
	// ErrUnresolvableReference a submitted row refers to an identifier no embedded form holds
	ErrUnresolvableReference = fmt.Errorf("%w: unresolvable reference", ErrInvalidInput)
)
