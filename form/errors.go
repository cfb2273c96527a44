package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownField the form has no field with that name
	ErrUnknownField = errors.New("unknown form field")
	// ErrNotEmbedded no form is embedded under that name
	ErrNotEmbedded = errors.New("form not embedded")
	// ErrUnknownFormType no constructor is registered under that name
	ErrUnknownFormType = errors.New("unknown form type")
	// ErrInvalidInput submitted values have an unexpected shape
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidObject forms are built over pointers to structs
	ErrInvalidObject = errors.New("invalid form object, should be pointer to struct")
)

// Errors validation and binding messages keyed by dotted field path, e.g. `pets.0.name`
type Errors map[string][]string

func (errs Errors) Add(path, msg string) {
	errs[path] = append(errs[path], msg)
}

// Paths returns the sorted paths carrying messages
func (errs Errors) Paths() []string {
	paths := make([]string, 0, len(errs))
	for path := range errs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (errs Errors) Error() string {
	var b strings.Builder
	for i, path := range errs.Paths() {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%v: %v", path, strings.Join(errs[path], ", "))
	}
	return b.String()
}
