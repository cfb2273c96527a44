package form_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/dynform/form"
	. "gorm.io/dynform/utils/tests"
)

func TestRegistry(t *testing.T) {
	registry := form.NewRegistry()

	var received []interface{}
	registry.Register("ProfileForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		received = args
		return form.New("profile", object, form.WithFields("id", "bio"))
	})
	registry.Register("AccountForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		return form.New("account", object)
	})

	assert.Equal(t, []string{"AccountForm", "ProfileForm"}, registry.Names())

	_, ok := registry.Lookup("ProfileForm")
	assert.True(t, ok)

	profile := &Profile{Bio: "registry"}
	f, err := registry.Build("ProfileForm", profile, "edit", 1)
	require.NoError(t, err)
	assert.Same(t, profile, f.Object())
	assert.Equal(t, []string{"id", "bio"}, f.Fields())
	assert.Equal(t, []interface{}{"edit", 1}, received)

	if _, err := registry.Build("UnknownForm", profile); !errors.Is(err, form.ErrUnknownFormType) {
		t.Errorf("should returns ErrUnknownFormType, got %v", err)
	}

	if _, err := registry.Build("AccountForm", nil); !errors.Is(err, form.ErrInvalidObject) {
		t.Errorf("constructor errors should be returned, got %v", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	form.Register("DefaultRegistryToyForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		return form.New("toy", object)
	})

	f, err := form.Build("DefaultRegistryToyForm", &Toy{})
	require.NoError(t, err)
	assert.Equal(t, "toy", f.Name())

	_, ok := form.DefaultRegistry.Lookup("DefaultRegistryToyForm")
	assert.True(t, ok)
}
