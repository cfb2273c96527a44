package form_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/dynform/form"
)

func TestRows(t *testing.T) {
	first, second := form.Values{"name": "first"}, form.Values{"name": "second"}

	tests := []struct {
		name   string
		input  interface{}
		expect []interface{}
	}{
		{"nil", nil, nil},
		{"interfaces", []interface{}{first, second}, []interface{}{first, second}},
		{"values", []form.Values{first, second}, []interface{}{first, second}},
		{"indexed", form.Values{"1": second, "0": first}, []interface{}{first, second}},
		{"numeric order", form.Values{"10": second, "2": first}, []interface{}{first, second}},
		{"typed map", map[string]map[string]string{"0": {"name": "first"}}, []interface{}{map[string]string{"name": "first"}}},
		{"typed slice", []map[string]string{{"name": "first"}}, []interface{}{map[string]string{"name": "first"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := form.Rows(tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expect, rows); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRowsInvalid(t *testing.T) {
	for _, input := range []interface{}{"rows", 1, form.Values{"first": form.Values{}}, map[int]string{0: "row"}} {
		if _, err := form.Rows(input); !errors.Is(err, form.ErrInvalidInput) {
			t.Errorf("should returns ErrInvalidInput for %#v, got %v", input, err)
		}
	}
}

func TestAsValues(t *testing.T) {
	values, ok := form.AsValues(map[string]string{"name": "typed"})
	assert.True(t, ok)
	assert.Equal(t, form.Values{"name": "typed"}, values)

	values, ok = form.AsValues(form.Values{"id": 1})
	assert.True(t, ok)
	assert.Equal(t, 1, values["id"])

	for _, row := range []interface{}{nil, "row", []interface{}{}} {
		_, ok := form.AsValues(row)
		assert.False(t, ok)
	}
}
