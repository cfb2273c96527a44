package form

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Values submitted form values, nested forms receive nested Values or row sequences
type Values = map[string]interface{}

// Rows normalises a submitted row sequence. Accepted shapes are []interface{}, []Values
// and maps keyed by row index, the latter ordered numerically. nil is an empty sequence.
func Rows(v interface{}) ([]interface{}, error) {
	switch rows := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return rows, nil
	case []Values:
		results := make([]interface{}, len(rows))
		for i, row := range rows {
			results[i] = row
		}
		return results, nil
	case Values:
		return indexedRows(rows)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		results := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			results[i] = rv.Index(i).Interface()
		}
		return results, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(Values, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return indexedRows(m)
		}
	}

	return nil, fmt.Errorf("%w: expected a sequence of rows, got %T", ErrInvalidInput, v)
}

func indexedRows(m Values) ([]interface{}, error) {
	type indexed struct {
		idx int
		row interface{}
	}

	entries := make([]indexed, 0, len(m))
	for key, row := range m {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: row key %q is not an index", ErrInvalidInput, key)
		}
		entries = append(entries, indexed{idx: idx, row: row})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	results := make([]interface{}, len(entries))
	for i, entry := range entries {
		results[i] = entry.row
	}
	return results, nil
}

// AsValues returns a row as Values, nil when the row is not a mapping
func AsValues(row interface{}) (Values, bool) {
	switch v := row.(type) {
	case Values:
		return v, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(row)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		values := make(Values, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			values[iter.Key().String()] = iter.Value().Interface()
		}
		return values, true
	}
	return nil, false
}

// childValues returns the values a nested form binds. Containers receive their rows keyed by position,
// forms with an object receive a mapping.
func childValues(v interface{}, container bool) Values {
	if container {
		if rows, err := Rows(v); err == nil {
			values := make(Values, len(rows))
			for i, row := range rows {
				values[strconv.Itoa(i)] = row
			}
			return values
		}
	}

	if values, ok := AsValues(v); ok {
		return values
	}
	return Values{}
}
