package orm

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"reflect"

	bolt "go.etcd.io/bbolt"

	"gorm.io/dynform/schema"
)

// Records live in one bucket per table, keyed by the primary key and encoded as a
// JSON object of column values.

func encodeKey(value interface{}) ([]byte, error) {
	rv := reflect.Indirect(reflect.ValueOf(value))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return nil, fmt.Errorf("%w: negative primary key %v", ErrInvalidValue, rv.Int())
		}
		return itob(uint64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return itob(rv.Uint()), nil
	case reflect.String:
		if rv.String() == "" {
			return nil, ErrPrimaryKeyRequired
		}
		return []byte(rv.String()), nil
	}
	return nil, fmt.Errorf("%w: unsupported primary key %#v", ErrInvalidValue, value)
}

// primaryKeyOf converts a looked-up key, e.g. a submitted string, to the primary field's type before encoding
func primaryKeyOf(field *schema.Field, value interface{}) ([]byte, error) {
	holder := reflect.New(field.Schema.ModelType)
	if err := field.Set(holder, value); err != nil {
		return nil, err
	}
	return encodeKey(field.ReflectValueOf(holder).Interface())
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

type record map[string]json.RawMessage

func encodeRecord(s *schema.Schema, value reflect.Value) (record, error) {
	rec := record{}
	for _, field := range s.Fields {
		if field.DBName == "" || !field.Creatable {
			continue
		}

		data, err := json.Marshal(field.ReflectValueOf(value).Interface())
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %v: %w", field.Name, err)
		}
		rec[field.DBName] = data
	}
	return rec, nil
}

func decodeRecord(s *schema.Schema, data []byte, value reflect.Value) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("failed to decode %v record: %w", s.Table, err)
	}

	for _, field := range s.Fields {
		if field.DBName == "" || !field.Readable {
			continue
		}

		if raw, ok := rec[field.DBName]; ok {
			fieldValue := field.ReflectValueOf(value)
			fieldValue.Set(reflect.Zero(fieldValue.Type()))
			if err := json.Unmarshal(raw, fieldValue.Addr().Interface()); err != nil {
				return fmt.Errorf("failed to decode field %v: %w", field.Name, err)
			}
		}
	}
	return nil
}

func (rec record) bytes() ([]byte, error) {
	return json.Marshal(map[string]json.RawMessage(rec))
}

// scan decodes every record of a table into fresh model values, stopping early when fc returns false
func scan(tx *bolt.Tx, s *schema.Schema, fc func(value reflect.Value) (bool, error)) error {
	bucket := tx.Bucket([]byte(s.Table))
	if bucket == nil {
		return nil
	}

	c := bucket.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		value := s.New()
		if err := decodeRecord(s, v, value.Elem()); err != nil {
			return err
		}
		if next, err := fc(value); err != nil || !next {
			return err
		}
	}
	return nil
}
