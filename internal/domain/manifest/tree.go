package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// object is a JSON object that remembers key order.
type object struct {
	keys   []string
	values map[string]any
}

func newObject() *object {
	return &object{values: make(map[string]any)}
}

// get returns the value stored under key.
func (o *object) get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// set stores value under key. A key seen before keeps its position.
func (o *object) set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.values[key] = value
}

var errTrailingData = errors.New("unexpected data after the top-level value")

// decode reads exactly one JSON value from data into the ordered tree.
func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	value, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}

	if _, err = dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}

		return nil, err
	}

	return value, nil
}

// decodeValue reads the next value: *object, []any, string, json.Number, bool or nil.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := newObject()

		for dec.More() {
			keyTok, keyErr := dec.Token()
			if keyErr != nil {
				return nil, keyErr
			}

			key, isString := keyTok.(string)
			if !isString {
				return nil, fmt.Errorf("object key %v is not a string", keyTok)
			}

			value, valueErr := decodeValue(dec)
			if valueErr != nil {
				return nil, valueErr
			}

			obj.set(key, value)
		}

		if _, err = dec.Token(); err != nil {
			return nil, err
		}

		return obj, nil
	case '[':
		items := make([]any, 0)

		for dec.More() {
			item, itemErr := decodeValue(dec)
			if itemErr != nil {
				return nil, itemErr
			}

			items = append(items, item)
		}

		if _, err = dec.Token(); err != nil {
			return nil, err
		}

		return items, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", rune(delim))
	}
}

// cloneValue deep-copies a tree value.
func cloneValue(v any) any {
	switch t := v.(type) {
	case *object:
		cloned := &object{
			keys:   append([]string(nil), t.keys...),
			values: make(map[string]any, len(t.values)),
		}

		for k, child := range t.values {
			cloned.values[k] = cloneValue(child)
		}

		return cloned
	case []any:
		cloned := make([]any, len(t))
		for i, child := range t {
			cloned[i] = cloneValue(child)
		}

		return cloned
	default:
		// Strings, numbers, booleans and null are immutable.
		return t
	}
}
