package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const indentUnit = "  "

var errUnsupportedValue = errors.New("unsupported manifest value")

// encode renders a tree value as indented JSON. json.MarshalIndent cannot be
// used directly because it sorts map keys; the tree is walked by hand and
// only strings go through the json package.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, 0); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any, depth int) error {
	switch t := v.(type) {
	case *object:
		return encodeObject(buf, t, depth)
	case []any:
		return encodeArray(buf, t, depth)
	case string:
		return encodeString(buf, t)
	case json.Number:
		// Numbers keep their source text so 1.0 stays 1.0.
		buf.WriteString(t.String())
	case bool:
		fmt.Fprintf(buf, "%t", t)
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("%w: %T", errUnsupportedValue, v)
	}

	return nil
}

func encodeObject(buf *bytes.Buffer, o *object, depth int) error {
	if len(o.keys) == 0 {
		buf.WriteString("{}")
		return nil
	}

	buf.WriteString("{\n")

	for i, key := range o.keys {
		writeIndent(buf, depth+1)

		if err := encodeString(buf, key); err != nil {
			return err
		}

		buf.WriteString(": ")

		if err := encodeValue(buf, o.values[key], depth+1); err != nil {
			return err
		}

		if i+1 < len(o.keys) {
			buf.WriteByte(',')
		}

		buf.WriteByte('\n')
	}

	writeIndent(buf, depth)
	buf.WriteByte('}')

	return nil
}

func encodeArray(buf *bytes.Buffer, items []any, depth int) error {
	if len(items) == 0 {
		buf.WriteString("[]")
		return nil
	}

	buf.WriteString("[\n")

	for i, item := range items {
		writeIndent(buf, depth+1)

		if err := encodeValue(buf, item, depth+1); err != nil {
			return err
		}

		if i+1 < len(items) {
			buf.WriteByte(',')
		}

		buf.WriteByte('\n')
	}

	writeIndent(buf, depth)
	buf.WriteByte(']')

	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer

	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode string: %w", err)
	}

	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))

	return nil
}

func writeIndent(buf *bytes.Buffer, depth int) {
	buf.WriteString(strings.Repeat(indentUnit, depth))
}
