package node

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSyntax wraps every Parse failure.
var ErrSyntax = errors.New("invalid json")

// Marshal renders n as JSON text. A non-empty indent pretty-prints with one
// level of indent per nesting depth. Object members keep their order.
func Marshal(n *Node, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, n, indent, 0); err != nil {
		return nil, err
	}

	if indent != "" {
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

func write(buf *bytes.Buffer, n *Node, indent string, depth int) error {
	switch n.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if n.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(n.text)
	case KindString:
		return writeString(buf, n.text)
	case KindArray:
		if len(n.items) == 0 {
			buf.WriteString("[]")
			return nil
		}

		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			if err := write(buf, item, indent, depth+1); err != nil {
				return err
			}
		}
		newline(buf, indent, depth)
		buf.WriteByte(']')
	case KindObject:
		if len(n.keys) == 0 {
			buf.WriteString("{}")
			return nil
		}

		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			if err := write(buf, n.fields[k], indent, depth+1); err != nil {
				return err
			}
		}
		newline(buf, indent, depth)
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node kind %d", n.Kind())
	}

	return nil
}

func newline(buf *bytes.Buffer, indent string, depth int) {
	if indent == "" {
		return
	}

	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(indent, depth))
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer

	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}

	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))

	return nil
}

// Parse reads exactly one JSON value. Duplicate object members: the last one wins.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := parseValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after top-level value", ErrSyntax)
	}

	return n, nil
}

func parseValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String())
	case json.Delim:
		switch t {
		case '[':
			arr := Array()
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Append(item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}

			return arr, nil
		case '{':
			obj := Object()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key %v is not a string", keyTok)
				}
				value, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}

			return obj, nil
		}
	}

	return nil, fmt.Errorf("unexpected token %v", tok)
}
