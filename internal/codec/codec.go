// Package codec provides the body serializers used by the API client.
//
// Every codec omits null-valued object fields when encoding, so a nil
// pointer or nil interface field is never sent as an explicit null.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Codec encodes and decodes request and response bodies.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Names lists the registered codec names.
var Names = []string{"json", "sonic"}

// ByName returns the codec registered under name. An empty name selects JSON.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON{}, nil
	case "sonic":
		return Sonic{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q: must be one of %s", name, strings.Join(Names, ", "))
	}
}

type marshalFunc func(any) ([]byte, error)
type unmarshalFunc func([]byte, any) error

// omitNulls re-encodes data without null-valued object fields. Scalars and
// documents without a null object field are returned unchanged, keeping
// their field order.
func omitNulls(data []byte, marshal marshalFunc, unmarshalNumber unmarshalFunc) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return data, nil
	}
	if !bytes.Contains(trimmed, []byte("null")) || !hasNullField(trimmed) {
		return data, nil
	}
	var doc any
	if err := unmarshalNumber(trimmed, &doc); err != nil {
		return nil, err
	}
	return marshal(stripNulls(doc))
}

// hasNullField reports whether some object in data has a null value.
// Null array elements and "null" inside strings do not count.
func hasNullField(data []byte) bool {
	type frame struct{ object, wantKey bool }
	var stack []frame

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		var top *frame
		if n := len(stack); n > 0 {
			top = &stack[n-1]
		}

		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				if top != nil && top.object {
					top.wantKey = true
				}
				stack = append(stack, frame{object: d == '{', wantKey: d == '{'})
			default:
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if top == nil || !top.object {
			continue
		}
		if top.wantKey {
			top.wantKey = false
			continue
		}
		if tok == nil {
			return true
		}
		top.wantKey = true
	}
}

func stripNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, elem := range t {
			if elem == nil {
				delete(t, k)
				continue
			}
			t[k] = stripNulls(elem)
		}
		return t
	case []any:
		for i, elem := range t {
			t[i] = stripNulls(elem)
		}
		return t
	default:
		return v
	}
}
