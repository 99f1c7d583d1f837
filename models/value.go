package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind discriminates the variants of a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

// Value is a JSON value of unknown shape: event properties, custom profile
// attributes and paywall remote configs all arrive as free-form JSON from the
// server. It round-trips through encoding/json without losing structure.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Arr  []Value
	Obj  map[string]Value
}

func StringValue(s string) Value           { return Value{Kind: KindString, Str: s} }
func NumberValue(n float64) Value          { return Value{Kind: KindNumber, Num: n} }
func BoolValue(b bool) Value               { return Value{Kind: KindBool, Bool: b} }
func ArrayValue(items ...Value) Value      { return Value{Kind: KindArray, Arr: items} }
func ObjectValue(m map[string]Value) Value { return Value{Kind: KindObject, Obj: m} }
func NullValue() Value                     { return Value{Kind: KindNull} }

// MarshalJSON encodes the variant recursively.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindArray:
		if v.Arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Arr)
	case KindObject:
		if v.Obj == nil {
			return []byte("{}"), nil
		}
		// Deterministic key order keeps encoded payloads stable in tests.
		keys := make([]string, 0, len(v.Obj))
		for k := range v.Obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(v.Obj[k])
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

// UnmarshalJSON decodes any JSON value into the matching variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty value")
	}

	switch trimmed[0] {
	case 'n':
		*v = NullValue()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case '[':
		var arr []Value
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return err
		}
		if arr == nil {
			arr = []Value{}
		}
		*v = Value{Kind: KindArray, Arr: arr}
		return nil
	case '{':
		var obj map[string]Value
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		if obj == nil {
			obj = map[string]Value{}
		}
		*v = Value{Kind: KindObject, Obj: obj}
		return nil
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
		return nil
	}
}

// Interface converts the variant back to plain Go values, mainly for
// handing properties to user callbacks.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindArray:
		out := make([]interface{}, len(v.Arr))
		for i, item := range v.Arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.Obj))
		for k, item := range v.Obj {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}
