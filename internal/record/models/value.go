package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the runtime type of an attribute value.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindList
)

// Value is the small tagged union stored in an entry's attribute bag.
// Attribute shapes are never trusted without re-validating against the
// current field definitions, so the union stays deliberately narrow:
// string, number, bool, or list of strings.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// String constructs a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number constructs a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// List constructs a list-of-strings value.
func List(items []string) Value { return Value{Kind: KindList, List: items} }

// Text renders the value as the string used for validation, search
// projection, and display.
func (v Value) Text() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindList:
		return strings.Join(v.List, ", ")
	default:
		return v.Str
	}
}

// IsEmpty reports whether the value carries no usable data.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindList:
		for _, item := range v.List {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	case KindString:
		return strings.TrimSpace(v.Str) == ""
	default:
		return false
	}
}

// MarshalJSON writes the native JSON scalar/array for the kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON accepts any JSON scalar or array of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch typed := raw.(type) {
	case string:
		*v = String(typed)
	case float64:
		*v = Number(typed)
	case bool:
		*v = Bool(typed)
	case nil:
		*v = String("")
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprint(item))
		}
		*v = List(items)
	default:
		return fmt.Errorf("unsupported attribute value shape %T", raw)
	}
	return nil
}

// Attributes is the open attribute bag keyed by field name.
type Attributes map[string]Value
