package ham

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind identifies the variant held by a Value.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
	ValueMap
)

// Value is a tagged variant for record metadata. It preserves the "arbitrary
// caller tags" flexibility of a dynamic map while keeping access typed.
// Values round-trip through JSON for the mirror file.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	m    map[string]Value
}

// String wraps a string value.
func String(s string) Value { return Value{kind: ValueString, str: s} }

// Number wraps a numeric value.
func Number(f float64) Value { return Value{kind: ValueNumber, num: f} }

// Bool wraps a boolean value.
func Bool(b bool) Value { return Value{kind: ValueBool, b: b} }

// Map wraps a nested metadata map.
func Map(m map[string]Value) Value { return Value{kind: ValueMap, m: m} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsString() (string, bool) { return v.str, v.kind == ValueString }

func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == ValueNumber }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == ValueBool }

func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == ValueMap }

// Equal reports deep equality, used by exact-match metadata filters.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueString:
		return v.str == o.str
	case ValueNumber:
		return v.num == o.num
	case ValueBool:
		return v.b == o.b
	case ValueMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, vv := range v.m {
			ov, ok := o.m[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders a display form. Maps render with sorted keys so the output
// is deterministic for keyword scans.
func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%s=%s", k, v.m[k].String())
		}
		sb.WriteByte('}')
		return sb.String()
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.b)
	case ValueMap:
		return json.Marshal(v.m)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

// fromAny converts a decoded JSON value into the variant type. Shapes outside
// the variant set (arrays, null) collapse to their string rendering so a
// hand-edited mirror file still loads.
func fromAny(raw any) Value {
	switch t := raw.(type) {
	case string:
		return String(t)
	case float64:
		return Number(t)
	case bool:
		return Bool(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, vv := range t {
			m[k] = fromAny(vv)
		}
		return Map(m)
	case nil:
		return String("")
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Metadata is an ordered-by-key string->Value map attached to every record.
type Metadata map[string]Value

// Clone returns a deep copy. Clone of nil returns an empty, writable map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		if sub, ok := v.AsMap(); ok {
			cp := make(map[string]Value, len(sub))
			for sk, sv := range sub {
				cp[sk] = sv
			}
			v = Map(cp)
		}
		out[k] = v
	}
	return out
}

// BoolAt returns the boolean at key, or false when absent or non-boolean.
func (m Metadata) BoolAt(key string) bool {
	b, _ := m[key].AsBool()
	return b
}

// NumberAt returns the number at key and whether it was present and numeric.
func (m Metadata) NumberAt(key string) (float64, bool) {
	return m[key].AsNumber()
}

// StringAt returns the string at key, or "" when absent or non-string.
func (m Metadata) StringAt(key string) string {
	s, _ := m[key].AsString()
	return s
}

// flatten renders the whole map, keys included, as a single lowercase string.
// Query keyword matching is a case-insensitive substring check against this.
func (m Metadata) flatten() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(m[k].String())
	}
	return strings.ToLower(sb.String())
}
