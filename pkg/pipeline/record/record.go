// Package record holds the tabular shapes exchanged between pipeline stages: raw rows
// harvested from a source and the canonical rows produced by a merge.
package record

import (
	"encoding/json"
	"strings"
)

// Kind tells which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindList
)

// Value is a cell: null, a text scalar, or a list of strings.
type Value struct {
	kind Kind
	text string
	list []string
}

// Null returns the absent value.
func Null() Value { return Value{} }

// Text returns a text scalar. Use Null for absence; an empty string is still text.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// List returns a list value. The slice is copied.
func List(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsList() bool { return v.kind == KindList }
func (v Value) Text() string { return v.text }

// Items returns a copy of the list items, or nil for non-list values.
func (v Value) Items() []string {
	if v.kind != KindList {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// Empty reports whether the value carries no data: null, blank text, or an empty list.
func (v Value) Empty() bool {
	switch v.kind {
	case KindText:
		return strings.TrimSpace(v.text) == ""
	case KindList:
		return len(v.list) == 0
	default:
		return true
	}
}

// String renders the value for flat formats. Lists are joined with " | ".
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindList:
		return strings.Join(v.list, ListSeparator)
	default:
		return ""
	}
}

// ListSeparator joins list items in flat (CSV) output.
const ListSeparator = " | "

// MarshalJSON encodes null as null, text as a string and lists as arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, strings, numbers, booleans and arrays of strings.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny converts a decoded JSON value into a Value. Scalars other than strings are
// rendered with their JSON text.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case string:
		return Text(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, it := range t {
			if it == nil {
				items = append(items, "")
				continue
			}
			if s, ok := it.(string); ok {
				items = append(items, s)
				continue
			}
			b, _ := json.Marshal(it)
			items = append(items, string(b))
		}
		return List(items)
	default:
		b, _ := json.Marshal(t)
		return Text(string(b))
	}
}

// Record is an ordered mapping of field name to Value.
type Record struct {
	keys []string
	vals map[string]Value
}

// New returns an empty record.
func New() *Record {
	return &Record{vals: make(map[string]Value)}
}

// FromPairs builds a record from parallel field and value slices. Missing values are null.
func FromPairs(fields []string, values []Value) *Record {
	r := New()
	for i, f := range fields {
		if i < len(values) {
			r.Set(f, values[i])
		} else {
			r.Set(f, Null())
		}
	}
	return r
}

// Set assigns a field. New fields are appended to the key order.
func (r *Record) Set(field string, v Value) {
	if _, ok := r.vals[field]; !ok {
		r.keys = append(r.keys, field)
	}
	r.vals[field] = v
}

// Get returns the value of a field and whether the field exists.
func (r *Record) Get(field string) (Value, bool) {
	if r == nil {
		return Null(), false
	}
	v, ok := r.vals[field]
	return v, ok
}

// Value returns the field value, or null when absent.
func (r *Record) Value(field string) Value {
	v, _ := r.Get(field)
	return v
}

// Str returns the flat string form of a field; absent and null fields yield "".
func (r *Record) Str(field string) string {
	return r.Value(field).String()
}

// Has reports whether the field exists.
func (r *Record) Has(field string) bool {
	_, ok := r.Get(field)
	return ok
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	cp := make([]string, len(r.keys))
	copy(cp, r.keys)
	return cp
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone returns a copy sharing no mutable state with r.
func (r *Record) Clone() *Record {
	out := New()
	if r == nil {
		return out
	}
	for _, k := range r.keys {
		out.Set(k, r.vals[k])
	}
	return out
}

// Rename returns a copy with fields renamed through mapping; unmapped fields are kept.
func (r *Record) Rename(mapping map[string]string) *Record {
	out := New()
	for _, k := range r.Keys() {
		name := k
		if to, ok := mapping[k]; ok && to != "" {
			name = to
		}
		out.Set(name, r.vals[k])
	}
	return out
}

// MarshalJSON encodes the record as an object, preserving field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := r.vals[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		sb.Write(kb)
		sb.WriteByte(':')
		sb.Write(vb)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// Canonical is one merged row per real-world entity. It always traces back to exactly one
// anchor record; Sources lists the tags that contributed at least one field.
type Canonical struct {
	AnchorSource string
	Fields       *Record
	Sources      []string
}
