// Package schema accumulates the structural union schema of every document
// written to a memtable or segment. The schema object itself stays opaque
// to the query executor (§1) — it is carried along for the on-disk
// `.summary` header and never consulted during evaluation.
package schema

import (
	"sort"

	"argusdb/internal/jsonb"
)

// Type is one of the seven structural shapes a value can infer to.
// Integer and Number are kept distinct, matching an i64-valued JSON
// number against a float-valued one.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

// Summary is the accumulated schema of one or more documents: a set of
// observed top-level types plus, for objects and arrays, the recursively
// accumulated schema of their properties/items.
type Summary struct {
	Types      []Type             `json:"type"`
	Properties map[string]*Summary `json:"properties,omitempty"`
	Items      *Summary            `json:"items,omitempty"`
}

func single(t Type) *Summary {
	return &Summary{Types: []Type{t}}
}

// Infer computes the Summary of a single document value.
func Infer(v jsonb.Value) *Summary {
	switch v.Kind() {
	case jsonb.KindNull:
		return single(TypeNull)
	case jsonb.KindBool:
		return single(TypeBoolean)
	case jsonb.KindInt64, jsonb.KindUint64:
		return single(TypeInteger)
	case jsonb.KindFloat64:
		return single(TypeNumber)
	case jsonb.KindString:
		return single(TypeString)
	case jsonb.KindArray:
		items := v.Items()
		var itemsSchema *Summary
		if len(items) == 0 {
			itemsSchema = &Summary{}
		} else {
			itemsSchema = Infer(items[0])
			for _, item := range items[1:] {
				itemsSchema.Merge(Infer(item))
			}
		}
		return &Summary{Types: []Type{TypeArray}, Items: itemsSchema}
	case jsonb.KindObject:
		props := make(map[string]*Summary)
		for _, f := range v.Fields() {
			props[f.Key] = Infer(f.Value)
		}
		return &Summary{Types: []Type{TypeObject}, Properties: props}
	default:
		return &Summary{}
	}
}

// Merge folds other into s in place: the type set is unioned, properties
// are unioned key-wise (recursively merging schemas that already have the
// key), and items schemas are merged recursively.
func (s *Summary) Merge(other *Summary) {
	if other == nil {
		return
	}
	for _, t := range other.Types {
		if !s.hasType(t) {
			s.Types = append(s.Types, t)
		}
	}
	if other.Properties != nil {
		if s.Properties == nil {
			s.Properties = make(map[string]*Summary)
		}
		for key, otherSchema := range other.Properties {
			if selfSchema, ok := s.Properties[key]; ok {
				selfSchema.Merge(otherSchema)
			} else {
				s.Properties[key] = otherSchema
			}
		}
	}
	if other.Items != nil {
		if s.Items != nil {
			s.Items.Merge(other.Items)
		} else {
			s.Items = other.Items
		}
	}
}

func (s *Summary) hasType(t Type) bool {
	for _, existing := range s.Types {
		if existing == t {
			return true
		}
	}
	return false
}

// SortedPropertyNames returns the property keys in a stable order, used
// when serializing a Summary so two otherwise-identical summaries encode
// to the same bytes.
func (s *Summary) SortedPropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ToValue renders the Summary as a jsonb.Value so it can be embedded in a
// segment header, whose header is itself binary-JSON-encoded (§6).
func (s *Summary) ToValue() jsonb.Value {
	if s == nil {
		return jsonb.Null()
	}
	types := make([]jsonb.Value, len(s.Types))
	for i, t := range s.Types {
		types[i] = jsonb.String(string(t))
	}
	fields := []jsonb.Field{{Key: "type", Value: jsonb.Array(types)}}
	if s.Properties != nil {
		names := s.SortedPropertyNames()
		propFields := make([]jsonb.Field, 0, len(names))
		for _, name := range names {
			propFields = append(propFields, jsonb.Field{Key: name, Value: s.Properties[name].ToValue()})
		}
		fields = append(fields, jsonb.Field{Key: "properties", Value: jsonb.Object(propFields)})
	}
	if s.Items != nil {
		fields = append(fields, jsonb.Field{Key: "items", Value: s.Items.ToValue()})
	}
	return jsonb.Object(fields)
}

// FromValue parses a Summary back out of the jsonb.Value produced by
// ToValue, as read off a segment header.
func FromValue(v jsonb.Value) *Summary {
	if v.IsNull() || v.Kind() != jsonb.KindObject {
		return &Summary{}
	}
	s := &Summary{}
	if typesVal, ok := v.Get("type"); ok && typesVal.Kind() == jsonb.KindArray {
		for _, tv := range typesVal.Items() {
			if tv.Kind() == jsonb.KindString {
				s.Types = append(s.Types, Type(tv.Str()))
			}
		}
	}
	if propsVal, ok := v.Get("properties"); ok && propsVal.Kind() == jsonb.KindObject {
		s.Properties = make(map[string]*Summary)
		for _, f := range propsVal.Fields() {
			s.Properties[f.Key] = FromValue(f.Value)
		}
	}
	if itemsVal, ok := v.Get("items"); ok {
		s.Items = FromValue(itemsVal)
	}
	return s
}
