// Package query implements the logical plan, expression language, and two
// execution strategies (row-at-a-time and vectorized) described in §4.8.
package query

import "argusdb/internal/jsonb"

// Arena interns the step slices and compiled paths a query's expressions
// reference, so building several FieldReference/JsonPath nodes over the
// same raw path string shares one parse rather than re-splitting it per
// expression (§9 "Expression lifetimes via arena allocation"). An Arena is
// scoped to one plan construction; it is not safe for concurrent use.
type Arena struct {
	fields map[string][]jsonb.Step
	paths  map[string]jsonb.CompiledPath
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{
		fields: make(map[string][]jsonb.Step),
		paths:  make(map[string]jsonb.CompiledPath),
	}
}

// Field returns the step list for a dotted field path, splitting and
// caching it on first use.
func (a *Arena) Field(dotted string) []jsonb.Step {
	if steps, ok := a.fields[dotted]; ok {
		return steps
	}
	steps := jsonb.FieldPath(dotted)
	a.fields[dotted] = steps
	return steps
}

// Path compiles and caches a `$`-rooted JSON-path expression.
func (a *Arena) Path(text string) (jsonb.CompiledPath, error) {
	if cp, ok := a.paths[text]; ok {
		return cp, nil
	}
	cp, err := jsonb.Compile(text)
	if err != nil {
		return jsonb.CompiledPath{}, err
	}
	a.paths[text] = cp
	return cp, nil
}
