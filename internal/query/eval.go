package query

import (
	"argusdb/internal/jsonb"
	"argusdb/internal/merge"
)

// Eval evaluates expr against doc. Field access prefers doc's raw-bytes
// path and decodes only the matched slice, per §9's "evaluation of a
// FieldReference should use the raw-bytes path first and decode only the
// matched slice" — it falls back to doc.Value() when doc carries no raw
// pair (e.g. a memtable-backed document).
func Eval(expr Expr, doc merge.Document) (jsonb.Value, error) {
	switch e := expr.(type) {
	case *Literal:
		return e.Value, nil
	case *FieldReference:
		return evalSteps(doc, e.Steps)
	case *JsonPath:
		return evalSteps(doc, e.Compiled.Steps)
	case *Binary:
		return evalBinary(e, doc)
	case *Logical:
		return evalLogical(e, doc)
	case *Function:
		return evalFunction(e, doc)
	default:
		return jsonb.Null(), nil
	}
}

// IsTrue reports whether an evaluated predicate result counts as a filter
// match: only the boolean literal true does (§4.8 "Filter drops rows where
// the predicate does not evaluate to bool true").
func IsTrue(v jsonb.Value) bool {
	return v.Kind() == jsonb.KindBool && v.Bool()
}

func evalSteps(doc merge.Document, steps []jsonb.Step) (jsonb.Value, error) {
	if raw, ok := doc.RawPair(); ok {
		if valueRaw, err := jsonb.PairValueRaw(raw); err == nil {
			candidates := jsonb.SelectByPath(valueRaw, steps)
			if len(candidates) == 0 {
				return jsonb.Null(), nil
			}
			if len(candidates) == 1 {
				return jsonb.DecodeRaw(candidates[0])
			}
			values := make([]jsonb.Value, len(candidates))
			for i, c := range candidates {
				v, err := jsonb.DecodeRaw(c)
				if err != nil {
					return jsonb.Value{}, err
				}
				values[i] = v
			}
			return jsonb.Array(values), nil
		}
	}
	v, err := doc.Value()
	if err != nil {
		return jsonb.Value{}, err
	}
	return selectAll(v, steps), nil
}

// selectAll walks steps over an already-decoded value. A single match
// returns that value directly; a wildcard/multi-match step that leaves
// more than one candidate returns them as a jsonb array (§9: "the source
// places the array under the raw path string as a single object key").
func selectAll(v jsonb.Value, steps []jsonb.Step) jsonb.Value {
	current := []jsonb.Value{v}
	for _, step := range steps {
		var next []jsonb.Value
		for _, c := range current {
			switch step.Kind {
			case jsonb.StepField:
				if fv, ok := c.Get(step.Field); ok {
					next = append(next, fv)
				}
			case jsonb.StepIndex:
				if fv, ok := c.Index(step.Index); ok {
					next = append(next, fv)
				}
			case jsonb.StepWildcard:
				next = append(next, c.Items()...)
			}
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	switch len(current) {
	case 0:
		return jsonb.Null()
	case 1:
		return current[0]
	default:
		return jsonb.Array(current)
	}
}

func evalBinary(e *Binary, doc merge.Document) (jsonb.Value, error) {
	l, err := Eval(e.Left, doc)
	if err != nil {
		return jsonb.Value{}, err
	}
	r, err := Eval(e.Right, doc)
	if err != nil {
		return jsonb.Value{}, err
	}

	switch e.Op {
	case OpEq:
		return jsonb.Bool(jsonb.Equal(l, r)), nil
	case OpNeq:
		return jsonb.Bool(!jsonb.Equal(l, r)), nil
	default:
		lf, lok := l.AsFloat64()
		rf, rok := r.AsFloat64()
		if !lok || !rok {
			// Comparisons on mixed types return false rather than error.
			return jsonb.Bool(false), nil
		}
		switch e.Op {
		case OpLt:
			return jsonb.Bool(lf < rf), nil
		case OpLte:
			return jsonb.Bool(lf <= rf), nil
		case OpGt:
			return jsonb.Bool(lf > rf), nil
		case OpGte:
			return jsonb.Bool(lf >= rf), nil
		}
		return jsonb.Bool(false), nil
	}
}

func evalLogical(e *Logical, doc merge.Document) (jsonb.Value, error) {
	l, err := Eval(e.Left, doc)
	if err != nil {
		return jsonb.Value{}, err
	}
	r, err := Eval(e.Right, doc)
	if err != nil {
		return jsonb.Value{}, err
	}
	lb, rb := IsTrue(l), IsTrue(r)
	switch e.Op {
	case OpAnd:
		return jsonb.Bool(lb && rb), nil
	case OpOr:
		return jsonb.Bool(lb || rb), nil
	default:
		return jsonb.Bool(false), nil
	}
}
