package query

import (
	"context"

	"argusdb/internal/common"
	"argusdb/internal/jsonb"
	"argusdb/internal/merge"
)

// vectorPredicate is the one predicate shape the vectorized path accepts:
// a field reference compared against a numeric literal (§4.8).
type vectorPredicate struct {
	steps []jsonb.Step
	op    CompareOp
	value float64
}

// vectorPlan is the recognized `Limit?(Offset?(Filter?(Scan)))` shape.
type vectorPlan struct {
	collection string
	predicate  *vectorPredicate
	offset     int
	limit      int // -1 means unlimited
}

// tryVectorize recognizes the plan shape and predicate the vectorized path
// requires, returning ok=false for anything else so the caller falls back
// to the row path.
func tryVectorize(plan Plan) (vectorPlan, bool) {
	vp := vectorPlan{limit: -1}
	p := plan

	if l, ok := p.(*Limit); ok {
		vp.limit = l.N
		p = l.Input
	}
	if o, ok := p.(*Offset); ok {
		vp.offset = o.N
		p = o.Input
	}
	if f, ok := p.(*Filter); ok {
		pred, ok := vectorizablePredicate(f.Predicate)
		if !ok {
			return vectorPlan{}, false
		}
		vp.predicate = &pred
		p = f.Input
	}

	scan, ok := p.(*Scan)
	if !ok {
		return vectorPlan{}, false
	}
	vp.collection = scan.Collection
	return vp, true
}

func vectorizablePredicate(e Expr) (vectorPredicate, bool) {
	b, ok := e.(*Binary)
	if !ok {
		return vectorPredicate{}, false
	}
	fr, ok := b.Left.(*FieldReference)
	if !ok {
		return vectorPredicate{}, false
	}
	lit, ok := b.Right.(*Literal)
	if !ok {
		return vectorPredicate{}, false
	}
	f, ok := lit.Value.AsFloat64()
	if !ok {
		return vectorPredicate{}, false
	}
	return vectorPredicate{steps: fr.Steps, op: b.Op, value: f}, true
}

func compareFloat(lhs float64, op CompareOp, rhs float64) bool {
	switch op {
	case OpEq:
		return lhs == rhs
	case OpNeq:
		return lhs != rhs
	case OpLt:
		return lhs < rhs
	case OpLte:
		return lhs <= rhs
	case OpGt:
		return lhs > rhs
	case OpGte:
		return lhs >= rhs
	default:
		return false
	}
}

// extractNumeric reads the predicate's field out of doc as a float64,
// preferring doc's raw-bytes pair so sibling fields are never decoded.
func extractNumeric(doc merge.Document, steps []jsonb.Step) (float64, bool) {
	if raw, ok := doc.RawPair(); ok {
		if valueRaw, err := jsonb.PairValueRaw(raw); err == nil {
			candidates := jsonb.SelectByPath(valueRaw, steps)
			if len(candidates) != 1 {
				return 0, false
			}
			v, err := jsonb.DecodeRaw(candidates[0])
			if err != nil {
				return 0, false
			}
			return v.AsFloat64()
		}
	}
	v, err := doc.Value()
	if err != nil {
		return 0, false
	}
	fv := selectAll(v, steps)
	return fv.AsFloat64()
}

// executeVectorized implements §4.8's vectorized path: records are read in
// batches, the filter field is decoded into an aligned (values, valid)
// columnar pair, and rows are retained with a single pass over the batch.
func executeVectorized(ctx context.Context, vp vectorPlan, db DB) (*ResultIterator, error) {
	coll, ok := db.Collection(vp.collection)
	if !ok {
		return nil, common.NotFoundf("collection not found: %s", vp.collection)
	}
	cur, err := coll.Scan(ctx)
	if err != nil {
		return nil, err
	}

	batchSize := vectorBatchSize
	if vp.limit >= 0 {
		if want := vp.offset + vp.limit; want > 0 && want < batchSize {
			batchSize = want
		}
	}

	type row struct {
		id  string
		doc merge.Document
	}

	var pending []ExecutionResult
	skipped := 0
	yielded := 0
	sourceDone := false

	fillBatch := func() error {
		batch := make([]row, 0, batchSize)
		for len(batch) < batchSize {
			id, doc, ok, err := cur.Next()
			if err != nil {
				return err
			}
			if !ok {
				sourceDone = true
				break
			}
			batch = append(batch, row{id: id, doc: doc})
		}
		if len(batch) == 0 {
			return nil
		}

		var values []float64
		var valid []bool
		if vp.predicate != nil {
			values = make([]float64, len(batch))
			valid = make([]bool, len(batch))
			for i, r := range batch {
				f, ok := extractNumeric(r.doc, vp.predicate.steps)
				values[i], valid[i] = f, ok
			}
		}

		for i, r := range batch {
			if vp.predicate != nil {
				if !valid[i] || !compareFloat(values[i], vp.predicate.op, vp.predicate.value) {
					continue
				}
			}
			if skipped < vp.offset {
				skipped++
				continue
			}
			pending = append(pending, ExecutionResult{ID: r.id, Doc: r.doc})
		}
		return nil
	}

	return &ResultIterator{
		next: func() (ExecutionResult, bool, error) {
			if vp.limit >= 0 && yielded >= vp.limit {
				return ExecutionResult{}, false, nil
			}
			for len(pending) == 0 {
				if sourceDone {
					return ExecutionResult{}, false, nil
				}
				if err := fillBatch(); err != nil {
					return ExecutionResult{}, false, err
				}
				if len(pending) == 0 && sourceDone {
					return ExecutionResult{}, false, nil
				}
			}
			r := pending[0]
			pending = pending[1:]
			yielded++
			return r, true, nil
		},
		close: cur.Close,
	}, nil
}
