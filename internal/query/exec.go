package query

import (
	"context"

	"argusdb/internal/collection"
	"argusdb/internal/common"
	"argusdb/internal/jsonb"
	"argusdb/internal/merge"
)

// vectorBatchSize is the default batch size for the vectorized path
// (§4.8), shrunk when a downstream Limit implies fewer rows are needed.
const vectorBatchSize = 4096

// DB resolves a collection by name for Execute. *argusdb.Database (the
// embeddable top-level type) satisfies this.
type DB interface {
	Collection(name string) (*collection.Collection, bool)
}

// ExecutionResult is one output row: id plus a document that may still be
// backed by undecoded segment bytes (§4.8's `Value(id, V)` / `Lazy(id,
// raw)` result shapes are both just merge.Document implementations).
type ExecutionResult struct {
	ID  string
	Doc merge.Document
}

// ResultIterator streams ExecutionResults from a running plan.
type ResultIterator struct {
	next  func() (ExecutionResult, bool, error)
	close func() error
}

func (it *ResultIterator) Next() (ExecutionResult, bool, error) { return it.next() }

func (it *ResultIterator) Close() error {
	if it.close == nil {
		return nil
	}
	return it.close()
}

// Execute runs plan against db, choosing the vectorized path when the
// shape and predicate qualify (§4.8) and the row path otherwise.
func Execute(ctx context.Context, plan Plan, db DB) (*ResultIterator, error) {
	if vp, ok := tryVectorize(plan); ok {
		return executeVectorized(ctx, vp, db)
	}
	return executeRowPath(ctx, plan, db)
}

// valueDocument is a fully materialized ExecutionResult payload, used for
// rows Project has rebuilt from a projection list.
type valueDocument struct{ v jsonb.Value }

func (d valueDocument) IsTombstone() bool           { return false }
func (d valueDocument) Value() (jsonb.Value, error) { return d.v, nil }
func (d valueDocument) RawPair() ([]byte, bool)     { return nil, false }

// --- row path ---

func executeRowPath(ctx context.Context, plan Plan, db DB) (*ResultIterator, error) {
	switch p := plan.(type) {
	case *Scan:
		return scanRowSource(ctx, p, db)
	case *Filter:
		inner, err := executeRowPath(ctx, p.Input, db)
		if err != nil {
			return nil, err
		}
		return filterIterator(inner, p.Predicate), nil
	case *Project:
		inner, err := executeRowPath(ctx, p.Input, db)
		if err != nil {
			return nil, err
		}
		return projectIterator(inner, p.Projections), nil
	case *Limit:
		inner, err := executeRowPath(ctx, p.Input, db)
		if err != nil {
			return nil, err
		}
		return limitIterator(inner, p.N), nil
	case *Offset:
		inner, err := executeRowPath(ctx, p.Input, db)
		if err != nil {
			return nil, err
		}
		return offsetIterator(inner, p.N), nil
	default:
		return nil, common.New(common.ErrQuery, "unknown plan node")
	}
}

func scanRowSource(ctx context.Context, p *Scan, db DB) (*ResultIterator, error) {
	coll, ok := db.Collection(p.Collection)
	if !ok {
		return nil, common.NotFoundf("collection not found: %s", p.Collection)
	}
	cur, err := coll.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ResultIterator{
		next: func() (ExecutionResult, bool, error) {
			id, doc, ok, err := cur.Next()
			if err != nil || !ok {
				return ExecutionResult{}, false, err
			}
			return ExecutionResult{ID: id, Doc: doc}, true, nil
		},
		close: cur.Close,
	}, nil
}

// filterIterator implements scan pushdown's predicate half: the predicate
// is evaluated against each still-lazy document before Project (if any)
// forces a full decode (§4.8 "predicates can skip a document before full
// decoding").
func filterIterator(inner *ResultIterator, predicate Expr) *ResultIterator {
	return &ResultIterator{
		next: func() (ExecutionResult, bool, error) {
			for {
				r, ok, err := inner.Next()
				if err != nil || !ok {
					return ExecutionResult{}, false, err
				}
				v, err := Eval(predicate, r.Doc)
				if err != nil {
					return ExecutionResult{}, false, err
				}
				if IsTrue(v) {
					return r, true, nil
				}
			}
		},
		close: inner.Close,
	}
}

// projectIterator implements scan pushdown's projection half: each
// projection is evaluated via Eval's raw-first field access, so unused
// sibling fields of a lazy document are never decoded (§4.8 "projections
// can avoid materializing unused fields").
func projectIterator(inner *ResultIterator, projections []Projection) *ResultIterator {
	return &ResultIterator{
		next: func() (ExecutionResult, bool, error) {
			r, ok, err := inner.Next()
			if err != nil || !ok {
				return ExecutionResult{}, false, err
			}
			fields := make([]jsonb.Field, len(projections))
			for i, p := range projections {
				v, err := Eval(p.Expr, r.Doc)
				if err != nil {
					return ExecutionResult{}, false, err
				}
				fields[i] = jsonb.Field{Key: p.RawPath, Value: v}
			}
			return ExecutionResult{ID: r.ID, Doc: valueDocument{v: jsonb.Object(fields)}}, true, nil
		},
		close: inner.Close,
	}
}

func limitIterator(inner *ResultIterator, n int) *ResultIterator {
	remaining := n
	return &ResultIterator{
		next: func() (ExecutionResult, bool, error) {
			if remaining <= 0 {
				return ExecutionResult{}, false, nil
			}
			r, ok, err := inner.Next()
			if err != nil || !ok {
				return ExecutionResult{}, false, err
			}
			remaining--
			return r, true, nil
		},
		close: inner.Close,
	}
}

func offsetIterator(inner *ResultIterator, n int) *ResultIterator {
	skipped := 0
	return &ResultIterator{
		next: func() (ExecutionResult, bool, error) {
			for skipped < n {
				_, ok, err := inner.Next()
				if err != nil || !ok {
					return ExecutionResult{}, false, err
				}
				skipped++
			}
			return inner.Next()
		},
		close: inner.Close,
	}
}
