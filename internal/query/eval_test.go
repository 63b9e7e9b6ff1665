package query

import (
	"testing"

	"argusdb/internal/jsonb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docWith(fields ...jsonb.Field) valueDocument {
	return valueDocument{v: jsonb.Object(fields)}
}

func TestEvalFieldReferenceMissingIsNull(t *testing.T) {
	arena := NewArena()
	ref := NewFieldReference(arena, "missing")
	doc := docWith(jsonb.Field{Key: "a", Value: jsonb.Int64(1)})

	v, err := Eval(ref, doc)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestEvalBinaryComparisons(t *testing.T) {
	arena := NewArena()
	ref := NewFieldReference(arena, "a")
	doc := docWith(jsonb.Field{Key: "a", Value: jsonb.Int64(10)})

	gt := &Binary{Left: ref, Op: OpGt, Right: &Literal{Value: jsonb.Int64(5)}}
	v, err := Eval(gt, doc)
	require.NoError(t, err)
	assert.True(t, IsTrue(v))

	eq := &Binary{Left: ref, Op: OpEq, Right: &Literal{Value: jsonb.Int64(10)}}
	v, err = Eval(eq, doc)
	require.NoError(t, err)
	assert.True(t, IsTrue(v))
}

func TestEvalBinaryMixedTypesCompareFalse(t *testing.T) {
	arena := NewArena()
	ref := NewFieldReference(arena, "a")
	doc := docWith(jsonb.Field{Key: "a", Value: jsonb.String("ten")})

	lt := &Binary{Left: ref, Op: OpLt, Right: &Literal{Value: jsonb.Int64(5)}}
	v, err := Eval(lt, doc)
	require.NoError(t, err)
	assert.False(t, IsTrue(v))
}

func TestEvalLogicalBothSidesEvaluated(t *testing.T) {
	doc := docWith(jsonb.Field{Key: "a", Value: jsonb.Int64(1)})
	and := &Logical{
		Left:  &Literal{Value: jsonb.Bool(true)},
		Op:    OpAnd,
		Right: &Literal{Value: jsonb.Bool(false)},
	}
	v, err := Eval(and, doc)
	require.NoError(t, err)
	assert.False(t, IsTrue(v))

	or := &Logical{Left: and.Left, Op: OpOr, Right: and.Right}
	v, err = Eval(or, doc)
	require.NoError(t, err)
	assert.True(t, IsTrue(v))
}

func TestEvalFunctionNode(t *testing.T) {
	fn := &Function{Name: FuncAbs, Args: []Expr{&Literal{Value: jsonb.Int64(-3)}}}
	v, err := Eval(fn, docWith())
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.Float64())
}

func TestEvalJsonPathWildcard(t *testing.T) {
	arena := NewArena()
	jp, err := NewJsonPath(arena, "$.tags[*]")
	require.NoError(t, err)
	doc := docWith(jsonb.Field{Key: "tags", Value: jsonb.Array([]jsonb.Value{jsonb.String("x"), jsonb.String("y")})})

	v, err := Eval(jp, doc)
	require.NoError(t, err)
	require.Equal(t, jsonb.KindArray, v.Kind())
	items := v.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "x", items[0].Str())
	assert.Equal(t, "y", items[1].Str())
}

func TestEvalJsonPathSingleMatchIsUnwrapped(t *testing.T) {
	arena := NewArena()
	jp, err := NewJsonPath(arena, "$.tags[*]")
	require.NoError(t, err)
	doc := docWith(jsonb.Field{Key: "tags", Value: jsonb.Array([]jsonb.Value{jsonb.String("x")})})

	v, err := Eval(jp, doc)
	require.NoError(t, err)
	assert.Equal(t, "x", v.Str())
}
