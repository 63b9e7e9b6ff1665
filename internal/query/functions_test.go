package query

import (
	"math"
	"testing"

	"argusdb/internal/jsonb"

	"github.com/stretchr/testify/assert"
)

func TestCallFunctionArithmetic(t *testing.T) {
	v := callFunction(FuncAbs, []jsonb.Value{jsonb.Int64(-4)})
	assert.Equal(t, float64(4), v.Float64())

	v = callFunction(FuncPow, []jsonb.Value{jsonb.Int64(2), jsonb.Int64(10)})
	assert.Equal(t, float64(1024), v.Float64())

	v = callFunction(FuncSqrt, []jsonb.Value{jsonb.Int64(16)})
	assert.Equal(t, float64(4), v.Float64())
}

func TestCallFunctionDivTruncatesTowardZero(t *testing.T) {
	v := callFunction(FuncDiv, []jsonb.Value{jsonb.Int64(-7), jsonb.Int64(2)})
	assert.Equal(t, float64(-3), v.Float64())

	v = callFunction(FuncDiv, []jsonb.Value{jsonb.Int64(7), jsonb.Int64(0)})
	assert.True(t, v.IsNull())
}

func TestCallFunctionRoundHalvesAwayFromZero(t *testing.T) {
	v := callFunction(FuncRound, []jsonb.Value{jsonb.Float64(2.345), jsonb.Int64(2)})
	assert.InDelta(t, 2.35, v.Float64(), 1e-9)

	v = callFunction(FuncRound, []jsonb.Value{jsonb.Float64(-2.5), jsonb.Int64(0)})
	assert.Equal(t, float64(-3), v.Float64())
}

func TestCallFunctionLogBaseAndNatural(t *testing.T) {
	v := callFunction(FuncLog, []jsonb.Value{jsonb.Float64(math.E)})
	assert.InDelta(t, 1.0, v.Float64(), 1e-9)

	v = callFunction(FuncLog, []jsonb.Value{jsonb.Int64(8), jsonb.Int64(2)})
	assert.InDelta(t, 3.0, v.Float64(), 1e-9)
}

func TestCallFunctionNonNumericArgIsNull(t *testing.T) {
	v := callFunction(FuncAbs, []jsonb.Value{jsonb.String("x")})
	assert.True(t, v.IsNull())
}

func TestCallFunctionWrongArityIsNull(t *testing.T) {
	v := callFunction(FuncAbs, []jsonb.Value{jsonb.Int64(1), jsonb.Int64(2)})
	assert.True(t, v.IsNull())
}

func TestCallFunctionNaNResultIsNull(t *testing.T) {
	v := callFunction(FuncAcos, []jsonb.Value{jsonb.Float64(2)})
	assert.True(t, v.IsNull())
}

func TestCallFunctionSign(t *testing.T) {
	assert.Equal(t, float64(1), callFunction(FuncSign, []jsonb.Value{jsonb.Int64(5)}).Float64())
	assert.Equal(t, float64(-1), callFunction(FuncSign, []jsonb.Value{jsonb.Int64(-5)}).Float64())
	assert.Equal(t, float64(0), callFunction(FuncSign, []jsonb.Value{jsonb.Int64(0)}).Float64())
}

func TestCallFunctionRand(t *testing.T) {
	v := callFunction(FuncRand, nil)
	f := v.Float64()
	assert.GreaterOrEqual(t, f, 0.0)
	assert.Less(t, f, 1.0)
}
