package query

import (
	"math"
	"math/rand"

	"argusdb/internal/jsonb"
	"argusdb/internal/merge"
)

func evalFunction(e *Function, doc merge.Document) (jsonb.Value, error) {
	args := make([]jsonb.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := Eval(a, doc)
		if err != nil {
			return jsonb.Value{}, err
		}
		args[i] = v
	}
	return callFunction(e.Name, args), nil
}

// callFunction implements §4.8's function semantics: null if any argument
// is non-numeric, wrong in count, or the result is NaN/±Inf.
func callFunction(name FuncName, args []jsonb.Value) jsonb.Value {
	nums := make([]float64, len(args))
	for i, a := range args {
		f, ok := a.AsFloat64()
		if !ok {
			return jsonb.Null()
		}
		nums[i] = f
	}

	var result float64
	switch name {
	case FuncAbs:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Abs(nums[0])
	case FuncAcos:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Acos(nums[0])
	case FuncAcosh:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Acosh(nums[0])
	case FuncAsin:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Asin(nums[0])
	case FuncAtan:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Atan(nums[0])
	case FuncAtan2:
		if len(nums) != 2 {
			return jsonb.Null()
		}
		result = math.Atan2(nums[0], nums[1])
	case FuncCeil:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Ceil(nums[0])
	case FuncCos:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Cos(nums[0])
	case FuncCosh:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Cosh(nums[0])
	case FuncDiv:
		if len(nums) != 2 {
			return jsonb.Null()
		}
		if nums[1] == 0 {
			return jsonb.Null()
		}
		result = math.Trunc(nums[0] / nums[1])
	case FuncExp:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Exp(nums[0])
	case FuncFloor:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Floor(nums[0])
	case FuncLn:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Log(nums[0])
	case FuncLog:
		switch len(nums) {
		case 1:
			result = math.Log(nums[0])
		case 2:
			result = math.Log(nums[0]) / math.Log(nums[1])
		default:
			return jsonb.Null()
		}
	case FuncLog10:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Log10(nums[0])
	case FuncPow:
		if len(nums) != 2 {
			return jsonb.Null()
		}
		result = math.Pow(nums[0], nums[1])
	case FuncRand:
		if len(nums) != 0 {
			return jsonb.Null()
		}
		result = rand.Float64()
	case FuncRound:
		if len(nums) != 2 {
			return jsonb.Null()
		}
		scale := math.Pow(10, nums[1])
		result = math.Round(nums[0]*scale) / scale
	case FuncSign:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		switch {
		case nums[0] > 0:
			result = 1
		case nums[0] < 0:
			result = -1
		default:
			result = 0
		}
	case FuncSin:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Sin(nums[0])
	case FuncSinh:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Sinh(nums[0])
	case FuncSqrt:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Sqrt(nums[0])
	case FuncTan:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Tan(nums[0])
	case FuncTanh:
		if len(nums) != 1 {
			return jsonb.Null()
		}
		result = math.Tanh(nums[0])
	default:
		return jsonb.Null()
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return jsonb.Null()
	}
	return jsonb.Float64(result)
}
