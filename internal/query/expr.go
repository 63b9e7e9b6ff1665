package query

import "argusdb/internal/jsonb"

// Expr is one node of the closed expression grammar in §4.8.
type Expr interface {
	isExpr()
}

// FieldReference is a plain dotted identifier such as `a.b.c`.
type FieldReference struct {
	RawPath string
	Steps   []jsonb.Step
}

// NewFieldReference builds a FieldReference whose step list comes from
// arena, sharing it with any other reference to the same raw path.
func NewFieldReference(arena *Arena, dotted string) *FieldReference {
	return &FieldReference{RawPath: dotted, Steps: arena.Field(dotted)}
}

// JsonPath is a `$`-rooted path expression, such as `$.tags[*]`.
type JsonPath struct {
	RawPath  string
	Compiled jsonb.CompiledPath
}

// NewJsonPath compiles text via arena and wraps the result.
func NewJsonPath(arena *Arena, text string) (*JsonPath, error) {
	cp, err := arena.Path(text)
	if err != nil {
		return nil, err
	}
	return &JsonPath{RawPath: text, Compiled: cp}, nil
}

// Literal is a constant value embedded directly in the plan.
type Literal struct {
	Value jsonb.Value
}

// CompareOp enumerates the comparison operators a Binary node can carry.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// Binary compares the result of evaluating Left and Right.
type Binary struct {
	Left  Expr
	Op    CompareOp
	Right Expr
}

// LogicalOp enumerates the boolean combinators a Logical node can carry.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

// Logical combines two boolean expressions. Both sides are always
// evaluated; short-circuiting is not required (§4.8).
type Logical struct {
	Left  Expr
	Op    LogicalOp
	Right Expr
}

// FuncName identifies one member of the closed scalar function set.
type FuncName string

const (
	FuncAbs   FuncName = "abs"
	FuncAcos  FuncName = "acos"
	FuncAcosh FuncName = "acosh"
	FuncAsin  FuncName = "asin"
	FuncAtan  FuncName = "atan"
	FuncAtan2 FuncName = "atan2"
	FuncCeil  FuncName = "ceil"
	FuncCos   FuncName = "cos"
	FuncCosh  FuncName = "cosh"
	FuncDiv   FuncName = "div"
	FuncExp   FuncName = "exp"
	FuncFloor FuncName = "floor"
	FuncLn    FuncName = "ln"
	FuncLog   FuncName = "log"
	FuncLog10 FuncName = "log10"
	FuncPow   FuncName = "pow"
	FuncRand  FuncName = "rand"
	FuncRound FuncName = "round"
	FuncSign  FuncName = "sign"
	FuncSin   FuncName = "sin"
	FuncSinh  FuncName = "sinh"
	FuncSqrt  FuncName = "sqrt"
	FuncTan   FuncName = "tan"
	FuncTanh  FuncName = "tanh"
)

// Function applies a scalar function to its evaluated arguments.
type Function struct {
	Name FuncName
	Args []Expr
}

func (*FieldReference) isExpr() {}
func (*JsonPath) isExpr()       {}
func (*Literal) isExpr()        {}
func (*Binary) isExpr()         {}
func (*Logical) isExpr()        {}
func (*Function) isExpr()       {}
