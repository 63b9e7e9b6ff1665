package query

// Plan is one node of the closed logical plan grammar in §4.8.
type Plan interface {
	isPlan()
}

// Scan reads every live document of a collection via its merged iterator
// (§4.5).
type Scan struct {
	Collection string
}

// Filter drops rows where Predicate does not evaluate to bool true.
type Filter struct {
	Input     Plan
	Predicate Expr
}

// Projection names one output field: RawPath becomes its key, evaluated
// from Expr (a FieldReference or JsonPath, per §9's open question on
// multi-valued JSON-path projections).
type Projection struct {
	RawPath string
	Expr    Expr
}

// Project rebuilds an object from Projections for every input row.
type Project struct {
	Input       Plan
	Projections []Projection
}

// Limit truncates the stream to the first N rows total.
type Limit struct {
	Input Plan
	N     int
}

// Offset discards the first N rows before yielding.
type Offset struct {
	Input Plan
	N     int
}

func (*Scan) isPlan()    {}
func (*Filter) isPlan()  {}
func (*Project) isPlan() {}
func (*Limit) isPlan()   {}
func (*Offset) isPlan()  {}
