// Package engine implements the structured trajectory writer: a
// deterministic pattern-evaluator that turns a stream of per-step,
// multi-column tensor observations into trajectories handed to a
// downstream ColumnWriter.
package engine

// CellRef is a weak, opaque handle to one column's value at one
// (episode, step). The engine never dereferences it; only the sink's
// CreateItem does, by turning the handle back into real tensor data.
// A nil CellRef denotes a hole (no value observed for that step).
type CellRef interface{}

// Cell is one column's value for one step, or an explicit absence.
type Cell struct {
	Value   interface{}
	Present bool
}

// Value wraps v as a present cell.
func Value(v interface{}) Cell { return Cell{Value: v, Present: true} }

// Hole returns an absent cell, marking "no value for this column at this step".
func Hole() Cell { return Cell{} }

// Node selects a slice (or single element) from one column's history.
//
// Start and Stop are negative offsets from the "next position" (the index
// the next appended entry will occupy); Step is a stride. A Node is
// squeezed iff neither Start nor Step is supplied — it then selects
// exactly one cell, at offset Stop, with no leading length-1 axis.
type Node struct {
	FlatSourceIndex int32
	Start           *int32
	Stop            *int32
	Step            *uint32
}

// LeftKind enumerates the scalar a Condition compares.
type LeftKind int

const (
	LeftUnset LeftKind = iota
	LeftStepIndex
	LeftStepsSinceApplied
	LeftBufferLength
	LeftIsEndEpisode
	LeftData
)

// ComparatorKind enumerates the comparator a Condition applies to its left value.
type ComparatorKind int

const (
	CmpUnset ComparatorKind = iota
	CmpEq
	CmpNe
	CmpLe
	CmpLt
	CmpGe
	CmpGt
	CmpModEq
)

// Comparator is one condition's right-hand side.
type Comparator struct {
	Kind ComparatorKind
	// Value is the operand for Eq/Ne/Le/Lt/Ge/Gt.
	Value int64
	// Mod and ModEq are the operands for ModEq: left % Mod == ModEq.
	Mod   int64
	ModEq int64
}

func Eq(v int64) Comparator { return Comparator{Kind: CmpEq, Value: v} }
func Ne(v int64) Comparator { return Comparator{Kind: CmpNe, Value: v} }
func Le(v int64) Comparator { return Comparator{Kind: CmpLe, Value: v} }
func Lt(v int64) Comparator { return Comparator{Kind: CmpLt, Value: v} }
func Ge(v int64) Comparator { return Comparator{Kind: CmpGe, Value: v} }
func Gt(v int64) Comparator { return Comparator{Kind: CmpGt, Value: v} }
func ModEq(mod, eq int64) Comparator {
	return Comparator{Kind: CmpModEq, Mod: mod, ModEq: eq}
}

// apply evaluates the comparator against left. ModEq assumes Mod > 0, which
// Validate guarantees for any config that reaches the engine.
func (c Comparator) apply(left int64) bool {
	switch c.Kind {
	case CmpEq:
		return left == c.Value
	case CmpNe:
		return left != c.Value
	case CmpLe:
		return left <= c.Value
	case CmpLt:
		return left < c.Value
	case CmpGe:
		return left >= c.Value
	case CmpGt:
		return left > c.Value
	case CmpModEq:
		return left%c.Mod == c.ModEq
	default:
		return false
	}
}

// Condition is one predicate in a pattern's conjunction.
//
// Column is only meaningful when Left is LeftBufferLength or LeftData.
type Condition struct {
	Left   LeftKind
	Column int32
	Cmp    Comparator
}

// PatternConfig is one validated pattern: the columns it selects, the
// table and priority it submits items under, and the conjunction of
// conditions gating when it fires.
type PatternConfig struct {
	Flat       []Node
	Table      string
	Priority   float64
	Conditions []Condition
}

// TrajectoryColumn is one column of an assembled trajectory: an ordered
// list of cell references, plus whether the leading length-1 axis was
// squeezed away.
type TrajectoryColumn struct {
	Refs     []CellRef
	Squeezed bool
}
