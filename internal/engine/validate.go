package engine

import "fmt"

// Validate checks a single pattern configuration and returns a precise
// InvalidArgument-style error if it violates any structural constraint.
// Validate is pure: it never inspects engine state or appended data.
func Validate(cfg PatternConfig) error {
	if len(cfg.Flat) == 0 {
		return fmt.Errorf("`flat` must not be empty.")
	}

	for _, node := range cfg.Flat {
		if node.FlatSourceIndex < 0 {
			return fmt.Errorf("`flat_source_index` must be >= 0 but got %d.", node.FlatSourceIndex)
		}
		if node.Start == nil && node.Stop == nil {
			return fmt.Errorf("At least one of `start` and `stop` must be specified.")
		}
		if node.Start != nil && *node.Start >= 0 {
			return fmt.Errorf("`start` must be < 0 but got %d.", *node.Start)
		}
		if node.Stop != nil {
			if node.Start == nil && *node.Stop >= 0 {
				return fmt.Errorf("`stop` must be < 0 when `start` isn't set but got %d.", *node.Stop)
			}
			if node.Start != nil && *node.Stop > 0 {
				return fmt.Errorf("`stop` must be <= 0 but got %d.", *node.Stop)
			}
		}
		if node.Start != nil && node.Stop != nil && *node.Stop <= *node.Start {
			return fmt.Errorf("`stop` (%d) must be > `start` (%d) when both are specified.", *node.Stop, *node.Start)
		}
		if node.Step != nil {
			if node.Start == nil {
				return fmt.Errorf("`step` must only be set when `start` is set.")
			}
			if int32(*node.Step) <= 0 {
				return fmt.Errorf("`step` must be > 0 but got %d.", int32(*node.Step))
			}
		}
	}

	if cfg.Table == "" {
		return fmt.Errorf("`table` must not be empty.")
	}
	if cfg.Priority < 0 {
		return fmt.Errorf("`priority` must be >= 0 but got %.1f", cfg.Priority)
	}

	for _, cond := range cfg.Conditions {
		if cond.Left == LeftUnset {
			return fmt.Errorf("Conditions must specify a value for `left`.")
		}
		if cond.Cmp.Kind == CmpModEq {
			if cond.Cmp.Mod <= 0 {
				return fmt.Errorf("`mod_eq.mod` must be > 0 but got %d.", cond.Cmp.Mod)
			}
			if cond.Cmp.ModEq < 0 {
				return fmt.Errorf("`mod_eq.eq` must be >= 0 but got %d.", cond.Cmp.ModEq)
			}
		}
		if cond.Cmp.Kind == CmpUnset {
			return fmt.Errorf("Conditions must specify a value for `cmp`.")
		}
		if cond.Left == LeftIsEndEpisode {
			if cond.Cmp.Kind != CmpEq || cond.Cmp.Value != 1 {
				return fmt.Errorf("Condition must use `eq=1` when using `is_end_episode`")
			}
		}
	}

	required := requiredBufferLength(cfg.Flat)
	if !hasSufficientBufferLengthGuard(cfg.Conditions, required) {
		return fmt.Errorf(
			"Config does not contain required buffer length condition; need a `buffer_length` "+
				"condition with a lower bound >= %d given the node offsets in this pattern.", required)
	}

	return nil
}

// requiredBufferLength computes R = max over nodes of |min(start, stop)|,
// treating an unset bound as 0.
func requiredBufferLength(nodes []Node) int64 {
	var r int64
	for _, n := range nodes {
		var start, stop int64
		if n.Start != nil {
			start = int64(*n.Start)
		}
		if n.Stop != nil {
			stop = int64(*n.Stop)
		}
		m := start
		if stop < m {
			m = stop
		}
		if m < 0 {
			m = -m
		} else {
			m = 0
		}
		if m > r {
			r = m
		}
	}
	return r
}

// hasSufficientBufferLengthGuard reports whether conditions contains a
// buffer_length condition whose comparator implies a lower bound >= required.
func hasSufficientBufferLengthGuard(conditions []Condition, required int64) bool {
	for _, cond := range conditions {
		if cond.Left != LeftBufferLength {
			continue
		}
		bound, ok := impliedLowerBound(cond.Cmp)
		if ok && bound >= required {
			return true
		}
	}
	return false
}

// impliedLowerBound reports the minimum value a comparator guarantees its
// left operand is at least, if any. Only comparators that exclude all
// values below some threshold qualify as guards.
func impliedLowerBound(cmp Comparator) (int64, bool) {
	switch cmp.Kind {
	case CmpGe:
		return cmp.Value, true
	case CmpGt:
		return cmp.Value + 1, true
	case CmpEq:
		return cmp.Value, true
	default:
		return 0, false
	}
}
