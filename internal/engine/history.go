package engine

// historyEntry is one column observation: the step it was observed at
// (within the current episode) and its reference, or a hole.
type historyEntry struct {
	step   int
	ref    CellRef
	hasRef bool
}

// columnHistory is the append-only sequence of entries for one source
// column. It has no capacity limit: entries accumulate until reset, which
// happens only on an EndEpisode that clears buffers. Entries are strictly
// increasing in step index; a push
// for a step that matches the last entry's step (from a partial append
// augmenting the same logical step) updates that entry in place instead
// of appending a new one.
type columnHistory struct {
	entries []historyEntry
}

func (h *columnHistory) length() int { return len(h.entries) }

func (h *columnHistory) reset() { h.entries = h.entries[:0] }

// pushOrUpdate records a column observation at step. A present value
// always lands in the entry for step, creating or overwriting it. An
// absent value (a hole) only creates a new entry — it never overwrites a
// value already recorded for the same step by an earlier partial append.
func (h *columnHistory) pushOrUpdate(step int, ref CellRef, present bool) {
	if n := len(h.entries); n > 0 && h.entries[n-1].step == step {
		if present {
			h.entries[n-1] = historyEntry{step: step, ref: ref, hasRef: true}
		}
		return
	}
	h.entries = append(h.entries, historyEntry{step: step, ref: ref, hasRef: present})
}

// resolveIndices derives the (possibly strided) index sequence a node
// selects out of a column currently holding L entries, per spec: negative
// offsets are relative to the "next position" L. It returns insufficient
// if the leftmost selected index would fall before the start of the
// buffer.
func resolveIndices(node Node, l int) (idx []int, squeezed bool, insufficient bool) {
	squeezed = node.Start == nil && node.Step == nil

	if squeezed {
		// Validate guarantees Stop is set and negative whenever Start is unset.
		i := l + int(*node.Stop)
		if i < 0 {
			return nil, true, true
		}
		return []int{i}, true, false
	}

	s := l + int(*node.Start)
	if s < 0 {
		return nil, false, true
	}

	e := l
	if node.Stop != nil && *node.Stop != 0 {
		e = l + int(*node.Stop)
	}

	k := 1
	if node.Step != nil {
		k = int(*node.Step)
	}

	for i := s; i < e; i += k {
		idx = append(idx, i)
	}
	return idx, false, false
}

// resolve reads the slice a node selects. It returns ok=false if there is
// not yet enough history, or if any selected entry is a hole.
func (h *columnHistory) resolve(node Node) (refs []CellRef, squeezed bool, ok bool) {
	idx, squeezed, insufficient := resolveIndices(node, len(h.entries))
	if insufficient || len(idx) == 0 {
		return nil, squeezed, false
	}

	refs = make([]CellRef, 0, len(idx))
	for _, i := range idx {
		entry := h.entries[i]
		if !entry.hasRef {
			return nil, squeezed, false
		}
		refs = append(refs, entry.ref)
	}
	return refs, squeezed, true
}
