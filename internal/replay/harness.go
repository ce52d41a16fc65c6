package replay

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/structured-writer/internal/engine"
)

// #region memory-writer

// cellRef is the concrete CellRef handed out by MemoryWriter.
type cellRef struct{ value int }

// MemoryWriter is an in-memory ColumnWriter: it never touches disk, and
// records every submitted item for later comparison against a fixture's
// expected_items. It exists purely for replay and test harnesses.
type MemoryWriter struct {
	Items []RecordedItem

	episodeID int
	stepIndex int
}

// RecordedItem is one CreateItem call, rendered into plain Go values.
type RecordedItem struct {
	Table   string
	Columns []RecordedColumn
}

// RecordedColumn is one resolved trajectory column.
type RecordedColumn struct {
	Squeezed bool
	Values   []int
}

func (w *MemoryWriter) Append(data []engine.Cell) ([]engine.CellRef, error) {
	refs, err := w.appendInternal(data)
	w.stepIndex++
	return refs, err
}

func (w *MemoryWriter) AppendPartial(data []engine.Cell) ([]engine.CellRef, error) {
	return w.appendInternal(data)
}

func (w *MemoryWriter) appendInternal(data []engine.Cell) ([]engine.CellRef, error) {
	refs := make([]engine.CellRef, len(data))
	for i, c := range data {
		if c.Present {
			v, ok := c.Value.(int)
			if !ok {
				return nil, fmt.Errorf("column %d: expected int value, got %T", i, c.Value)
			}
			refs[i] = &cellRef{value: v}
		}
	}
	return refs, nil
}

func (w *MemoryWriter) CreateItem(table string, priority float64, trajectory []engine.TrajectoryColumn) error {
	cols := make([]RecordedColumn, len(trajectory))
	for i, col := range trajectory {
		vals := make([]int, len(col.Refs))
		for j, r := range col.Refs {
			ref, ok := r.(*cellRef)
			if !ok {
				return fmt.Errorf("column %d: unexpected cell ref type %T", i, r)
			}
			vals[j] = ref.value
		}
		cols[i] = RecordedColumn{Squeezed: col.Squeezed, Values: vals}
	}
	w.Items = append(w.Items, RecordedItem{Table: table, Columns: cols})
	return nil
}

func (w *MemoryWriter) EndEpisode(clearBuffers bool) error {
	w.episodeID++
	w.stepIndex = 0
	return nil
}

func (w *MemoryWriter) Flush(ignoreLastNumItems int, timeout time.Duration) error { return nil }

// #endregion memory-writer

// #region replay

// ReplaySummary captures the outcome of driving a fixture's step stream
// through a StructuredWriter built from its patterns.
type ReplaySummary struct {
	TotalSteps  int
	ItemsWritten []RecordedItem
}

// Replay builds a StructuredWriter from f's patterns, drives every step
// through it in order, and returns every item the patterns fired.
func Replay(f *Fixture) (ReplaySummary, error) {
	configs, err := f.ToPatternConfigs()
	if err != nil {
		return ReplaySummary{}, fmt.Errorf("convert patterns: %w", err)
	}

	mw := &MemoryWriter{}
	writer, err := engine.New(mw, configs)
	if err != nil {
		return ReplaySummary{}, fmt.Errorf("construct writer: %w", err)
	}

	for i, step := range f.Steps {
		cells := step.ToCells()
		var err error
		switch {
		case step.Partial:
			err = writer.AppendPartial(cells)
		default:
			err = writer.Append(cells)
		}
		if err != nil {
			return ReplaySummary{}, fmt.Errorf("step %d: %w", i, err)
		}
		if step.EndEpisode {
			if err := writer.EndEpisode(step.ClearBuffers); err != nil {
				return ReplaySummary{}, fmt.Errorf("step %d end episode: %w", i, err)
			}
		}
	}

	return ReplaySummary{TotalSteps: len(f.Steps), ItemsWritten: mw.Items}, nil
}

// Diff reports every mismatch between got and a fixture's expected_items,
// empty when they agree exactly, in submission order.
func Diff(got []RecordedItem, expected []FixtureExpectedItem) []string {
	var mismatches []string
	if len(got) != len(expected) {
		mismatches = append(mismatches, fmt.Sprintf("item count = %d, want %d", len(got), len(expected)))
	}
	n := len(got)
	if len(expected) < n {
		n = len(expected)
	}
	for i := 0; i < n; i++ {
		g, e := got[i], expected[i]
		if g.Table != e.Table {
			mismatches = append(mismatches, fmt.Sprintf("item %d: table = %q, want %q", i, g.Table, e.Table))
		}
		if len(g.Columns) != len(e.Columns) {
			mismatches = append(mismatches, fmt.Sprintf("item %d: column count = %d, want %d", i, len(g.Columns), len(e.Columns)))
			continue
		}
		for j := range g.Columns {
			gc, ec := g.Columns[j], e.Columns[j]
			if gc.Squeezed != ec.Squeezed {
				mismatches = append(mismatches, fmt.Sprintf("item %d column %d: squeezed = %v, want %v", i, j, gc.Squeezed, ec.Squeezed))
			}
			if !intsEqual(gc.Values, ec.Values) {
				mismatches = append(mismatches, fmt.Sprintf("item %d column %d: values = %v, want %v", i, j, gc.Values, ec.Values))
			}
		}
	}
	return mismatches
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// #endregion replay
