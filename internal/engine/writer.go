package engine

import (
	"fmt"
	"time"
)

// ColumnWriter is the external collaborator that owns chunking, reference
// management, network transmission, and the item sink. The engine only
// ever calls it through this interface; everything it returns is held by
// weak observation.
type ColumnWriter interface {
	// Append records one full step's worth of per-column data and returns
	// a parallel slice of references (nil where data[i] is absent).
	Append(data []Cell) ([]CellRef, error)
	// AppendPartial records data for the current logical step without
	// advancing the sink's own step counter.
	AppendPartial(data []Cell) ([]CellRef, error)
	// CreateItem submits one trajectory under table at priority.
	CreateItem(table string, priority float64, trajectory []TrajectoryColumn) error
	// EndEpisode closes out the current episode, optionally discarding
	// buffered-but-unflushed chunker state.
	EndEpisode(clearBuffers bool) error
	// Flush blocks until all but the last ignoreLastNumItems items have
	// been confirmed written, or timeout elapses.
	Flush(ignoreLastNumItems int, timeout time.Duration) error
}

// patternState is one configured pattern plus the mutable counter the
// engine tracks for it.
type patternState struct {
	cfg               PatternConfig
	stepsSinceApplied uint64
}

// FiringLogger observes the outcome of every firing pass, fired or not.
// reason is empty when fired is true, and otherwise one of
// "condition_not_met" or "selection_unavailable" (insufficient history,
// or a hole in a selected cell).
type FiringLogger interface {
	LogFiring(episodeID, stepIndex int64, table string, fired bool, reason string, isEndEpisode bool) error
}

// StructuredWriter is the pattern executor / trajectory builder: it
// ingests per-step column data, evaluates every configured pattern on
// each append, and forwards fired trajectories to sink.
type StructuredWriter struct {
	sink      ColumnWriter
	logger    FiringLogger
	patterns  []patternState
	histories map[int32]*columnHistory

	episodeID uint64
	stepIndex uint64
}

// Option configures a StructuredWriter at construction time.
type Option func(*StructuredWriter)

// WithFiringLogger attaches a FiringLogger that observes every firing
// pass outcome.
func WithFiringLogger(logger FiringLogger) Option {
	return func(w *StructuredWriter) { w.logger = logger }
}

// New validates every pattern and constructs a StructuredWriter wired to
// sink. It returns the first validation failure encountered, fail-fast,
// before any data is admitted.
func New(sink ColumnWriter, configs []PatternConfig, opts ...Option) (*StructuredWriter, error) {
	for i, cfg := range configs {
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
	}

	w := &StructuredWriter{
		sink:      sink,
		histories: make(map[int32]*columnHistory),
	}
	for _, cfg := range configs {
		w.patterns = append(w.patterns, patternState{cfg: cfg})
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *StructuredWriter) history(column int32) *columnHistory {
	h, ok := w.histories[column]
	if !ok {
		h = &columnHistory{}
		w.histories[column] = h
	}
	return h
}

// Append pushes one full step across all columns, then runs a firing pass
// for every configured pattern, then advances step_index_in_episode.
func (w *StructuredWriter) Append(data []Cell) error {
	refs, err := w.sink.Append(data)
	if err != nil {
		return err
	}
	w.pushStep(data, refs)
	if err := w.firingPasses(false); err != nil {
		return err
	}
	w.stepIndex++
	return nil
}

// AppendPartial pushes data for the current logical step without
// advancing step_index_in_episode, so a later AppendPartial or Append can
// augment the same step with additional columns.
func (w *StructuredWriter) AppendPartial(data []Cell) error {
	refs, err := w.sink.AppendPartial(data)
	if err != nil {
		return err
	}
	w.pushStep(data, refs)
	return w.firingPasses(false)
}

func (w *StructuredWriter) pushStep(data []Cell, refs []CellRef) {
	step := int(w.stepIndex)
	for i, cell := range data {
		w.history(int32(i)).pushOrUpdate(step, refs[i], cell.Present)
	}
}

// EndEpisode runs one end-of-episode firing pass, optionally clears every
// column history, then forwards the call to the sink and, once the sink
// accepts it, rolls the episode counter over.
func (w *StructuredWriter) EndEpisode(clearBuffers bool) error {
	if err := w.firingPasses(true); err != nil {
		return err
	}
	if clearBuffers {
		for _, h := range w.histories {
			h.reset()
		}
	}
	if err := w.sink.EndEpisode(clearBuffers); err != nil {
		return err
	}
	w.episodeID++
	w.stepIndex = 0
	return nil
}

// Flush delegates to the sink unchanged.
func (w *StructuredWriter) Flush(ignoreLastNumItems int, timeout time.Duration) error {
	return w.sink.Flush(ignoreLastNumItems, timeout)
}

func (w *StructuredWriter) firingPasses(isEndEpisode bool) error {
	for i := range w.patterns {
		if err := w.fireOne(&w.patterns[i], isEndEpisode); err != nil {
			return err
		}
	}
	return nil
}

// fireOne evaluates one pattern's conditions and, if they all hold,
// resolves its nodes and submits the assembled trajectory. A pattern
// whose guard conditions pass but whose slice resolution still comes up
// short (a hole, or insufficient history) does not fire and its counter
// is left at the value it had entering the pass. A hole in a selected
// entry (partial data) reaches this path even with a validated
// buffer-length guard.
//
// steps_since_applied is incremented before the condition check on every
// firing pass, then reset to zero on a fire, or restored on a pass whose
// selection comes up short. So it reads as "how many passes since the
// last time this pattern applied", starting at 1 on the very first pass.
func (w *StructuredWriter) fireOne(p *patternState, isEndEpisode bool) error {
	p.stepsSinceApplied++

	ctx := evalContext{
		stepIndex:         int64(w.stepIndex),
		stepsSinceApplied: int64(p.stepsSinceApplied),
		isEndEpisode:      isEndEpisode,
		bufferLength: func(column int32) int64 {
			return int64(w.history(column).length())
		},
		data: func(column int32) (int64, bool) {
			return 0, false
		},
	}

	if !evaluateAll(p.cfg.Conditions, ctx) {
		return w.logFiring(p, false, "condition_not_met", isEndEpisode)
	}

	trajectory := make([]TrajectoryColumn, 0, len(p.cfg.Flat))
	for _, node := range p.cfg.Flat {
		refs, squeezed, ok := w.history(node.FlatSourceIndex).resolve(node)
		if !ok {
			p.stepsSinceApplied--
			return w.logFiring(p, false, "selection_unavailable", isEndEpisode)
		}
		trajectory = append(trajectory, TrajectoryColumn{Refs: refs, Squeezed: squeezed})
	}

	if err := w.sink.CreateItem(p.cfg.Table, p.cfg.Priority, trajectory); err != nil {
		return err
	}
	p.stepsSinceApplied = 0
	return w.logFiring(p, true, "", isEndEpisode)
}

func (w *StructuredWriter) logFiring(p *patternState, fired bool, reason string, isEndEpisode bool) error {
	if w.logger == nil {
		return nil
	}
	return w.logger.LogFiring(int64(w.episodeID), int64(w.stepIndex), p.cfg.Table, fired, reason, isEndEpisode)
}
