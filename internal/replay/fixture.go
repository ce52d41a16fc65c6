package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/structured-writer/internal/engine"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a set of
// pattern configs plus a step stream to drive them with.
type Fixture struct {
	Description   string                `json:"description"`
	Patterns      []FixturePattern      `json:"patterns"`
	Steps         []FixtureStep         `json:"steps"`
	ExpectedItems []FixtureExpectedItem `json:"expected_items"`
}

// FixtureNode mirrors engine.Node with JSON tags.
type FixtureNode struct {
	FlatSourceIndex int32   `json:"flat_source_index"`
	Start           *int32  `json:"start,omitempty"`
	Stop            *int32  `json:"stop,omitempty"`
	Step            *uint32 `json:"step,omitempty"`
}

// FixtureComparator mirrors engine.Comparator with a named kind instead
// of the internal enum.
type FixtureComparator struct {
	Kind  string `json:"kind"`
	Value int64  `json:"value,omitempty"`
	Mod   int64  `json:"mod,omitempty"`
	ModEq int64  `json:"mod_eq,omitempty"`
}

// FixtureCondition mirrors engine.Condition with a named left selector.
type FixtureCondition struct {
	Left   string            `json:"left"`
	Column int32             `json:"column,omitempty"`
	Cmp    FixtureComparator `json:"cmp"`
}

// FixturePattern mirrors engine.PatternConfig with JSON tags.
type FixturePattern struct {
	Flat       []FixtureNode      `json:"flat"`
	Table      string             `json:"table"`
	Priority   float64            `json:"priority"`
	Conditions []FixtureCondition `json:"conditions"`
}

// FixtureStep is one call into the writer: a parallel list of per-column
// values (nil meaning a hole), whether it is a partial append, and
// whether it closes the episode.
type FixtureStep struct {
	Values       []*int `json:"values"`
	Partial      bool   `json:"partial,omitempty"`
	EndEpisode   bool   `json:"end_episode,omitempty"`
	ClearBuffers bool   `json:"clear_buffers,omitempty"`
}

// FixtureExpectedItem is one expected CreateItem call, in submission order.
type FixtureExpectedItem struct {
	Table   string                   `json:"table"`
	Columns []FixtureExpectedColumn `json:"columns"`
}

// FixtureExpectedColumn is one expected trajectory column.
type FixtureExpectedColumn struct {
	Squeezed bool  `json:"squeezed"`
	Values   []int `json:"values"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// patternConfigFile is the on-disk shape of a standalone pattern config
// file, as opposed to a full replay fixture: just the patterns a production
// run is configured with, no recorded steps or expected_items.
type patternConfigFile struct {
	Patterns []FixturePattern `json:"patterns"`
}

// LoadPatternConfigs reads a JSON file containing only a "patterns" array
// and converts it directly to engine.PatternConfig values, for production
// ingestion where there is no recorded step stream or expected_items to
// carry alongside the config.
func LoadPatternConfigs(path string) ([]engine.PatternConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern config %s: %w", path, err)
	}
	var pf patternConfigFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse pattern config %s: %w", path, err)
	}
	f := Fixture{Patterns: pf.Patterns}
	return f.ToPatternConfigs()
}

// stepStreamFile is the on-disk shape of a standalone recorded step stream,
// independent of any particular pattern config.
type stepStreamFile struct {
	Steps []FixtureStep `json:"steps"`
}

// LoadStepStream reads a JSON file containing only a "steps" array.
func LoadStepStream(path string) ([]FixtureStep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read step stream %s: %w", path, err)
	}
	var sf stepStreamFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse step stream %s: %w", path, err)
	}
	return sf.Steps, nil
}

// ToPatternConfigs converts every FixturePattern to an engine.PatternConfig.
func (f *Fixture) ToPatternConfigs() ([]engine.PatternConfig, error) {
	configs := make([]engine.PatternConfig, len(f.Patterns))
	for i, p := range f.Patterns {
		cfg, err := p.toPatternConfig()
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		configs[i] = cfg
	}
	return configs, nil
}

func (p *FixturePattern) toPatternConfig() (engine.PatternConfig, error) {
	nodes := make([]engine.Node, len(p.Flat))
	for i, n := range p.Flat {
		nodes[i] = engine.Node{
			FlatSourceIndex: n.FlatSourceIndex,
			Start:           n.Start,
			Stop:            n.Stop,
			Step:            n.Step,
		}
	}

	conditions := make([]engine.Condition, len(p.Conditions))
	for i, c := range p.Conditions {
		cond, err := c.toCondition()
		if err != nil {
			return engine.PatternConfig{}, fmt.Errorf("condition %d: %w", i, err)
		}
		conditions[i] = cond
	}

	return engine.PatternConfig{
		Flat:       nodes,
		Table:      p.Table,
		Priority:   p.Priority,
		Conditions: conditions,
	}, nil
}

func (c *FixtureCondition) toCondition() (engine.Condition, error) {
	left, ok := fixtureLeftKinds[c.Left]
	if !ok {
		return engine.Condition{}, fmt.Errorf("unknown left selector %q", c.Left)
	}
	cmp, err := c.Cmp.toComparator()
	if err != nil {
		return engine.Condition{}, err
	}
	return engine.Condition{Left: left, Column: c.Column, Cmp: cmp}, nil
}

var fixtureLeftKinds = map[string]engine.LeftKind{
	"step_index":          engine.LeftStepIndex,
	"steps_since_applied": engine.LeftStepsSinceApplied,
	"buffer_length":       engine.LeftBufferLength,
	"is_end_episode":      engine.LeftIsEndEpisode,
	"data":                engine.LeftData,
}

func (c *FixtureComparator) toComparator() (engine.Comparator, error) {
	switch c.Kind {
	case "eq":
		return engine.Eq(c.Value), nil
	case "ne":
		return engine.Ne(c.Value), nil
	case "le":
		return engine.Le(c.Value), nil
	case "lt":
		return engine.Lt(c.Value), nil
	case "ge":
		return engine.Ge(c.Value), nil
	case "gt":
		return engine.Gt(c.Value), nil
	case "mod_eq":
		return engine.ModEq(c.Mod, c.ModEq), nil
	default:
		return engine.Comparator{}, fmt.Errorf("unknown comparator kind %q", c.Kind)
	}
}

// ToCells converts the step's values (nil meaning a hole) to engine.Cells.
func (s *FixtureStep) ToCells() []engine.Cell {
	cells := make([]engine.Cell, len(s.Values))
	for i, v := range s.Values {
		if v == nil {
			cells[i] = engine.Hole()
		} else {
			cells[i] = engine.Value(*v)
		}
	}
	return cells
}

// #endregion fixture-loader
