package engine

import (
	"reflect"
	"testing"
	"time"
)

// fakeWriter is a minimal ColumnWriter test double: it hands out a
// distinct *cellData per present value and renders CreateItem calls into
// plain Go values for comparison, mirroring the FakeWriter used by the
// reference implementation's own test suite.
type fakeWriter struct {
	written [][]interface{}
}

type cellData struct{ value int }

func (f *fakeWriter) Append(data []Cell) ([]CellRef, error) {
	return f.appendInternal(data)
}

func (f *fakeWriter) AppendPartial(data []Cell) ([]CellRef, error) {
	return f.appendInternal(data)
}

func (f *fakeWriter) appendInternal(data []Cell) ([]CellRef, error) {
	refs := make([]CellRef, len(data))
	for i, c := range data {
		if c.Present {
			refs[i] = &cellData{value: c.Value.(int)}
		}
	}
	return refs, nil
}

func (f *fakeWriter) CreateItem(table string, priority float64, trajectory []TrajectoryColumn) error {
	row := make([]interface{}, len(trajectory))
	for i, col := range trajectory {
		if col.Squeezed {
			row[i] = col.Refs[0].(*cellData).value
			continue
		}
		vals := make([]int, len(col.Refs))
		for j, r := range col.Refs {
			vals[j] = r.(*cellData).value
		}
		row[i] = vals
	}
	f.written = append(f.written, row)
	return nil
}

func (f *fakeWriter) EndEpisode(clearBuffers bool) error { return nil }

func (f *fakeWriter) Flush(ignoreLastNumItems int, timeout time.Duration) error { return nil }

func i32(v int32) *int32   { return &v }
func u32(v uint32) *uint32 { return &v }

func negOneAsUint32() uint32 {
	v := int32(-1)
	return uint32(v)
}

func requireBufferGuard(nodes []Node) Condition {
	return Condition{Left: LeftBufferLength, Cmp: Ge(requiredBufferLength(nodes))}
}

func mustWriter(t *testing.T, fw *fakeWriter, cfg PatternConfig) *StructuredWriter {
	t.Helper()
	w, err := New(fw, []PatternConfig{cfg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func runFiveSteps(t *testing.T, w *StructuredWriter) {
	t.Helper()
	for i := 0; i < 5; i++ {
		err := w.Append([]Cell{Value(10 + i), Value(20 + i), Value(30 + i)})
		if err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
}

func assertWritten(t *testing.T, got [][]interface{}, want [][]interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("written trajectories mismatch:\n got=%#v\nwant=%#v", got, want)
	}
}

func TestWriter_SelectSingleSqueezed(t *testing.T) {
	nodes := []Node{{FlatSourceIndex: 0, Stop: i32(-1)}}
	fw := &fakeWriter{}
	cfg := PatternConfig{Flat: nodes, Table: "table", Priority: 1, Conditions: []Condition{requireBufferGuard(nodes)}}
	w := mustWriter(t, fw, cfg)
	runFiveSteps(t, w)

	assertWritten(t, fw.written, [][]interface{}{{10}, {11}, {12}, {13}, {14}})
}

func TestWriter_SelectSingleSqueezedLaterColumn(t *testing.T) {
	nodes := []Node{{FlatSourceIndex: 2, Stop: i32(-2)}}
	fw := &fakeWriter{}
	cfg := PatternConfig{Flat: nodes, Table: "table", Priority: 1, Conditions: []Condition{requireBufferGuard(nodes)}}
	w := mustWriter(t, fw, cfg)
	runFiveSteps(t, w)

	assertWritten(t, fw.written, [][]interface{}{{30}, {31}, {32}, {33}})
}

func TestWriter_SingleSlice(t *testing.T) {
	cases := []struct {
		name  string
		node  Node
		want  [][]interface{}
	}{
		{
			"basic",
			Node{FlatSourceIndex: 1, Start: i32(-2)},
			[][]interface{}{{[]int{20, 21}}, {[]int{21, 22}}, {[]int{22, 23}}, {[]int{23, 24}}},
		},
		{
			"startAndStop",
			Node{FlatSourceIndex: 2, Start: i32(-3), Stop: i32(-1)},
			[][]interface{}{{[]int{30, 31}}, {[]int{31, 32}}, {[]int{32, 33}}},
		},
		{
			"startAndStopSingleElement",
			Node{FlatSourceIndex: 2, Start: i32(-3), Stop: i32(-2)},
			[][]interface{}{{[]int{30}}, {[]int{31}}, {[]int{32}}},
		},
		{
			"wholeHistory",
			Node{FlatSourceIndex: 0, Start: i32(-3)},
			[][]interface{}{{[]int{10, 11, 12}}, {[]int{11, 12, 13}}, {[]int{12, 13, 14}}},
		},
		{
			"strided",
			Node{FlatSourceIndex: 0, Start: i32(-3), Step: u32(2)},
			[][]interface{}{{[]int{10, 12}}, {[]int{11, 13}}, {[]int{12, 14}}},
		},
		{
			"stridedWider",
			Node{FlatSourceIndex: 1, Start: i32(-4), Step: u32(3)},
			[][]interface{}{{[]int{20, 23}}, {[]int{21, 24}}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nodes := []Node{tc.node}
			fw := &fakeWriter{}
			cfg := PatternConfig{Flat: nodes, Table: "table", Priority: 1, Conditions: []Condition{requireBufferGuard(nodes)}}
			w := mustWriter(t, fw, cfg)
			runFiveSteps(t, w)
			assertWritten(t, fw.written, tc.want)
		})
	}
}

func TestWriter_SliceAndSqueeze(t *testing.T) {
	nodes := []Node{
		{FlatSourceIndex: 0, Stop: i32(-1)},
		{FlatSourceIndex: 1, Start: i32(-1), Stop: i32(0)},
	}
	fw := &fakeWriter{}
	cfg := PatternConfig{Flat: nodes, Table: "table", Priority: 1, Conditions: []Condition{requireBufferGuard(nodes)}}
	w := mustWriter(t, fw, cfg)
	runFiveSteps(t, w)

	assertWritten(t, fw.written, [][]interface{}{
		{10, []int{20}},
		{11, []int{21}},
		{12, []int{22}},
		{13, []int{23}},
		{14, []int{24}},
	})
}

func TestWriter_SliceAndSqueezeMultiNode(t *testing.T) {
	nodes := []Node{
		{FlatSourceIndex: 2, Start: i32(-3), Stop: i32(-1)},
		{FlatSourceIndex: 0, Stop: i32(-2)},
	}
	fw := &fakeWriter{}
	cfg := PatternConfig{Flat: nodes, Table: "table", Priority: 1, Conditions: []Condition{requireBufferGuard(nodes)}}
	w := mustWriter(t, fw, cfg)
	runFiveSteps(t, w)

	assertWritten(t, fw.written, [][]interface{}{
		{[]int{30, 31}, 11},
		{[]int{31, 32}, 12},
		{[]int{32, 33}, 13},
	})
}

func TestWriter_StepIndexCondition(t *testing.T) {
	nodes := []Node{{FlatSourceIndex: 0, Stop: i32(-1)}}
	guard := requireBufferGuard(nodes)

	cases := []struct {
		name string
		cond Condition
		want [][]interface{}
	}{
		{"modEq2", Condition{Left: LeftStepIndex, Cmp: ModEq(2, 0)}, [][]interface{}{{10}, {12}, {14}}},
		{"modEq3", Condition{Left: LeftStepIndex, Cmp: ModEq(3, 1)}, [][]interface{}{{11}, {14}}},
		{"eq2", Condition{Left: LeftStepIndex, Cmp: Eq(2)}, [][]interface{}{{12}}},
		{"ge2", Condition{Left: LeftStepIndex, Cmp: Ge(2)}, [][]interface{}{{12}, {13}, {14}}},
		{"le2", Condition{Left: LeftStepIndex, Cmp: Le(2)}, [][]interface{}{{10}, {11}, {12}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fw := &fakeWriter{}
			cfg := PatternConfig{Flat: nodes, Table: "table", Priority: 1, Conditions: []Condition{guard, tc.cond}}
			w := mustWriter(t, fw, cfg)
			runFiveSteps(t, w)
			assertWritten(t, fw.written, tc.want)
		})
	}
}

func TestWriter_StepsSinceAppliedCondition(t *testing.T) {
	nodes := []Node{{FlatSourceIndex: 0, Stop: i32(-1)}}
	guard := requireBufferGuard(nodes)

	cases := []struct {
		name string
		cond Condition
		want [][]interface{}
	}{
		{"ge2", Condition{Left: LeftStepsSinceApplied, Cmp: Ge(2)}, [][]interface{}{{11}, {13}}},
		{"ge3", Condition{Left: LeftStepsSinceApplied, Cmp: Ge(3)}, [][]interface{}{{12}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fw := &fakeWriter{}
			cfg := PatternConfig{Flat: nodes, Table: "table", Priority: 1, Conditions: []Condition{guard, tc.cond}}
			w := mustWriter(t, fw, cfg)
			runFiveSteps(t, w)
			assertWritten(t, fw.written, tc.want)
		})
	}
}

func TestWriter_EndOfEpisodeCondition(t *testing.T) {
	nodes := []Node{{FlatSourceIndex: 0, Stop: i32(-1)}}
	fw := &fakeWriter{}
	cfg := PatternConfig{
		Flat:     nodes,
		Table:    "table",
		Priority: 1,
		Conditions: []Condition{
			requireBufferGuard(nodes),
			{Left: LeftIsEndEpisode, Cmp: Eq(1)},
		},
	}
	w := mustWriter(t, fw, cfg)
	runFiveSteps(t, w)
	if err := w.EndEpisode(true); err != nil {
		t.Fatalf("EndEpisode: %v", err)
	}

	assertWritten(t, fw.written, [][]interface{}{{14}})
}

func TestWriter_PatternFromPartialData(t *testing.T) {
	fw := &fakeWriter{}
	cfg := PatternConfig{
		Flat: []Node{
			{FlatSourceIndex: 0, Stop: i32(-1)},
			{FlatSourceIndex: 1, Start: i32(-2)},
		},
		Table:      "table",
		Priority:   1,
		Conditions: []Condition{{Left: LeftBufferLength, Cmp: Ge(2)}},
	}
	w := mustWriter(t, fw, cfg)

	steps := []struct {
		col0 *int
		col1 int
	}{
		{intPtr(10), 20},
		{nil, 21},
		{intPtr(12), 22},
		{nil, 23},
		{intPtr(14), 24},
	}
	for i, s := range steps {
		data := make([]Cell, 2)
		if s.col0 != nil {
			data[0] = Value(*s.col0)
		} else {
			data[0] = Hole()
		}
		data[1] = Value(s.col1)
		if err := w.Append(data); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	assertWritten(t, fw.written, [][]interface{}{
		{12, []int{21, 22}},
		{14, []int{23, 24}},
	})
}

func intPtr(v int) *int { return &v }
