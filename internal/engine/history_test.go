package engine

import "testing"

func TestColumnHistory_PushOrUpdate_HoleNeverOverwritesValue(t *testing.T) {
	h := &columnHistory{}
	h.pushOrUpdate(0, "ref-a", true)
	h.pushOrUpdate(0, nil, false)

	if h.length() != 1 {
		t.Fatalf("length = %d, want 1", h.length())
	}
	refs, _, ok := h.resolve(Node{FlatSourceIndex: 0, Stop: i32(-1)})
	if !ok {
		t.Fatal("want resolve ok, a later hole must not clobber an earlier value at the same step")
	}
	if refs[0] != "ref-a" {
		t.Fatalf("ref = %v, want ref-a", refs[0])
	}
}

func TestColumnHistory_PushOrUpdate_ValueOverwritesHole(t *testing.T) {
	h := &columnHistory{}
	h.pushOrUpdate(0, nil, false)
	h.pushOrUpdate(0, "ref-b", true)

	if h.length() != 1 {
		t.Fatalf("length = %d, want 1", h.length())
	}
	refs, _, ok := h.resolve(Node{FlatSourceIndex: 0, Stop: i32(-1)})
	if !ok || refs[0] != "ref-b" {
		t.Fatalf("refs = %v, ok = %v, want [ref-b] true", refs, ok)
	}
}

func TestColumnHistory_DistinctSteps(t *testing.T) {
	h := &columnHistory{}
	h.pushOrUpdate(0, "a", true)
	h.pushOrUpdate(1, "b", true)
	if h.length() != 2 {
		t.Fatalf("length = %d, want 2", h.length())
	}
}

func TestResolveIndices_SqueezedInsufficientHistory(t *testing.T) {
	_, squeezed, insufficient := resolveIndices(Node{FlatSourceIndex: 0, Stop: i32(-2)}, 1)
	if !squeezed {
		t.Fatal("want squeezed")
	}
	if !insufficient {
		t.Fatal("want insufficient with only 1 entry and stop=-2")
	}
}

func TestResolveIndices_SliceInsufficientHistory(t *testing.T) {
	_, squeezed, insufficient := resolveIndices(Node{FlatSourceIndex: 0, Start: i32(-3)}, 2)
	if squeezed {
		t.Fatal("want not squeezed when start is set")
	}
	if !insufficient {
		t.Fatal("want insufficient with only 2 entries and start=-3")
	}
}

func TestResolveIndices_Strided(t *testing.T) {
	idx, squeezed, insufficient := resolveIndices(Node{FlatSourceIndex: 0, Start: i32(-4), Step: u32(2)}, 4)
	if insufficient {
		t.Fatal("want sufficient history")
	}
	if squeezed {
		t.Fatal("want not squeezed")
	}
	want := []int{0, 2}
	if len(idx) != len(want) || idx[0] != want[0] || idx[1] != want[1] {
		t.Fatalf("idx = %v, want %v", idx, want)
	}
}

func TestColumnHistory_Reset(t *testing.T) {
	h := &columnHistory{}
	h.pushOrUpdate(0, "a", true)
	h.reset()
	if h.length() != 0 {
		t.Fatalf("length after reset = %d, want 0", h.length())
	}
}
