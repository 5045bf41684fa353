package rows

import "testing"

func TestToggle(t *testing.T) {
	s := New()
	if s.Expanded(1) {
		t.Fatal("rows start collapsed")
	}
	if !s.Toggle(1) || !s.Expanded(1) {
		t.Fatal("first toggle should expand")
	}
	if s.Toggle(1) || s.Expanded(1) {
		t.Fatal("second toggle should collapse")
	}
}

func TestExpandCollapseAll(t *testing.T) {
	s := New()
	s.ExpandAll([]int64{1, 2, 3})
	for _, id := range []int64{1, 2, 3} {
		if !s.Expanded(id) {
			t.Errorf("row %d should be expanded", id)
		}
	}
	if !s.AllExpanded(3) {
		t.Error("AllExpanded(3) should be true")
	}

	s.Toggle(2)
	if s.AllExpanded(3) {
		t.Error("AllExpanded(3) should be false after collapsing one row")
	}

	s.CollapseAll()
	if len(s.Snapshot()) != 0 {
		t.Errorf("expected no expanded rows, got %v", s.Snapshot())
	}
	if s.AllExpanded(0) {
		t.Error("AllExpanded(0) should be false")
	}
}

func TestAllExpandedCountsHiddenRows(t *testing.T) {
	s := New()
	s.ExpandAll([]int64{1, 2, 3})

	// Only rows 1 and 2 remain visible after filtering; row 3 still counts.
	if !s.AllExpanded(2) {
		t.Error("expected hidden expanded row to count toward the tally")
	}

	s.CollapseAll()
	s.Toggle(3)
	if !s.AllExpanded(1) {
		t.Error("a single hidden expanded row satisfies one visible row")
	}
}
