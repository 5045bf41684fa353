package pipeline

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/pavelanni/knowpilot/internal/model"
)

func rec(id int64, section, content string) model.ContentRecord {
	return model.ContentRecord{ID: id, Section: section, PageName: "page", Content: content}
}

func ptr(s string) *string { return &s }

func idsOf(records []model.ContentRecord) []int64 {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func sampleRecords(n int) []model.ContentRecord {
	sections := []string{"Basics", "Storms", "Safety"}
	out := make([]model.ContentRecord, n)
	for i := range out {
		out[i] = rec(int64(i+1), sections[i%len(sections)], fmt.Sprintf("fact number %d", i+1))
	}
	return out
}

func TestTwoRecordScenarios(t *testing.T) {
	records := []model.ContentRecord{rec(1, "A", "foo"), rec(2, "B", "bar")}

	t.Run("all sections group size 1", func(t *testing.T) {
		res := Transform(records, Params{Section: model.SectionAll, Query: "", GroupSize: 1})
		if len(res.Groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(res.Groups))
		}
		for i, g := range res.Groups {
			if g.GroupID != i+1 {
				t.Errorf("group %d has id %d", i, g.GroupID)
			}
			if len(g.Records) != 1 || g.Records[0].ID != int64(i+1) {
				t.Errorf("group %d records = %v", i, idsOf(g.Records))
			}
		}
	})

	t.Run("search foo", func(t *testing.T) {
		res := Transform(records, Params{Section: model.SectionAll, Query: "foo", GroupSize: 1})
		if got := idsOf(res.Filtered); !reflect.DeepEqual(got, []int64{1}) {
			t.Fatalf("filtered = %v, want [1]", got)
		}
	})
}

func TestChunkProperties(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 10, 31} {
		for _, size := range []int{1, 2, 3, 4, 10, 50} {
			t.Run(fmt.Sprintf("n=%d size=%d", n, size), func(t *testing.T) {
				records := sampleRecords(n)
				groups := Chunk(records, size)

				want := (n + size - 1) / size
				if len(groups) != want {
					t.Fatalf("got %d groups, want %d", len(groups), want)
				}

				var concat []model.ContentRecord
				for i, g := range groups {
					if g.GroupID != i+1 {
						t.Errorf("group %d has id %d", i, g.GroupID)
					}
					if i < len(groups)-1 && len(g.Records) != size {
						t.Errorf("group %d has %d records, want %d", i, len(g.Records), size)
					}
					if len(g.Records) == 0 || len(g.Records) > size {
						t.Errorf("group %d has invalid size %d", i, len(g.Records))
					}
					concat = append(concat, g.Records...)
				}
				if !reflect.DeepEqual(idsOf(concat), idsOf(records)) {
					t.Errorf("concatenation %v != records %v", idsOf(concat), idsOf(records))
				}
			})
		}
	}
}

func TestChunkGuardsSize(t *testing.T) {
	records := sampleRecords(3)
	for _, size := range []int{0, -1, -100} {
		groups := Chunk(records, size)
		if len(groups) != 3 {
			t.Errorf("Chunk(size=%d) produced %d groups, want 3", size, len(groups))
		}
	}
}

func TestCoerceGroupSize(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 1},
		{"0", 1},
		{"-3", 1},
		{"abc", 1},
		{"2.5", 1},
		{"1", 1},
		{"4", 4},
		{" 6 ", 6},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CoerceGroupSize(tt.in); got != tt.want {
				t.Errorf("CoerceGroupSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	records := []model.ContentRecord{
		rec(1, "Basics", "HTTP stands for Hypertext Transfer Protocol"),
		rec(2, "Storms", "Lightning precedes thunder"),
		rec(3, "Basics", "CSS stands for Cascading Style Sheets"),
		{ID: 4, Section: "http", Content: "unrelated", KnowledgePoint: ptr("http")},
	}

	tests := []struct {
		name    string
		section string
		query   string
		want    []int64
	}{
		{"all no query", model.SectionAll, "", []int64{1, 2, 3, 4}},
		{"empty section means all", "", "", []int64{1, 2, 3, 4}},
		{"section only", "Basics", "", []int64{1, 3}},
		{"case-insensitive content", model.SectionAll, "http", []int64{1}},
		{"query ignores section and knowledge point", model.SectionAll, "HTTP", []int64{1}},
		{"both predicates", "Basics", "stands", []int64{1, 3}},
		{"conjunctive no match", "Storms", "stands", []int64{}},
		{"unknown section", "Nope", "", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(records, tt.section, tt.query)
			if !reflect.DeepEqual(idsOf(got), tt.want) {
				t.Errorf("Filter(%q, %q) = %v, want %v", tt.section, tt.query, idsOf(got), tt.want)
			}

			again := Filter(got, tt.section, tt.query)
			if !reflect.DeepEqual(idsOf(again), idsOf(got)) {
				t.Errorf("filter not idempotent: %v then %v", idsOf(got), idsOf(again))
			}

			byID := map[int64]bool{}
			for _, r := range records {
				byID[r.ID] = true
			}
			for _, r := range got {
				if !byID[r.ID] {
					t.Errorf("filtered record %d not in input", r.ID)
				}
			}
		})
	}
}

func TestTransformDoesNotMutate(t *testing.T) {
	records := sampleRecords(5)
	before := idsOf(records)
	_ = Transform(records, Params{Section: "Storms", Query: "fact", GroupSize: 2})
	if !reflect.DeepEqual(idsOf(records), before) {
		t.Errorf("records mutated: %v", idsOf(records))
	}
}

func TestUniqueSections(t *testing.T) {
	records := []model.ContentRecord{
		rec(1, "Storms", "a"),
		rec(2, "Basics", "b"),
		rec(3, "Storms", "c"),
		rec(4, "", "d"),
		rec(5, "Safety", "e"),
	}
	got := UniqueSections(records)
	want := []string{"Storms", "Basics", "", "Safety"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniqueSections = %q, want %q", got, want)
	}
	if got := UniqueSections(nil); len(got) != 0 {
		t.Errorf("UniqueSections(nil) = %q, want empty", got)
	}
}

func TestSearchKnowledge(t *testing.T) {
	records := []model.ContentRecord{
		{ID: 1, Section: "Storms", Content: "Cumulonimbus clouds"},
		{ID: 2, Section: "Basics", Content: "Air pressure", KnowledgePoint: ptr("Low pressure brings STORMS")},
		{ID: 3, Section: "Safety", Content: "Stay indoors"},
	}

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"blank", "   ", []int64{1, 2, 3}},
		{"section match", "storms", []int64{1, 2}},
		{"content match", "INDOORS", []int64{3}},
		{"knowledge point match", "low pressure", []int64{2}},
		{"no match", "tornado", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchKnowledge(records, tt.query)
			if !reflect.DeepEqual(idsOf(got), tt.want) {
				t.Errorf("SearchKnowledge(%q) = %v, want %v", tt.query, idsOf(got), tt.want)
			}
		})
	}
}
