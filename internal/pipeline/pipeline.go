// Package pipeline derives the displayed view model from fetched records.
// Everything here is pure: inputs are never mutated and nothing is cached.
package pipeline

import (
	"strconv"
	"strings"

	"github.com/pavelanni/knowpilot/internal/model"
)

// Params are the user-controlled inputs of the contents page.
type Params struct {
	Section   string // model.SectionAll or "" means every section
	Query     string
	GroupSize int
}

// Result is the derived view model.
type Result struct {
	Sections []string
	Filtered []model.ContentRecord
	Groups   []model.Group
}

// Transform runs section filter, content search and grouping over records.
func Transform(records []model.ContentRecord, p Params) Result {
	filtered := Filter(records, p.Section, p.Query)
	return Result{
		Sections: UniqueSections(records),
		Filtered: filtered,
		Groups:   Chunk(filtered, p.GroupSize),
	}
}

// UniqueSections returns the distinct sections in first-occurrence order.
func UniqueSections(records []model.ContentRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if seen[r.Section] {
			continue
		}
		seen[r.Section] = true
		out = append(out, r.Section)
	}
	return out
}

// Filter keeps records in section whose content contains query, ignoring case.
func Filter(records []model.ContentRecord, section, query string) []model.ContentRecord {
	q := strings.ToLower(query)
	out := make([]model.ContentRecord, 0, len(records))
	for _, r := range records {
		if section != "" && section != model.SectionAll && r.Section != section {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.Content), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Chunk partitions records into consecutive groups of size, numbered from 1.
// A size below 1 is treated as 1.
func Chunk(records []model.ContentRecord, size int) []model.Group {
	if size < 1 {
		size = 1
	}
	groups := make([]model.Group, 0, (len(records)+size-1)/size)
	for i := 0; i < len(records); i += size {
		end := min(i+size, len(records))
		groups = append(groups, model.Group{
			GroupID: i/size + 1,
			Records: records[i:end:end],
		})
	}
	return groups
}

// CoerceGroupSize parses a group size input. Empty, non-numeric and
// non-positive values become 1.
func CoerceGroupSize(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// SearchKnowledge matches query against section, content and knowledge point.
// A blank query returns every record.
func SearchKnowledge(records []model.ContentRecord, query string) []model.ContentRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}
	out := make([]model.ContentRecord, 0, len(records))
	for _, r := range records {
		switch {
		case strings.Contains(strings.ToLower(r.Section), q),
			strings.Contains(strings.ToLower(r.Content), q),
			r.KnowledgePoint != nil && strings.Contains(strings.ToLower(*r.KnowledgePoint), q):
			out = append(out, r)
		}
	}
	return out
}
