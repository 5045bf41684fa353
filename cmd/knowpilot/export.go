package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pavelanni/knowpilot/internal/model"
	"github.com/pavelanni/knowpilot/internal/pipeline"
)

// contentLister is the part of the backend client used by export.
type contentLister interface {
	AllContents(ctx context.Context) ([]model.ContentRecord, error)
}

type exportParams struct {
	BackendURL string
	Section    string
	Search     string
	GroupSize  string
}

// buildExport fetches all content records and runs them through the same
// pipeline as the contents page.
func buildExport(ctx context.Context, api contentLister, p exportParams) (model.ContentExport, error) {
	records, err := api.AllContents(ctx)
	if err != nil {
		return model.ContentExport{}, fmt.Errorf("fetch contents: %w", err)
	}

	section := p.Section
	if section == "" {
		section = model.SectionAll
	}
	size := pipeline.CoerceGroupSize(p.GroupSize)
	res := pipeline.Transform(records, pipeline.Params{Section: section, Query: p.Search, GroupSize: size})

	return model.ContentExport{
		ExportedAt: time.Now().UTC(),
		BackendURL: p.BackendURL,
		Section:    section,
		Search:     p.Search,
		GroupSize:  size,
		Sections:   res.Sections,
		Total:      len(records),
		Matched:    len(res.Filtered),
		Groups:     res.Groups,
	}, nil
}

func writeExport(export model.ContentExport, outPath string) error {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}
