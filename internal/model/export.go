package model

import "time"

// ContentExport is the top-level JSON structure written by `knowpilot export`.
type ContentExport struct {
	ExportedAt time.Time `json:"exported_at"`
	BackendURL string    `json:"backend_url"`
	Section    string    `json:"section"`
	Search     string    `json:"search"`
	GroupSize  int       `json:"group_size"`
	Sections   []string  `json:"sections"`
	Total      int       `json:"total"`
	Matched    int       `json:"matched"`
	Groups     []Group   `json:"groups"`
}
