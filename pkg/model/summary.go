package model

import (
	"encoding/json"
	"time"

	"github.com/c2h5oh/datasize"
)

// ImportCounters are the per-kind element counts of one run.
// Warning counters (dedup skips, dropped edges) never fail a run.
type ImportCounters struct {
	NodesImported         int64 `json:"nodes_imported"`
	RelationshipsImported int64 `json:"relationships_imported"`
	GraphPropertyValues   int64 `json:"graph_property_values"`
	DedupSkips            int64 `json:"dedup_skips"`
	DanglingDropped       int64 `json:"dangling_dropped"`
}

// PhaseDuration is one timed phase of a run.
type PhaseDuration struct {
	Name     string `json:"name"`
	Millis   int64  `json:"ms"`
	Duration string `json:"duration"`
}

// ImportSummary is the user-visible result of one import run.
// Errors is zero on success; on failure no graph store is returned but the
// counters remain available for diagnostics.
type ImportSummary struct {
	RunUUID       string          `json:"run_uuid"`
	Mode          ImportMode      `json:"-"`
	ModeName      string          `json:"mode"`
	Counters      ImportCounters  `json:"counters"`
	Phases        []PhaseDuration `json:"phases,omitempty"`
	TotalDuration time.Duration   `json:"-"`
	TotalMillis   int64           `json:"total_ms"`
	InputBytes    uint64          `json:"input_bytes"`
	Warnings      int64           `json:"warnings"`
	Errors        int64           `json:"errors"`
	Error         string          `json:"error,omitempty"`
	ImportedAt    time.Time       `json:"imported_at"`
}

// HumanInputSize renders the input volume for log lines.
func (s *ImportSummary) HumanInputSize() string {
	return datasize.ByteSize(s.InputBytes).HumanReadable()
}

// ToJSON serializes the summary.
func (s *ImportSummary) ToJSON() ([]byte, error) {
	s.ModeName = s.Mode.String()
	s.TotalMillis = s.TotalDuration.Milliseconds()
	return json.MarshalIndent(s, "", "  ")
}

// WarningCount sums the warning counters.
func (c *ImportCounters) WarningCount() int64 {
	return c.DedupSkips + c.DanglingDropped
}
