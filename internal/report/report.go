// Package report holds the result of a splicer run: one entry per group whose
// output file was produced, plus the run's bookkeeping. Runs can be kept in
// memory or in a SQLite history database.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry describes one produced output file.
type Entry struct {
	// GroupKey is the recipient identifier, e.g. "jane_doe".
	GroupKey string
	// VideoCount is the number of clips classified into the group.
	VideoCount int
	// OutputPath is the local path of the concatenated output.
	OutputPath string
	// URL is set when the output was uploaded.
	URL string
}

// Run is the aggregated report of one invocation.
type Run struct {
	ID         string
	InputDir   string
	StartedAt  time.Time
	FinishedAt time.Time
	// Entries holds one element per successful group, in processing order.
	Entries []Entry
	// Failed lists the keys of groups that produced no output.
	Failed []string
	// Unclassified lists video files whose names did not match the pattern.
	Unclassified []string
}

// NewRun creates a Run with a generated ID, started now.
func NewRun(inputDir string) *Run {
	return &Run{
		ID:        NewRunID(),
		InputDir:  inputDir,
		StartedAt: time.Now(),
		Entries:   make([]Entry, 0),
	}
}

// NewRunID creates a new unique run ID.
// Format: run-<timestamp>-<uuid prefix>
// Example: run-1701432000-a1b2c3d4
func NewRunID() string {
	return fmt.Sprintf("run-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
}

// Add appends an entry.
func (r *Run) Add(e Entry) {
	r.Entries = append(r.Entries, e)
}

// Fail records a group that produced no output.
func (r *Run) Fail(groupKey string) {
	r.Failed = append(r.Failed, groupKey)
}

// Finish stamps the end time.
func (r *Run) Finish() {
	r.FinishedAt = time.Now()
}

// Duration is the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Clone creates a deep copy of the run for safe reads.
func (r *Run) Clone() *Run {
	c := *r
	c.Entries = append([]Entry(nil), r.Entries...)
	c.Failed = append([]string(nil), r.Failed...)
	c.Unclassified = append([]string(nil), r.Unclassified...)
	return &c
}
