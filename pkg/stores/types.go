package stores

import (
	"context"
	"time"

	"github.com/openfroyo/conformance/pkg/report"
)

// RunRecord is the summary row of a stored run.
type RunRecord struct {
	ID         string        `json:"id"`
	Root       string        `json:"root"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Errored    int           `json:"errored"`
	Conformant bool          `json:"conformant"`
}

// Store defines the interface for run history persistence.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// SaveRun stores a report with all its verdicts. The report must carry
	// a run ID.
	SaveRun(ctx context.Context, r *report.RunReport) error

	// GetRun loads a stored report, results in their original order.
	GetRun(ctx context.Context, id string) (*report.RunReport, error)

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error)

	DeleteRun(ctx context.Context, id string) error

	// Utility
	HealthCheck(ctx context.Context) error
}
