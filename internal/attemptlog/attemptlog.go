// Package attemptlog persists per-request attempt metadata for diagnostics.
// Only routing metadata is stored; message content never reaches a store.
package attemptlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/switchboard-ai/switchboard/pkg/types"
)

// Entry is one finished routing operation flattened for storage.
type Entry struct {
	ID             string                `json:"id"`
	RequestID      string                `json:"request_id"`
	Intent         string                `json:"intent"`
	Disposition    types.Disposition     `json:"disposition"`
	Provider       string                `json:"provider,omitempty"`
	Model          string                `json:"model,omitempty"`
	FallbackUsed   bool                  `json:"fallback_used"`
	FallbackReason string                `json:"fallback_reason,omitempty"`
	Attempts       []types.AttemptRecord `json:"attempts"`
	Notes          []types.ChainNote     `json:"notes,omitempty"`
	Violations     []types.Violation     `json:"violations,omitempty"`
	Escalations    int                   `json:"escalations"`
	Error          string                `json:"error,omitempty"`
	LatencyMS      int64                 `json:"latency_ms"`
	CreatedAt      time.Time             `json:"created_at"`
}

// NewEntry flattens a routing result into a log entry.
func NewEntry(intent string, res *types.RoutingResult) *Entry {
	entry := &Entry{
		ID:             uuid.NewString(),
		RequestID:      res.RequestID,
		Intent:         intent,
		Disposition:    res.Disposition,
		FallbackUsed:   res.FallbackUsed,
		FallbackReason: string(res.FallbackReason),
		Attempts:       res.Attempts,
		Notes:          res.Notes,
		Violations:     res.Violations,
		Escalations:    res.Escalations,
		LatencyMS:      res.Elapsed.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
	if res.Response != nil {
		entry.Provider = res.Response.Provider
		entry.Model = res.Response.Model
	}
	if res.Error != nil {
		entry.Error = res.Error.Error()
	}
	return entry
}

// Filter narrows List queries. Zero values match everything.
type Filter struct {
	Intent      string
	Disposition types.Disposition
	Since       time.Time
	Limit       int
}

// Stats summarizes stored entries for the diagnostics surface.
type Stats struct {
	Total        int64            `json:"total"`
	Dispositions map[string]int64 `json:"dispositions"`
	Fallbacks    int64            `json:"fallbacks"`
}

// Store persists attempt log entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]*Entry, error)
	Stats(ctx context.Context) (*Stats, error)
	// Purge removes entries older than cutoff and reports how many went.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}
