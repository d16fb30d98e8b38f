package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/errors"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

func TestS3Exporter_ObjectKey(t *testing.T) {
	e := &S3Exporter{config: S3Config{Prefix: "switchboard/attempts"}}
	ts := time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC)

	key := e.objectKey(ts)
	if !strings.HasPrefix(key, "switchboard/attempts/year=2026/month=03/day=07/hour=14/") {
		t.Errorf("unexpected key partitioning: %s", key)
	}
	if !strings.HasSuffix(key, ".jsonl") {
		t.Errorf("expected .jsonl suffix: %s", key)
	}
}

func TestS3Exporter_ObjectKeyNoPrefix(t *testing.T) {
	e := &S3Exporter{config: S3Config{}}
	key := e.objectKey(time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC))
	if !strings.HasPrefix(key, "year=2026/month=01/day=02/hour=03/") {
		t.Errorf("unexpected key: %s", key)
	}
}

func TestEntryFromResult(t *testing.T) {
	res := &types.RoutingResult{
		RequestID:      "req-42",
		Disposition:    types.DispositionSucceededCompliant,
		FallbackUsed:   true,
		FallbackReason: errors.KindTimeout,
		Response: &types.Response{
			Provider: "ollama",
			Model:    "llama3",
		},
		Attempts: []types.AttemptRecord{
			{Provider: "claude", Outcome: types.AttemptFailure, FailureKind: errors.KindTimeout},
			{Provider: "ollama", Outcome: types.AttemptSuccess},
		},
		Elapsed: 1500 * time.Millisecond,
	}

	entry := EntryFromResult("research", res)

	if entry.RequestID != "req-42" || entry.Intent != "research" {
		t.Errorf("identity fields wrong: %+v", entry)
	}
	if entry.Provider != "ollama" || entry.Model != "llama3" {
		t.Errorf("winning provider fields wrong: %+v", entry)
	}
	if !entry.FallbackUsed || entry.FallbackReason != "timeout" {
		t.Errorf("fallback fields wrong: %+v", entry)
	}
	if entry.LatencyMs != 1500 {
		t.Errorf("latency wrong: %d", entry.LatencyMs)
	}
	if len(entry.Attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(entry.Attempts))
	}
	if entry.Error != "" {
		t.Errorf("expected no error for success, got %q", entry.Error)
	}
}

func TestEntryFromResult_Error(t *testing.T) {
	res := &types.RoutingResult{
		RequestID:   "req-9",
		Disposition: types.DispositionExhaustedFatal,
		Error:       errors.NewRateLimitedError("claude", "claude-3", "throttled"),
		Attempts: []types.AttemptRecord{
			{Provider: "claude", Outcome: types.AttemptFailure, FailureKind: errors.KindRateLimited},
		},
	}

	entry := EntryFromResult("direct", res)
	if entry.Error == "" {
		t.Fatal("expected error string")
	}
	if entry.Provider != "" {
		t.Errorf("expected no winning provider, got %q", entry.Provider)
	}
}
