package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	sberrors "github.com/switchboard-ai/switchboard/pkg/errors"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

func TestRecordAttempt(t *testing.T) {
	before := testutil.ToFloat64(ProviderAttempts.WithLabelValues("metrics-test-p", "failure", "timeout"))

	RecordAttempt(types.AttemptRecord{
		Provider:    "metrics-test-p",
		Outcome:     types.AttemptFailure,
		FailureKind: sberrors.KindTimeout,
		Duration:    120 * time.Millisecond,
	})

	after := testutil.ToFloat64(ProviderAttempts.WithLabelValues("metrics-test-p", "failure", "timeout"))
	if after != before+1 {
		t.Fatalf("ProviderAttempts = %v, want %v", after, before+1)
	}
}

func TestRecordAttempt_SuccessHasNoFailureKind(t *testing.T) {
	before := testutil.ToFloat64(ProviderAttempts.WithLabelValues("metrics-test-ok", "success", "none"))

	RecordAttempt(types.AttemptRecord{
		Provider: "metrics-test-ok",
		Outcome:  types.AttemptSuccess,
		Duration: 80 * time.Millisecond,
	})

	after := testutil.ToFloat64(ProviderAttempts.WithLabelValues("metrics-test-ok", "success", "none"))
	if after != before+1 {
		t.Fatalf("ProviderAttempts = %v, want %v", after, before+1)
	}
}

func TestRecordAttempt_ContractDefect(t *testing.T) {
	before := testutil.ToFloat64(ContractDefects.WithLabelValues("metrics-test-defect"))

	RecordAttempt(types.AttemptRecord{
		Provider:    "metrics-test-defect",
		Outcome:     types.AttemptFailure,
		FailureKind: sberrors.KindContractViolation,
	})

	after := testutil.ToFloat64(ContractDefects.WithLabelValues("metrics-test-defect"))
	if after != before+1 {
		t.Fatalf("ContractDefects = %v, want %v", after, before+1)
	}
}

func TestRecordResult(t *testing.T) {
	intent := "metrics-test-intent"
	fallbackBefore := testutil.ToFloat64(Fallbacks.WithLabelValues(intent, "rate_limited"))
	droppedBefore := testutil.ToFloat64(ChainEntriesDropped.WithLabelValues("metrics-test-ghost"))

	RecordResult(intent, &types.RoutingResult{
		Disposition:    types.DispositionSucceededCompliant,
		FallbackUsed:   true,
		FallbackReason: sberrors.KindRateLimited,
		Notes:          []types.ChainNote{{Provider: "metrics-test-ghost", Reason: sberrors.KindProviderNotFound}},
		Elapsed:        time.Second,
	})

	if got := testutil.ToFloat64(Fallbacks.WithLabelValues(intent, "rate_limited")); got != fallbackBefore+1 {
		t.Fatalf("Fallbacks = %v, want %v", got, fallbackBefore+1)
	}
	if got := testutil.ToFloat64(ChainEntriesDropped.WithLabelValues("metrics-test-ghost")); got != droppedBefore+1 {
		t.Fatalf("ChainEntriesDropped = %v, want %v", got, droppedBefore+1)
	}

	// nil result is a no-op.
	RecordResult(intent, nil)
}

func TestRecordUsage(t *testing.T) {
	before := testutil.ToFloat64(SpendUSD.WithLabelValues("metrics-test-p", "gpt-4o"))

	RecordUsage("metrics-test-p", "gpt-4o", &types.Usage{PromptTokens: 100, CompletionTokens: 50}, 0.0035)
	RecordUsage("metrics-test-p", "gpt-4o", nil, 1.0) // no usage, no record

	after := testutil.ToFloat64(SpendUSD.WithLabelValues("metrics-test-p", "gpt-4o"))
	if diff := after - before; diff < 0.0034 || diff > 0.0036 {
		t.Fatalf("SpendUSD delta = %v, want 0.0035", diff)
	}
}

func TestSanitizeModelLabel_ReplacesInvalidChars(t *testing.T) {
	got := sanitizeModelLabel("gpt-4o-mini\n\t🚨")
	if strings.ContainsAny(got, "\n\t") {
		t.Fatalf("sanitizeModelLabel contains whitespace: %q", got)
	}
	if got == "unknown" {
		t.Fatalf("sanitizeModelLabel unexpectedly returned %q", got)
	}
}

func TestSanitizeModelLabel_CapsLength(t *testing.T) {
	long := strings.Repeat("a", maxModelLabelLen+50)
	if got := sanitizeModelLabel(long); len(got) != maxModelLabelLen {
		t.Fatalf("sanitizeModelLabel len=%d, want %d", len(got), maxModelLabelLen)
	}
}

func TestSanitizeModelLabel_EmptyFallback(t *testing.T) {
	if got := sanitizeModelLabel("   "); got != "unknown" {
		t.Fatalf("sanitizeModelLabel = %q, want %q", got, "unknown")
	}
}
