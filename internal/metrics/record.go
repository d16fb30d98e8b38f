package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/types"
)

// RecordAttempt records one provider invocation.
func RecordAttempt(rec types.AttemptRecord) {
	kind := string(rec.FailureKind)
	if rec.Outcome == types.AttemptSuccess {
		kind = "none"
	}
	ProviderAttempts.WithLabelValues(rec.Provider, string(rec.Outcome), kind).Inc()
	AttemptLatency.WithLabelValues(rec.Provider).Observe(rec.Duration.Seconds())
	if kind == "contract_violation" {
		ContractDefects.WithLabelValues(rec.Provider).Inc()
	}
}

// RecordResult records the terminal outcome of a routing operation.
func RecordResult(intent string, res *types.RoutingResult) {
	if res == nil {
		return
	}
	RoutingRequests.WithLabelValues(intent, string(res.Disposition)).Inc()
	RoutingLatency.WithLabelValues(intent).Observe(res.Elapsed.Seconds())
	if res.FallbackUsed {
		Fallbacks.WithLabelValues(intent, string(res.FallbackReason)).Inc()
	}
	for _, note := range res.Notes {
		ChainEntriesDropped.WithLabelValues(note.Provider).Inc()
	}
	for _, v := range res.Violations {
		PolicyViolations.WithLabelValues(intent, v.Kind).Inc()
	}
}

// RecordEscalation records one escalation pass.
func RecordEscalation(intent string, final bool) {
	Escalations.WithLabelValues(intent, strconv.FormatBool(final)).Inc()
}

// RecordReload records a policy reload attempt.
func RecordReload(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PolicyReloads.WithLabelValues(status).Inc()
}

// RecordUsage records token and spend metrics for a successful response.
func RecordUsage(provider, model string, usage *types.Usage, costUSD float64) {
	if usage == nil {
		return
	}
	model = sanitizeModelLabel(model)
	if usage.PromptTokens > 0 {
		InputTokens.WithLabelValues(provider, model).Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		OutputTokens.WithLabelValues(provider, model).Add(float64(usage.CompletionTokens))
	}
	if costUSD > 0 {
		SpendUSD.WithLabelValues(provider, model).Add(costUSD)
	}
}

// ObserveHTTPRequest records gateway-level HTTP metrics.
func ObserveHTTPRequest(route string, latency time.Duration) {
	RoutingLatency.WithLabelValues(route).Observe(latency.Seconds())
}

const maxModelLabelLen = 64

// sanitizeModelLabel keeps label cardinality sane when model names arrive
// from untrusted request payloads.
func sanitizeModelLabel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return "unknown"
	}

	var b strings.Builder
	for _, r := range model {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == ':' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		if b.Len() >= maxModelLabelLen {
			break
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unknown"
	}
	return out
}
