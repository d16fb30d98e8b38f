package main

import (
	"net/http"
	"time"

	"github.com/switchboard-ai/switchboard/internal/metrics"
	"github.com/switchboard-ai/switchboard/internal/observability"
)

// middlewareStack wraps the mux with request identity and HTTP latency
// metrics. Request ID runs outermost so every log line and metric below it
// can correlate.
func middlewareStack(next http.Handler) http.Handler {
	handler := httpMetrics(next)
	return observability.RequestIDMiddleware(handler)
}

func httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		metrics.ObserveHTTPRequest(r.URL.Path, time.Since(start))
	})
}
