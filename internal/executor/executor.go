// Package executor walks a sanitized fallback chain. The walk is strictly
// sequential: one provider in flight at a time, in chain order, under one
// shared deadline. The executor holds no provider health state; every
// decision is made from the current attempt's classified outcome alone.
package executor

import (
	"context"
	"time"

	"github.com/switchboard-ai/switchboard/internal/chain"
	"github.com/switchboard-ai/switchboard/internal/metrics"
	"github.com/switchboard-ai/switchboard/internal/observability"
	sberrors "github.com/switchboard-ai/switchboard/pkg/errors"
	"github.com/switchboard-ai/switchboard/pkg/provider"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

// Reporter receives every attempt record as it is produced.
type Reporter func(types.AttemptRecord)

// Executor runs fallback chains.
type Executor struct {
	logger   *observability.Logger
	reporter Reporter
}

// Option customizes an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(logger *observability.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithReporter registers a per-attempt callback.
func WithReporter(r Reporter) Option {
	return func(e *Executor) {
		e.reporter = r
	}
}

// New creates an executor.
func New(opts ...Option) *Executor {
	e := &Executor{logger: observability.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the raw outcome of one chain walk, before policy validation.
// Exactly one of Response and Err is set. Err is always the classified
// error of the LAST attempt made, never a synthetic summary.
type Result struct {
	Response *types.Response
	Err      *sberrors.RouteError
	Attempts []types.AttemptRecord
}

// Execute walks the chain until a provider succeeds, a non-retryable
// failure occurs, the budget runs out, or every entry has been tried.
// budget bounds the whole walk; each attempt sees only what remains of it.
// A budget of zero means the caller's ctx alone governs the deadline.
func (e *Executor) Execute(ctx context.Context, sanitized *chain.Sanitized, req *types.Request, budget time.Duration) *Result {
	res := &Result{}
	if sanitized == nil || len(sanitized.Descriptors) == 0 {
		res.Err = sberrors.NewContractViolationError("", req.Model, "empty execution chain")
		return res
	}

	walkCtx := ctx
	if budget > 0 {
		var cancel context.CancelFunc
		walkCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	log := e.logger.WithRequestID(ctx)

	for i, desc := range sanitized.Descriptors {
		if ctxErr := walkCtx.Err(); ctxErr != nil {
			res.Err = sberrors.NewTimeoutError(desc.Name, req.Model, "routing deadline exhausted before attempt")
			log.Warn("chain walk stopped before attempt",
				"provider", desc.Name,
				"position", i,
				"cause", ctxErr.Error(),
			)
			break
		}

		rec, resp, attemptErr := e.attempt(walkCtx, desc, req)
		res.Attempts = append(res.Attempts, rec)
		if e.reporter != nil {
			e.reporter(rec)
		}
		metrics.RecordAttempt(rec)

		if resp != nil {
			res.Response = resp
			log.Debug("provider succeeded",
				"provider", desc.Name,
				"position", i,
				"duration", rec.Duration,
			)
			return res
		}

		res.Err = attemptErr
		if attemptErr.Kind == sberrors.KindContractViolation {
			// A broken adapter is a defect in the provider integration,
			// not a routine upstream failure.
			log.RedactedError("provider broke the outcome contract",
				"provider", desc.Name,
				"detail", attemptErr.Message,
			)
		} else {
			log.RedactedWarn("provider attempt failed",
				"provider", desc.Name,
				"kind", string(attemptErr.Kind),
				"detail", attemptErr.Message,
			)
		}

		if !attemptErr.Retryable {
			log.Info("non-retryable failure, chain aborted",
				"provider", desc.Name,
				"kind", string(attemptErr.Kind),
			)
			break
		}
		if walkCtx.Err() != nil {
			// The failure above was the deadline or the caller giving up;
			// walking further would violate both.
			break
		}
	}

	return res
}

// attempt invokes one provider and classifies the outcome. Anything the
// adapter leaks outside the taxonomy, including ambiguous return pairs,
// comes back as a ContractViolation.
func (e *Executor) attempt(ctx context.Context, desc *provider.Descriptor, req *types.Request) (types.AttemptRecord, *types.Response, *sberrors.RouteError) {
	start := time.Now()
	resp, err := desc.Adapter.Invoke(ctx, req)
	duration := time.Since(start)

	rec := types.AttemptRecord{
		Provider:  desc.Name,
		Model:     req.Model,
		StartedAt: start,
		Duration:  duration,
	}

	if err == nil && resp != nil {
		if resp.Provider == "" {
			resp.Provider = desc.Name
		}
		rec.Outcome = types.AttemptSuccess
		rec.Model = resp.Model
		return rec, resp, nil
	}

	var re *sberrors.RouteError
	if err != nil && resp != nil {
		re = sberrors.NewContractViolationError(desc.Name, req.Model, "adapter returned both response and error")
	} else {
		re = sberrors.Coerce(desc.Name, req.Model, err)
	}

	rec.Outcome = types.AttemptFailure
	rec.FailureKind = re.Kind
	rec.Detail = re.Message
	return rec, nil, re
}
