package tunnel

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/jsontunnel/providers/observability"
)

// runObserver reports one run. All methods are safe to call when no provider
// is configured; they then go to observability.Nop.
type runObserver struct {
	provider observability.Provider
	span     observability.Span
	runID    observability.Attribute
}

func (t *Tunnel[T]) startObserving(ctx context.Context) (context.Context, *runObserver) {
	provider := t.observer
	if provider == nil {
		provider = observability.ObserverFromContext(ctx)
	}
	if provider == nil {
		provider = observability.Nop()
	}

	obs := &runObserver{
		provider: provider,
		runID:    observability.String(observability.AttrTunnelRunID, uuid.NewString()),
	}
	ctx, obs.span = provider.StartSpan(ctx, observability.SpanTunnelRun,
		obs.runID,
		observability.Int(observability.AttrTunnelMaxRetries, t.config.MaxRetries),
		observability.String(observability.AttrTunnelSchemaName, t.config.SchemaName),
	)
	ctx = observability.ContextWithObserver(ctx, provider)

	provider.Debug(ctx, "tunnel run started", obs.runID,
		observability.Int(observability.AttrTunnelMaxRetries, t.config.MaxRetries))
	return ctx, obs
}

func (o *runObserver) attempt(ctx context.Context, attempt int) {
	o.span.AddEvent(observability.EventTunnelAttempt, observability.Int(observability.AttrTunnelAttempt, attempt))
	o.provider.Counter(observability.MetricTunnelAttempts).Add(ctx, 1)
}

func (o *runObserver) prompt(ctx context.Context, attempt int, prompt string) {
	o.provider.Trace(ctx, "tunnel prompt", o.runID,
		observability.Int(observability.AttrTunnelAttempt, attempt),
		observability.String(observability.AttrTunnelPrompt, prompt))
}

func (o *runObserver) output(ctx context.Context, attempt int, output string, elapsed time.Duration) {
	o.provider.Histogram(observability.MetricTunnelRunnerDuration).Record(ctx,
		float64(elapsed)/float64(time.Millisecond),
		observability.Int(observability.AttrTunnelAttempt, attempt))
	o.provider.Trace(ctx, "tunnel runner output", o.runID,
		observability.Int(observability.AttrTunnelAttempt, attempt),
		observability.String(observability.AttrTunnelOutput, observability.TruncateStringDefault(output)))
}

func (o *runObserver) rejected(ctx context.Context, attempt int, failure Failure) {
	kind := observability.String(observability.AttrTunnelFailureKind, failure.Kind.String())
	o.span.AddEvent(observability.EventTunnelFailure,
		observability.Int(observability.AttrTunnelAttempt, attempt), kind)
	o.provider.Counter(observability.MetricTunnelFailures).Add(ctx, 1, kind)
	o.provider.Warn(ctx, "tunnel attempt rejected", o.runID,
		observability.Int(observability.AttrTunnelAttempt, attempt),
		kind,
		observability.Int(observability.AttrTunnelIssues, len(failure.Issues)))
}

func (o *runObserver) succeeded(ctx context.Context, attempts int) {
	o.span.SetAttributes(observability.Int(observability.AttrTunnelAttempts, attempts))
	o.span.SetStatus(observability.StatusOK, "")
	o.span.End()
	o.provider.Counter(observability.MetricTunnelRuns).Add(ctx, 1,
		observability.String(observability.AttrStatus, observability.StatusSuccess))
	o.provider.Info(ctx, "tunnel run succeeded", o.runID,
		observability.Int(observability.AttrTunnelAttempts, attempts))
}

func (o *runObserver) failed(ctx context.Context, attempts int, err error) {
	o.span.SetAttributes(observability.Int(observability.AttrTunnelAttempts, attempts))
	o.span.RecordError(err)
	o.span.SetStatus(observability.StatusError, err.Error())
	o.span.End()
	o.provider.Counter(observability.MetricTunnelRuns).Add(ctx, 1,
		observability.String(observability.AttrStatus, observability.StatusFailure))
	o.provider.Error(ctx, "tunnel run failed", o.runID,
		observability.Int(observability.AttrTunnelAttempts, attempts),
		observability.Error(err))
}
