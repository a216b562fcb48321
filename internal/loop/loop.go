// Package loop implements the reload-and-retry cycle: reload every module,
// run the driver with the fresh instances, report the outcome, then let the
// operator decide whether to run again or finish with the last result.
package loop

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/module"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/prompt"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

// Driver is invoked once per iteration with the reloaded instances, in the
// order the identifiers were configured.
type Driver[T any] func(ctx context.Context, mods ...*module.Instance) (T, error)

// Request is what one Run works on.
type Request[T any] struct {
	Modules []string
	Driver  Driver[T]
}

// Validate reports caller misuse as ErrConfiguration.
func (r Request[T]) Validate() error {
	if r.Driver == nil {
		return fmt.Errorf("%w: driver is nil", ErrConfiguration)
	}
	for i, id := range r.Modules {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: module identifier %d is empty", ErrConfiguration, i)
		}
	}
	return nil
}

// Reloader reloads one module identifier. *module.Reloader satisfies this
// interface.
type Reloader interface {
	Reload(ctx context.Context, id string) module.Outcome
}

// Prompter asks the operator for a decision. *prompt.Line and *tui.Prompter
// satisfy this interface.
type Prompter interface {
	AwaitDecision(ctx context.Context) (prompt.Decision, error)
}

// Loop orchestrates the reload -> driver -> report -> decide cycle. Driver
// calls and prompts are strictly sequenced; a Loop never has both in flight.
type Loop[T any] struct {
	Reloader Reloader
	Prompter Prompter
	Report   *report.Sink // defaults to timestamped lines on os.Stdout
	Tracer   trace.Tracer // defaults to otel.Tracer("reloop/loop")
}

// Run iterates until the operator chooses to continue after a driver run,
// or chooses to continue after a reload failure. It returns the last driver
// value, the last driver error, or the reload error, exactly as produced.
func (l *Loop[T]) Run(ctx context.Context, req Request[T]) (T, error) {
	var zero T
	if err := l.validate(req); err != nil {
		return zero, err
	}

	for n := 1; ; n++ {
		if n > 1 {
			l.Report.Emit(report.Entry{Kind: report.LogRerun, Iteration: n, Message: "Re-running loop."})
		}

		res, again, err := l.iteration(ctx, n, req)
		if err != nil {
			return zero, err
		}
		if again {
			continue
		}

		l.Report.Emit(report.Entry{Kind: report.LogDone, Iteration: n, Message: fmt.Sprintf("Loop finished after %d iteration(s).", n)})
		if res.Rejected() {
			return zero, res.Err
		}
		return res.Value, nil
	}
}

func (l *Loop[T]) validate(req Request[T]) error {
	if l.Reloader == nil {
		return fmt.Errorf("%w: reloader is nil", ErrConfiguration)
	}
	if l.Prompter == nil {
		return fmt.Errorf("%w: prompter is nil", ErrConfiguration)
	}
	return req.Validate()
}

// iteration runs one pass. again is true when the operator asked for
// another iteration.
func (l *Loop[T]) iteration(ctx context.Context, n int, req Request[T]) (res Result[T], again bool, err error) {
	ctx, span := l.tracer().Start(ctx, "reloop.iteration",
		trace.WithAttributes(attribute.Int("reloop.iteration", n)))
	defer span.End()
	l.Report.Emit(report.Entry{Kind: report.LogIterStart, Iteration: n, Message: fmt.Sprintf("── iteration %d ──", n)})

	mods, err := l.reloadAll(ctx, n, req.Modules)
	if err != nil {
		recordError(span, err)
		return res, false, err
	}

	l.Report.Emit(report.Entry{
		Kind:      report.LogReloaded,
		Iteration: n,
		Message:   "Running loop with reloaded modules: " + formatIDs(req.Modules),
	})

	res = l.invoke(ctx, req.Driver, mods)
	if res.Rejected() {
		l.Report.Emit(report.Entry{
			Kind:      report.LogRejected,
			Iteration: n,
			Err:       res.Err,
			Message:   fmt.Sprintf("Loop rejected: %v", res.Err),
		})
	} else {
		l.Report.Emit(report.Entry{
			Kind:      report.LogResolved,
			Iteration: n,
			Value:     res.Value,
			Message:   fmt.Sprintf("Loop run OK, with returned value: %v", res.Value),
		})
	}

	d, err := l.decide(ctx)
	if err != nil {
		release(ctx, mods)
		recordError(span, err)
		return res, false, err
	}
	if d == prompt.Rerun {
		release(ctx, mods)
		return res, true, nil
	}
	return res, false, nil
}

// reloadAll reloads every identifier in order. A failed identifier is
// skipped when the operator chooses to re-run, and ends the loop with the
// reload error when the operator chooses to continue.
func (l *Loop[T]) reloadAll(ctx context.Context, n int, ids []string) ([]*module.Instance, error) {
	mods := make([]*module.Instance, 0, len(ids))
	for _, id := range ids {
		out := l.reload(ctx, id)
		if !out.Failed() {
			mods = append(mods, out.Instance)
			continue
		}

		l.Report.Emit(report.Entry{
			Kind:      report.LogReloadFailed,
			Iteration: n,
			Module:    id,
			Err:       out.Err,
			Message:   fmt.Sprintf("Could not reload module '%s': %v", id, out.Err),
		})

		d, err := l.decide(ctx)
		if err != nil {
			release(ctx, mods)
			return nil, err
		}
		if d == prompt.Rerun {
			continue
		}
		release(ctx, mods)
		return nil, out.Err
	}
	return mods, nil
}

func (l *Loop[T]) reload(ctx context.Context, id string) module.Outcome {
	ctx, span := l.tracer().Start(ctx, "reloop.reload",
		trace.WithAttributes(attribute.String("reloop.module", id)))
	defer span.End()

	out := l.Reloader.Reload(ctx, id)
	if out.Failed() {
		recordError(span, out.Err)
	} else if out.Instance != nil {
		span.SetAttributes(attribute.String("reloop.digest", fmt.Sprintf("%016x", out.Instance.Digest)))
	}
	return out
}

// invoke calls the driver, turning a panic into a rejected result.
func (l *Loop[T]) invoke(ctx context.Context, driver Driver[T], mods []*module.Instance) (res Result[T]) {
	ctx, span := l.tracer().Start(ctx, "reloop.driver",
		trace.WithAttributes(attribute.Int("reloop.modules", len(mods))))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			res = Rejected[T](&PanicError{Value: p})
		}
		if res.Rejected() {
			recordError(span, res.Err)
		}
	}()

	v, err := driver(ctx, mods...)
	if err != nil {
		return Rejected[T](err)
	}
	return Resolved(v)
}

func (l *Loop[T]) decide(ctx context.Context) (prompt.Decision, error) {
	ctx, span := l.tracer().Start(ctx, "reloop.await_decision")
	defer span.End()

	d, err := l.Prompter.AwaitDecision(ctx)
	if err != nil {
		recordError(span, err)
		return 0, fmt.Errorf("loop: await decision: %w", err)
	}
	span.SetAttributes(attribute.String("reloop.decision", d.String()))
	return d, nil
}

func (l *Loop[T]) tracer() trace.Tracer {
	if l.Tracer != nil {
		return l.Tracer
	}
	return otel.Tracer("reloop/loop")
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// release closes the instances of a discarded pass.
func release(ctx context.Context, mods []*module.Instance) {
	for _, m := range mods {
		_ = m.Close(ctx)
	}
}

func formatIDs(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
