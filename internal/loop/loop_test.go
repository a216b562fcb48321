package loop

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/module"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/prompt"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

var errScriptExhausted = errors.New("no scripted decision left")

// fakeReloader is a test double for Reloader. Identifiers in errs always fail.
type fakeReloader struct {
	errs  map[string]error
	calls []string
}

func (f *fakeReloader) Reload(_ context.Context, id string) module.Outcome {
	f.calls = append(f.calls, id)
	if err, ok := f.errs[id]; ok {
		return module.Failed(err)
	}
	return module.Loaded(&module.Instance{ID: id})
}

// fakePrompter replays scripted decisions.
type fakePrompter struct {
	decisions []prompt.Decision
	err       error
	calls     int
}

func (f *fakePrompter) AwaitDecision(_ context.Context) (prompt.Decision, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.decisions) == 0 {
		return 0, errScriptExhausted
	}
	d := f.decisions[0]
	f.decisions = f.decisions[1:]
	return d, nil
}

// recordingDriver records the identifiers of the instances it was given.
type recordingDriver[T any] struct {
	fn    func(call int) (T, error)
	calls [][]string
}

func (d *recordingDriver[T]) run(_ context.Context, mods ...*module.Instance) (T, error) {
	ids := make([]string, len(mods))
	for i, m := range mods {
		ids[i] = m.ID
	}
	d.calls = append(d.calls, ids)
	return d.fn(len(d.calls))
}

func setupTestLoop[T any](reloader Reloader, prompter Prompter) (*Loop[T], *[]report.Entry) {
	var entries []report.Entry
	sink := &report.Sink{
		Log:  &bytes.Buffer{},
		Hook: func(e report.Entry) { entries = append(entries, e) },
	}
	return &Loop[T]{Reloader: reloader, Prompter: prompter, Report: sink}, &entries
}

func kinds(entries []report.Entry, kind report.Kind) []report.Entry {
	var out []report.Entry
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestRunResolvesOnContinue(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{"no modules", nil},
		{"empty slice", []string{}},
		{"single module", []string{"a"}},
		{"several modules with repeats", []string{"a", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := &fakeReloader{}
			pr := &fakePrompter{decisions: []prompt.Decision{prompt.Continue}}
			drv := &recordingDriver[int]{fn: func(int) (int, error) { return 42, nil }}
			lp, _ := setupTestLoop[int](rl, pr)

			got, err := lp.Run(context.Background(), Request[int]{Modules: tt.ids, Driver: drv.run})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != 42 {
				t.Errorf("result = %d, want 42", got)
			}
			if len(rl.calls) != len(tt.ids) {
				t.Errorf("reload calls = %v, want one per identifier %v", rl.calls, tt.ids)
			}
			if len(drv.calls) != 1 {
				t.Fatalf("driver calls = %d, want 1", len(drv.calls))
			}
			if len(tt.ids) > 0 && !reflect.DeepEqual(drv.calls[0], tt.ids) {
				t.Errorf("driver got %v, want instances in order %v", drv.calls[0], tt.ids)
			}
			if len(tt.ids) == 0 && len(drv.calls[0]) != 0 {
				t.Errorf("driver should be called with no arguments, got %v", drv.calls[0])
			}
			if pr.calls != 1 {
				t.Errorf("prompter calls = %d, want 1", pr.calls)
			}
		})
	}
}

func TestRunReloadFailureRerunSkipsModule(t *testing.T) {
	rl := &fakeReloader{errs: map[string]error{"x": errors.New("syntax error")}}
	pr := &fakePrompter{decisions: []prompt.Decision{
		prompt.Rerun,    // iteration 1: skip x
		prompt.Rerun,    // iteration 1: run again
		prompt.Rerun,    // iteration 2: skip x
		prompt.Continue, // iteration 2: done
	}}
	drv := &recordingDriver[string]{fn: func(int) (string, error) { return "ok", nil }}
	lp, entries := setupTestLoop[string](rl, pr)

	got, err := lp.Run(context.Background(), Request[string]{Modules: []string{"a", "x", "b"}, Driver: drv.run})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("result = %q, want ok", got)
	}

	wantReloads := []string{"a", "x", "b", "a", "x", "b"}
	if !reflect.DeepEqual(rl.calls, wantReloads) {
		t.Errorf("reload calls = %v, want %v", rl.calls, wantReloads)
	}
	wantDriver := [][]string{{"a", "b"}, {"a", "b"}}
	if !reflect.DeepEqual(drv.calls, wantDriver) {
		t.Errorf("driver calls = %v, want %v", drv.calls, wantDriver)
	}

	failed := kinds(*entries, report.LogReloadFailed)
	if len(failed) != 2 {
		t.Fatalf("reload failure reports = %d, want 2", len(failed))
	}
	if failed[0].Module != "x" || !strings.Contains(failed[0].Message, "Could not reload module 'x'") {
		t.Errorf("failure entry = %+v", failed[0])
	}
	reloaded := kinds(*entries, report.LogReloaded)
	if len(reloaded) != 2 {
		t.Fatalf("reloaded reports = %d, want 2", len(reloaded))
	}
	if !strings.Contains(reloaded[0].Message, `["a", "x", "b"]`) {
		t.Errorf("pass summary should list every configured identifier, got %q", reloaded[0].Message)
	}
}

func TestRunReloadFailureContinue(t *testing.T) {
	reloadErr := &module.ReloadError{ID: "x", Err: errors.New("not found")}
	rl := &fakeReloader{errs: map[string]error{"x": reloadErr}}
	pr := &fakePrompter{decisions: []prompt.Decision{prompt.Continue}}
	drv := &recordingDriver[int]{fn: func(int) (int, error) { return 1, nil }}
	lp, _ := setupTestLoop[int](rl, pr)

	_, err := lp.Run(context.Background(), Request[int]{Modules: []string{"a", "x", "b"}, Driver: drv.run})
	if err != reloadErr {
		t.Fatalf("err = %v, want exactly the reload error", err)
	}
	if len(drv.calls) != 0 {
		t.Errorf("driver should not be invoked, got %d calls", len(drv.calls))
	}
	if !reflect.DeepEqual(rl.calls, []string{"a", "x"}) {
		t.Errorf("reload calls = %v, want [a x]", rl.calls)
	}
	if pr.calls != 1 {
		t.Errorf("prompter calls = %d, want 1", pr.calls)
	}
}

func TestRunAllFailUntilContinue(t *testing.T) {
	errA := errors.New("a broken")
	errB := errors.New("b broken")
	rl := &fakeReloader{errs: map[string]error{"a": errA, "b": errB}}
	pr := &fakePrompter{decisions: []prompt.Decision{
		prompt.Rerun, prompt.Rerun, prompt.Rerun, // iteration 1: skip a, skip b, run again
		prompt.Rerun, prompt.Continue, // iteration 2: skip a, give up on b
	}}
	drv := &recordingDriver[int]{fn: func(int) (int, error) { return 0, nil }}
	lp, _ := setupTestLoop[int](rl, pr)

	_, err := lp.Run(context.Background(), Request[int]{Modules: []string{"a", "b"}, Driver: drv.run})
	if err != errB {
		t.Fatalf("err = %v, want the last reload error", err)
	}
	if len(drv.calls) != 1 || len(drv.calls[0]) != 0 {
		t.Errorf("driver calls = %v, want one call with no instances", drv.calls)
	}
}

func TestRunDriverRejectsContinue(t *testing.T) {
	driverErr := errors.New("assertion failed")
	rl := &fakeReloader{}
	pr := &fakePrompter{decisions: []prompt.Decision{prompt.Continue}}
	drv := &recordingDriver[int]{fn: func(int) (int, error) { return 0, driverErr }}
	lp, entries := setupTestLoop[int](rl, pr)

	_, err := lp.Run(context.Background(), Request[int]{Modules: []string{"a"}, Driver: drv.run})
	if err != driverErr {
		t.Fatalf("err = %v, want exactly the driver error", err)
	}

	rejected := kinds(*entries, report.LogRejected)
	if len(rejected) != 1 || rejected[0].Err != driverErr {
		t.Errorf("rejected reports = %+v, want one carrying the driver error", rejected)
	}
	if len(kinds(*entries, report.LogResolved)) != 0 {
		t.Error("no resolved report expected")
	}
}

func TestRunRerunDiscardsPreviousIteration(t *testing.T) {
	t.Run("second value wins", func(t *testing.T) {
		pr := &fakePrompter{decisions: []prompt.Decision{prompt.Rerun, prompt.Continue}}
		drv := &recordingDriver[int]{fn: func(call int) (int, error) { return call * 10, nil }}
		lp, entries := setupTestLoop[int](&fakeReloader{}, pr)

		got, err := lp.Run(context.Background(), Request[int]{Modules: []string{"a"}, Driver: drv.run})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 20 {
			t.Errorf("result = %d, want second iteration's 20", got)
		}
		rerun := kinds(*entries, report.LogRerun)
		if len(rerun) != 1 || rerun[0].Message != "Re-running loop." {
			t.Errorf("rerun reports = %+v", rerun)
		}
	})

	t.Run("earlier rejection is discarded", func(t *testing.T) {
		pr := &fakePrompter{decisions: []prompt.Decision{prompt.Rerun, prompt.Continue}}
		drv := &recordingDriver[string]{fn: func(call int) (string, error) {
			if call == 1 {
				return "", errors.New("first run fails")
			}
			return "fixed", nil
		}}
		lp, _ := setupTestLoop[string](&fakeReloader{}, pr)

		got, err := lp.Run(context.Background(), Request[string]{Modules: []string{"a"}, Driver: drv.run})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "fixed" {
			t.Errorf("result = %q, want fixed", got)
		}
	})

	t.Run("earlier value is discarded on rejection", func(t *testing.T) {
		lastErr := errors.New("regressed")
		pr := &fakePrompter{decisions: []prompt.Decision{prompt.Rerun, prompt.Continue}}
		drv := &recordingDriver[int]{fn: func(call int) (int, error) {
			if call == 1 {
				return 1, nil
			}
			return 0, lastErr
		}}
		lp, _ := setupTestLoop[int](&fakeReloader{}, pr)

		got, err := lp.Run(context.Background(), Request[int]{Driver: drv.run})
		if err != lastErr {
			t.Errorf("err = %v, want %v", err, lastErr)
		}
		if got != 0 {
			t.Errorf("result = %d, want zero value on rejection", got)
		}
	})
}

func TestRunDriverPanic(t *testing.T) {
	pr := &fakePrompter{decisions: []prompt.Decision{prompt.Continue}}
	lp, entries := setupTestLoop[int](&fakeReloader{}, pr)

	driver := func(context.Context, ...*module.Instance) (int, error) {
		panic("nil map write")
	}

	_, err := lp.Run(context.Background(), Request[int]{Driver: driver})
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PanicError", err)
	}
	if pe.Value != "nil map write" {
		t.Errorf("panic value = %v", pe.Value)
	}
	if len(kinds(*entries, report.LogRejected)) != 1 {
		t.Error("panic should be reported as a rejection")
	}
	if pr.calls != 1 {
		t.Errorf("operator should still be prompted after a panic, calls = %d", pr.calls)
	}
}

func TestRunConfigurationErrors(t *testing.T) {
	okDriver := func(context.Context, ...*module.Instance) (int, error) { return 1, nil }

	tests := []struct {
		name     string
		reloader bool
		prompter bool
		req      Request[int]
	}{
		{"nil driver", true, true, Request[int]{Modules: []string{"a"}}},
		{"empty identifier", true, true, Request[int]{Modules: []string{"a", ""}, Driver: okDriver}},
		{"blank identifier", true, true, Request[int]{Modules: []string{"  "}, Driver: okDriver}},
		{"nil reloader", false, true, Request[int]{Driver: okDriver}},
		{"nil prompter", true, false, Request[int]{Driver: okDriver}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := &fakeReloader{}
			pr := &fakePrompter{decisions: []prompt.Decision{prompt.Continue}}
			lp, entries := setupTestLoop[int](rl, pr)
			if !tt.reloader {
				lp.Reloader = nil
			}
			if !tt.prompter {
				lp.Prompter = nil
			}

			_, err := lp.Run(context.Background(), tt.req)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
			if len(rl.calls) != 0 {
				t.Errorf("no reload expected, got %v", rl.calls)
			}
			if pr.calls != 0 {
				t.Errorf("no prompt expected, got %d", pr.calls)
			}
			if len(*entries) != 0 {
				t.Errorf("no reports expected, got %d", len(*entries))
			}
		})
	}
}

func TestRunPrompterError(t *testing.T) {
	t.Run("after driver", func(t *testing.T) {
		pr := &fakePrompter{err: prompt.ErrInterrupted}
		lp, _ := setupTestLoop[int](&fakeReloader{}, pr)
		driver := func(context.Context, ...*module.Instance) (int, error) { return 1, nil }

		_, err := lp.Run(context.Background(), Request[int]{Modules: []string{"a"}, Driver: driver})
		if !errors.Is(err, prompt.ErrInterrupted) {
			t.Errorf("err = %v, want ErrInterrupted", err)
		}
		if !strings.Contains(err.Error(), "await decision") {
			t.Errorf("err = %v, should mention the prompt", err)
		}
	})

	t.Run("after reload failure", func(t *testing.T) {
		pr := &fakePrompter{err: context.Canceled}
		rl := &fakeReloader{errs: map[string]error{"a": errors.New("gone")}}
		lp, _ := setupTestLoop[int](rl, pr)
		calls := 0
		driver := func(context.Context, ...*module.Instance) (int, error) { calls++; return 1, nil }

		_, err := lp.Run(context.Background(), Request[int]{Modules: []string{"a"}, Driver: driver})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if calls != 0 {
			t.Errorf("driver calls = %d, want 0", calls)
		}
	})
}

func TestRunReportsEachEventOnce(t *testing.T) {
	rl := &fakeReloader{errs: map[string]error{"x": errors.New("bad")}}
	pr := &fakePrompter{decisions: []prompt.Decision{prompt.Rerun, prompt.Continue}}
	lp, entries := setupTestLoop[int](rl, pr)
	driver := func(context.Context, ...*module.Instance) (int, error) { return 7, nil }

	if _, err := lp.Run(context.Background(), Request[int]{Modules: []string{"x", "a"}, Driver: driver}); err != nil {
		t.Fatal(err)
	}

	want := map[report.Kind]int{
		report.LogIterStart:    1,
		report.LogReloadFailed: 1,
		report.LogReloaded:     1,
		report.LogResolved:     1,
		report.LogRejected:     0,
		report.LogRerun:        0,
		report.LogDone:         1,
	}
	for kind, n := range want {
		if got := len(kinds(*entries, kind)); got != n {
			t.Errorf("%s reports = %d, want %d", kind, got, n)
		}
	}

	resolved := kinds(*entries, report.LogResolved)[0]
	if resolved.Value != 7 || !strings.Contains(resolved.Message, "Loop run OK, with returned value: 7") {
		t.Errorf("resolved entry = %+v", resolved)
	}
}

func TestRunWritesToLog(t *testing.T) {
	var buf bytes.Buffer
	lp := &Loop[int]{
		Reloader: &fakeReloader{},
		Prompter: &fakePrompter{decisions: []prompt.Decision{prompt.Continue}},
		Report:   &report.Sink{Log: &buf},
	}
	driver := func(context.Context, ...*module.Instance) (int, error) { return 42, nil }

	if _, err := lp.Run(context.Background(), Request[int]{Driver: driver}); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"── iteration 1 ──",
		"Running loop with reloaded modules: []",
		"Loop run OK, with returned value: 42",
		"Loop finished after 1 iteration(s).",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log should contain %q\ngot:\n%s", want, out)
		}
	}
}
