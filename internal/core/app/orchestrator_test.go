package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"social-rec/internal/core/profile"
)

type fakeSource struct {
	name   string
	fields map[string]string
	err    error
	panics bool
	gate   chan struct{}
	start  chan<- string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Collect(ctx context.Context, handle string, mode profile.Mode) (*profile.Record, error) {
	if f.start != nil {
		f.start <- f.name
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	rec := profile.NewRecord(handle)
	rec.Set("username", handle)
	rec.Set("mode", mode.String())
	for k, v := range f.fields {
		rec.Set(k, v)
	}
	return rec, nil
}

type waitRecorder struct {
	mu    sync.Mutex
	units []float64
	hook  func(call int) error
}

func (w *waitRecorder) Wait(ctx context.Context, units float64) error {
	w.mu.Lock()
	w.units = append(w.units, units)
	call := len(w.units)
	w.mu.Unlock()
	if w.hook != nil {
		return w.hook(call)
	}
	return ctx.Err()
}

func threeSources() []Source {
	return []Source{
		&fakeSource{name: "instagram", fields: map[string]string{"bio": "hola"}},
		&fakeSource{name: "twitter", err: errors.New("twitter: status 503")},
		&fakeSource{name: "email", fields: map[string]string{"found_emails": "alice@x.io"}},
	}
}

func TestOrchestratorIsolatesFailures(t *testing.T) {
	t.Parallel()

	orch := NewOrchestrator(threeSources(), profile.ModeParallel, nil)
	rep, err := orch.Run(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if diff := cmp.Diff([]string{"instagram", "twitter", "email"}, rep.Sources()); diff != "" {
		t.Fatalf("entry order mismatch (-want +got):\n%s", diff)
	}
	tw, _ := rep.Lookup("twitter")
	if !tw.Failed() || tw.Err != "twitter: status 503" {
		t.Fatalf("twitter entry = %+v", tw)
	}
	for _, name := range []string{"instagram", "email"} {
		e, _ := rep.Lookup(name)
		if e.Failed() || e.Record.Text("username") != "alice" {
			t.Fatalf("%s entry = %+v", name, e)
		}
	}
	if orch.State() != StateCompleted {
		t.Fatalf("state = %s, want completed", orch.State())
	}
}

func TestOrchestratorRecoversPanic(t *testing.T) {
	t.Parallel()

	sources := []Source{
		&fakeSource{name: "facebook", panics: true},
		&fakeSource{name: "phone"},
	}
	rep, err := NewOrchestrator(sources, profile.ModeParallel, nil).Run(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fb, _ := rep.Lookup("facebook")
	if fb.Err != "panic en la fuente: boom" || fb.Record != nil {
		t.Fatalf("facebook entry = %+v", fb)
	}
	if ph, _ := rep.Lookup("phone"); ph.Failed() {
		t.Fatalf("phone entry should succeed: %+v", ph)
	}
}

func TestStealthMatchesParallelShape(t *testing.T) {
	t.Parallel()

	parallel, err := NewOrchestrator(threeSources(), profile.ModeParallel, nil).Run(context.Background(), "alice")
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	waits := &waitRecorder{}
	stealth, err := NewOrchestrator(threeSources(), profile.ModeStealth, waits.Wait).Run(context.Background(), "alice")
	if err != nil {
		t.Fatalf("stealth: %v", err)
	}

	shape := func(rep *profile.Report) map[string][]string {
		out := map[string][]string{}
		for _, e := range rep.Entries {
			if e.Failed() {
				out[e.Source] = []string{"error"}
				continue
			}
			out[e.Source] = e.Record.Keys()
		}
		return out
	}
	if diff := cmp.Diff(shape(parallel), shape(stealth)); diff != "" {
		t.Fatalf("shape mismatch (-parallel +stealth):\n%s", diff)
	}
	if diff := cmp.Diff(parallel.Sources(), stealth.Sources()); diff != "" {
		t.Fatalf("order mismatch (-parallel +stealth):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{stealthGapUnits, stealthGapUnits}, waits.units); diff != "" {
		t.Fatalf("stealth gaps mismatch (-want +got):\n%s", diff)
	}

	if _, err := json.Marshal(stealth); err != nil {
		t.Fatalf("marshal stealth report: %v", err)
	}
}

func TestParallelLaunchesAllBeforeWaiting(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	started := make(chan string, 3)
	sources := []Source{
		&fakeSource{name: "instagram", gate: gate, start: started},
		&fakeSource{name: "facebook", gate: gate, start: started},
		&fakeSource{name: "snapchat", gate: gate, start: started},
	}

	done := make(chan *profile.Report, 1)
	go func() {
		rep, _ := NewOrchestrator(sources, profile.ModeParallel, nil).Run(context.Background(), "alice")
		done <- rep
	}()

	for i := 0; i < len(sources); i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d sources started concurrently", i)
		}
	}
	close(gate)

	select {
	case rep := <-done:
		if len(rep.Entries) != 3 {
			t.Fatalf("entries = %d, want 3", len(rep.Entries))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestCancelOmitsUnlaunchedSources(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	waits := &waitRecorder{hook: func(call int) error {
		cancel()
		return context.Canceled
	}}

	orch := NewOrchestrator(threeSources(), profile.ModeStealth, waits.Wait)
	rep, err := orch.Run(ctx, "alice")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"instagram"}, rep.Sources()); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}

	var skipped []string
	for _, m := range orch.metrics.Summaries() {
		if m.Skipped {
			skipped = append(skipped, m.Name)
		}
	}
	if diff := cmp.Diff([]string{"twitter", "email"}, skipped); diff != "" {
		t.Fatalf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestOrchestratorRunsOnce(t *testing.T) {
	t.Parallel()

	orch := NewOrchestrator(nil, profile.ModeParallel, nil)
	if orch.State() != StateIdle {
		t.Fatalf("state = %s, want idle", orch.State())
	}
	rep, err := orch.Run(context.Background(), "alice")
	if err != nil || len(rep.Entries) != 0 {
		t.Fatalf("first run: rep=%+v err=%v", rep, err)
	}
	if _, err := orch.Run(context.Background(), "alice"); !errors.Is(err, ErrAlreadyRun) {
		t.Fatalf("second run err = %v, want ErrAlreadyRun", err)
	}
	if orch.RunID() == "" {
		t.Fatal("run id should be set")
	}
}

func TestClassifySourceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.New("x"), "error"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "cancelado"},
		{errSourcePanic, "panic"},
	}
	for _, tt := range tests {
		if got := classifySourceError(tt.err); got != tt.want {
			t.Errorf("classifySourceError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestPercentileDuration(t *testing.T) {
	t.Parallel()

	durations := []time.Duration{5, 1, 3, 2, 4}
	if got := percentileDuration(durations, 95); got != 5 {
		t.Fatalf("p95 = %v, want 5", got)
	}
	if got := percentileDuration(durations, 50); got != 3 {
		t.Fatalf("p50 = %v, want 3", got)
	}
	if got := percentileDuration(nil, 95); got != 0 {
		t.Fatalf("empty = %v, want 0", got)
	}
}
