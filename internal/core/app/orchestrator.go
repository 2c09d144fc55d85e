package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"social-rec/internal/core/profile"
	"social-rec/internal/platform/logx"
)

// State es la fase del ciclo de vida de un Orchestrator.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// stealthGapUnits es la espera entre lanzamientos sucesivos en modo stealth.
const stealthGapUnits = 3

// WaitFunc duerme n unidades de retardo o retorna ctx.Err().
type WaitFunc func(ctx context.Context, units float64) error

// ErrAlreadyRun se retorna al reutilizar un Orchestrator.
var ErrAlreadyRun = errors.New("orquestador: la corrida ya fue ejecutada")

// Orchestrator lanza cada fuente exactamente una vez y agrega los resultados en
// el orden de habilitación. Un fallo o panic de una fuente solo afecta a su entrada.
type Orchestrator struct {
	sources []Source
	mode    profile.Mode
	wait    WaitFunc
	state   atomic.Int32
	metrics *runMetrics
	runID   string
}

// NewOrchestrator prepara una corrida. wait controla el hueco entre lanzamientos en
// modo stealth; nil usa segundos reales.
func NewOrchestrator(sources []Source, mode profile.Mode, wait WaitFunc) *Orchestrator {
	if wait == nil {
		wait = sleepUnits
	}
	return &Orchestrator{
		sources: sources,
		mode:    mode,
		wait:    wait,
		metrics: newRunMetrics(),
		runID:   uuid.NewString(),
	}
}

// State retorna la fase actual.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// RunID identifica la corrida en los logs.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run ejecuta las fuentes para handle. Si ctx se cancela entre lanzamientos, las
// fuentes pendientes se omiten del reporte; las ya lanzadas se esperan siempre.
func (o *Orchestrator) Run(ctx context.Context, handle string) (*profile.Report, error) {
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrAlreadyRun
	}
	defer o.state.Store(int32(StateCompleted))

	logx.Info("run_start", logx.Fields{
		"run_id":  o.runID,
		"handle":  handle,
		"mode":    o.mode.String(),
		"sources": len(o.sources),
	})

	start := time.Now()
	for _, src := range o.sources {
		o.metrics.RecordEnqueue(src.Name(), start)
	}

	slots := make([]*profile.Entry, len(o.sources))
	var g errgroup.Group
	for i, src := range o.sources {
		if o.mode == profile.ModeStealth && i > 0 {
			if err := o.wait(ctx, stealthGapUnits); err != nil {
				o.skipFrom(i, err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			o.skipFrom(i, err)
			break
		}

		run := o.metrics.Wrap(src.Name(), func() error {
			entry, err := o.collect(ctx, src, handle)
			slots[i] = &entry
			return err
		})
		g.Go(func() error {
			_ = run()
			return nil
		})
	}
	_ = g.Wait()

	report := &profile.Report{Handle: handle, Mode: o.mode}
	for _, slot := range slots {
		if slot != nil {
			report.Entries = append(report.Entries, *slot)
		}
	}

	logRunMetrics(o.metrics, o.runID, o.mode.String(), time.Since(start))
	return report, nil
}

// collect ejecuta una fuente y convierte errores y panics en una entrada de error.
func (o *Orchestrator) collect(ctx context.Context, src Source, handle string) (entry profile.Entry, err error) {
	name := src.Name()
	entry.Source = name
	op := logx.StartOperation(name, "collect", logx.Fields{"run_id": o.runID})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errSourcePanic, r)
			entry.Record = nil
			entry.Err = err.Error()
			op.Fail(err)
		}
	}()

	rec, err := src.Collect(ctx, handle, o.mode)
	if err != nil {
		entry.Err = err.Error()
		op.Fail(err)
		return entry, err
	}
	if rec == nil {
		rec = profile.NewRecord(handle)
	}
	entry.Record = rec
	o.metrics.RecordFields(name, rec.Len())
	op.AddField("fields", rec.Len())
	op.Complete()
	return entry, nil
}

func (o *Orchestrator) skipFrom(i int, cause error) {
	for _, src := range o.sources[i:] {
		o.metrics.RecordSkip(src.Name(), cause.Error())
		logx.SourceDebugf(src.Name(), "omitida: %v", cause)
	}
}

func sleepUnits(ctx context.Context, units float64) error {
	t := time.NewTimer(time.Duration(units * float64(time.Second)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
