package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	apperrors "social-rec/internal/platform/errors"
	"social-rec/internal/platform/logx"
)

// Partial son los campos producidos por una estrategia. Una clave presente
// significa que la estrategia encontró el dato.
type Partial map[string]any

// SetString asigna key solo si value no está vacío.
func (p Partial) SetString(key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		p[key] = v
	}
}

// SetInt asigna key si ok.
func (p Partial) SetInt(key string, value int64, ok bool) {
	if ok {
		p[key] = value
	}
}

// Strategy es un intento de extracción dentro de una cadena de fallback.
type Strategy interface {
	Name() string
	// Provides lista los campos que la estrategia puede producir. Si todos
	// ya están cubiertos por estrategias anteriores, la cadena la omite.
	Provides() []string
	TryExtract(ctx context.Context) (Partial, error)
}

// Guarded permite a una estrategia decidir si corre según lo ya extraído.
type Guarded interface {
	ShouldRun(d *Draft) bool
}

// StrategyFunc adapta una función a Strategy.
type StrategyFunc struct {
	Label  string
	Fields []string
	Guard  func(d *Draft) bool
	Fn     func(ctx context.Context) (Partial, error)
}

func (s StrategyFunc) Name() string       { return s.Label }
func (s StrategyFunc) Provides() []string { return s.Fields }

func (s StrategyFunc) TryExtract(ctx context.Context) (Partial, error) {
	return s.Fn(ctx)
}

func (s StrategyFunc) ShouldRun(d *Draft) bool {
	if s.Guard == nil {
		return true
	}
	return s.Guard(d)
}

// Outcome es el resultado tipado de una estrategia dentro de la cadena.
type Outcome struct {
	Strategy string
	Partial  Partial
	// Merged son los campos que efectivamente entraron al borrador.
	Merged  []string
	Err     error
	Skipped bool
}

// OK reporta si la estrategia produjo al menos un campo.
func (o Outcome) OK() bool {
	return o.Err == nil && !o.Skipped && len(o.Partial) > 0
}

// Draft es el borrador que la cadena va completando.
type Draft struct {
	values     map[string]any
	provenance map[string]string
}

// NewDraft crea un borrador vacío.
func NewDraft() *Draft {
	return &Draft{values: make(map[string]any), provenance: make(map[string]string)}
}

// Has reporta si key ya está cubierto.
func (d *Draft) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Get retorna key.
func (d *Draft) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Len retorna la cantidad de campos cubiertos.
func (d *Draft) Len() int {
	return len(d.values)
}

// merge agrega los campos de p sin sobrescribir. Retorna los que entraron.
func (d *Draft) merge(p Partial, strategy string) []string {
	var merged []string
	for k, v := range p {
		if _, ok := d.values[k]; ok {
			continue
		}
		d.values[k] = v
		d.provenance[k] = strategy
		merged = append(merged, k)
	}
	return merged
}

// Into copia al registro los campos en el orden de layout y luego el resto
// de campos en orden alfabético.
func (d *Draft) Into(r *Record, layout []string) {
	done := make(map[string]struct{}, len(layout))
	for _, k := range layout {
		if v, ok := d.values[k]; ok {
			r.SetFrom(k, v, d.provenance[k])
			done[k] = struct{}{}
		}
	}
	var rest []string
	for k := range d.values {
		if _, ok := done[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		r.SetFrom(k, d.values[k], d.provenance[k])
	}
}

// Chain ejecuta estrategias en orden fijo, fusionando de izquierda a derecha
// sin sobrescribir.
type Chain struct {
	Source     string
	Strategies []Strategy
}

// Run ejecuta la cadena sobre un borrador nuevo.
func (c Chain) Run(ctx context.Context) (*Draft, []Outcome) {
	d := NewDraft()
	return d, c.RunInto(ctx, d)
}

// RunInto ejecuta la cadena sobre d. Los fallos de cada estrategia quedan en su
// Outcome; un panic dentro de una estrategia también se convierte en error.
func (c Chain) RunInto(ctx context.Context, d *Draft) []Outcome {
	outcomes := make([]Outcome, 0, len(c.Strategies))
	for _, s := range c.Strategies {
		if ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{Strategy: s.Name(), Err: ctx.Err(), Skipped: true})
			continue
		}
		if covered(d, s.Provides()) {
			outcomes = append(outcomes, Outcome{Strategy: s.Name(), Skipped: true})
			continue
		}
		if g, ok := s.(Guarded); ok && !g.ShouldRun(d) {
			outcomes = append(outcomes, Outcome{Strategy: s.Name(), Skipped: true})
			continue
		}

		partial, err := tryExtract(ctx, s)
		if err == nil && len(partial) == 0 {
			err = apperrors.NewShapeError(s.Name(), "sin campos")
		}
		out := Outcome{Strategy: s.Name(), Partial: partial, Err: err}
		if err != nil {
			logx.LogSource(logx.LevelDebug, c.Source, "estrategia sin resultado", logx.Fields{
				"strategy": s.Name(),
				"kind":     string(apperrors.Classify(err)),
				"error":    apperrors.Brief(err),
			})
		} else {
			out.Merged = d.merge(partial, s.Name())
			logx.LogSource(logx.LevelDebug, c.Source, "estrategia completada", logx.Fields{
				"strategy": s.Name(),
				"fields":   len(out.Merged),
			})
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func tryExtract(ctx context.Context, s Strategy) (p Partial, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("estrategia %s: panic: %v", s.Name(), r)
		}
	}()
	return s.TryExtract(ctx)
}

func covered(d *Draft, fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !d.Has(f) {
			return false
		}
	}
	return true
}
