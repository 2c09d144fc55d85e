package fetch

import (
	"context"
	"time"
)

// Pause duerme un tiempo aleatorio uniforme en [lo, hi] unidades (DelayUnit).
// Retorna ctx.Err() si el contexto se cancela antes.
func (g *Gateway) Pause(ctx context.Context, lo, hi float64) error {
	return g.sleepFor(ctx, g.Jitter(lo, hi))
}

// Jitter retorna la duración que Pause dormiría para [lo, hi].
func (g *Gateway) Jitter(lo, hi float64) time.Duration {
	if hi < lo {
		lo, hi = hi, lo
	}
	g.mu.Lock()
	f := g.rng.Float64()
	g.mu.Unlock()
	units := lo + f*(hi-lo)
	return time.Duration(units * float64(g.opts.DelayUnit))
}

// Wait duerme exactamente n unidades.
func (g *Gateway) Wait(ctx context.Context, n float64) error {
	return g.sleepFor(ctx, time.Duration(n*float64(g.opts.DelayUnit)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
