// Package app orquesta una corrida: valida las fuentes pedidas, comprueba la
// conectividad, lanza resolvers y finders y entrega el reporte agregado.
package app

import (
	"context"
	"io"
	"os"
	"strings"

	"social-rec/internal/adapters/fetch"
	"social-rec/internal/adapters/report"
	"social-rec/internal/core/profile"
	"social-rec/internal/platform/config"
	"social-rec/internal/platform/logx"
	"social-rec/internal/platform/netutil"
)

// Puntos de inyección para tests.
var (
	connectivityCheck = func(ctx context.Context) error {
		return netutil.NewChecker().Check(ctx)
	}
	gatewayFactory = func(opts fetch.Options) (runGateway, error) {
		return fetch.New(opts)
	}
	registryFactory = func(gw Gateway) *Registry {
		return NewRegistry(gw)
	}
)

// runGateway es el Gateway de las fuentes más la espera fija del modo stealth.
type runGateway interface {
	Gateway
	Wait(ctx context.Context, n float64) error
	Proxied() bool
}

// Run ejecuta la corrida descrita por cfg y escribe el reporte en stdout. Los
// errores de configuración y de conectividad se retornan antes de lanzar fuentes.
func Run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	logx.SetVerbosity(cfg.Verbosity)
	logx.EnableColors(!cfg.NoColor && logx.IsTerminal(os.Stderr))

	if err := config.ConfigureRootCAs(cfg.ProxyCACert); err != nil {
		return err
	}

	mode := profile.ModeParallel
	opts := fetch.Options{
		Timeout:           cfg.Timeout(),
		Seed:              cfg.Seed,
		RequestsPerSecond: cfg.Rate,
		Burst:             cfg.Burst,
		TLSConfig:         config.TLSConfig(),
	}
	if cfg.Stealth {
		mode = profile.ModeStealth
		opts.ProxyURL = cfg.Proxy
	}

	gw, err := gatewayFactory(opts)
	if err != nil {
		return err
	}

	registry := registryFactory(gw)
	sources, err := registry.Select(cfg.Platforms)
	if err != nil {
		return err
	}
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name()
	}

	if err := connectivityCheck(ctx); err != nil {
		return err
	}

	display := report.Options{NoColor: cfg.NoColor}
	if err := report.Banner(stdout, cfg.Username, mode, names, display); err != nil {
		return err
	}

	orch := NewOrchestrator(sources, mode, gw.Wait)
	logx.Info("fuentes habilitadas", logx.Fields{
		"run_id":  orch.RunID(),
		"sources": strings.Join(names, ", "),
		"proxied": gw.Proxied(),
	})
	rep, err := orch.Run(ctx, cfg.Username)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		logx.Warnf("corrida %s interrumpida: en el reporte [%s], omitidas [%s]",
			orch.RunID(), strings.Join(rep.Sources(), ", "), strings.Join(omitted(rep, names), ", "))
	}

	if err := report.Display(stdout, rep, display); err != nil {
		return err
	}

	if cfg.Output != "" {
		if err := report.Save(cfg.Output, rep); err != nil {
			logx.Errorf("no se pudo guardar el reporte: %v", err)
		} else {
			logx.Infof("reporte guardado en %s", cfg.Output)
		}
	}
	return nil
}

// omitted retorna las fuentes de names sin entrada en rep.
func omitted(rep *profile.Report, names []string) []string {
	var out []string
	for _, name := range names {
		if _, ok := rep.Lookup(name); !ok {
			out = append(out, name)
		}
	}
	return out
}
