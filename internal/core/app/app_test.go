package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"social-rec/internal/adapters/fetch"
	"social-rec/internal/core/profile"
	"social-rec/internal/platform/config"
	apperrors "social-rec/internal/platform/errors"
	"social-rec/internal/platform/logx"
)

type fakeGateway struct {
	waits   []float64
	proxied bool
}

func (g *fakeGateway) Get(ctx context.Context, url string, headers map[string]string) (*fetch.Response, error) {
	return nil, apperrors.NewStatusError("get", url, 404)
}

func (g *fakeGateway) Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error) {
	return nil, apperrors.NewStatusError("fetch", req.URL, 404)
}

func (g *fakeGateway) Pause(ctx context.Context, lo, hi float64) error { return ctx.Err() }

func (g *fakeGateway) Proxied() bool { return g.proxied }

func (g *fakeGateway) Wait(ctx context.Context, n float64) error {
	g.waits = append(g.waits, n)
	return ctx.Err()
}

type runHarness struct {
	gw       *fakeGateway
	opts     fetch.Options
	checked  bool
	checkErr error
}

// withHarness reemplaza los puntos de inyección del paquete. Los tests que lo usan
// no pueden correr en paralelo.
func withHarness(t *testing.T) *runHarness {
	t.Helper()
	h := &runHarness{gw: &fakeGateway{}}

	prevCheck, prevGateway, prevRegistry := connectivityCheck, gatewayFactory, registryFactory
	t.Cleanup(func() {
		connectivityCheck, gatewayFactory, registryFactory = prevCheck, prevGateway, prevRegistry
	})

	connectivityCheck = func(ctx context.Context) error {
		h.checked = true
		return h.checkErr
	}
	gatewayFactory = func(opts fetch.Options) (runGateway, error) {
		h.opts = opts
		h.gw.proxied = opts.ProxyURL != ""
		return h.gw, nil
	}
	registryFactory = func(gw Gateway) *Registry {
		reg := &Registry{}
		reg.Register(&fakeSource{name: "instagram", fields: map[string]string{"bio": "hola"}})
		reg.Register(&fakeSource{name: "twitter", err: errors.New("twitter: status 503")})
		reg.Register(&fakeSource{name: "email"})
		return reg
	}
	return h
}

func baseConfig() *config.Config {
	return &config.Config{
		Username:  "alice",
		Platforms: []string{"all"},
		TimeoutS:  10,
		Burst:     config.DefaultBurst,
		Proxy:     config.DefaultStealthProxy,
		NoColor:   true,
	}
}

func TestRunWritesReport(t *testing.T) {
	h := withHarness(t)

	cfg := baseConfig()
	cfg.Output = filepath.Join(t.TempDir(), "report.json")

	var stdout bytes.Buffer
	if err := Run(context.Background(), cfg, &stdout); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"[*] Objetivo: alice", "[+] INSTAGRAM", "bio: hola", "Error: twitter: status 503", "[+] EMAIL"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stdout missing %q:\n%s", want, out)
		}
	}
	if !h.checked {
		t.Fatal("connectivity should be checked")
	}
	if h.opts.ProxyURL != "" {
		t.Fatalf("parallel mode should not use a proxy, got %q", h.opts.ProxyURL)
	}
	if h.opts.RequestsPerSecond != 0 || h.opts.Burst != config.DefaultBurst {
		t.Fatalf("rate=%v burst=%d, want unlimited", h.opts.RequestsPerSecond, h.opts.Burst)
	}
	if len(h.gw.waits) != 0 {
		t.Fatalf("parallel mode should not wait, got %v", h.gw.waits)
	}

	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(data, []byte(`"twitter": {`+"\n"+`        "error": "twitter: status 503"`)) {
		t.Fatalf("unexpected report file:\n%s", data)
	}
}

func TestRunStealthUsesProxyAndGaps(t *testing.T) {
	h := withHarness(t)

	cfg := baseConfig()
	cfg.Stealth = true
	cfg.Rate = config.DefaultStealthRate
	cfg.Burst = 2
	cfg.Platforms = []string{"instagram", "email"}

	var stdout bytes.Buffer
	if err := Run(context.Background(), cfg, &stdout); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.opts.ProxyURL != config.DefaultStealthProxy {
		t.Fatalf("proxy = %q, want %q", h.opts.ProxyURL, config.DefaultStealthProxy)
	}
	if h.opts.RequestsPerSecond != config.DefaultStealthRate || h.opts.Burst != 2 {
		t.Fatalf("rate=%v burst=%d, want the configured limiter", h.opts.RequestsPerSecond, h.opts.Burst)
	}
	if len(h.gw.waits) != 1 || h.gw.waits[0] != stealthGapUnits {
		t.Fatalf("waits = %v, want one gap of %d units", h.gw.waits, stealthGapUnits)
	}
	if !strings.Contains(stdout.String(), "mode: "+profile.ModeStealth.String()) {
		t.Fatalf("sources should run in stealth mode:\n%s", stdout.String())
	}
}

func TestRunRejectsUnknownPlatformBeforeNetwork(t *testing.T) {
	h := withHarness(t)

	cfg := baseConfig()
	cfg.Platforms = []string{"instagram", "myspace"}

	var stdout bytes.Buffer
	err := Run(context.Background(), cfg, &stdout)
	if !apperrors.IsConfiguration(err) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if h.checked {
		t.Fatal("connectivity must not be checked for an invalid configuration")
	}
	if stdout.Len() != 0 {
		t.Fatalf("nothing should be printed, got:\n%s", stdout.String())
	}
}

func TestRunFailsWithoutConnectivity(t *testing.T) {
	h := withHarness(t)
	h.checkErr = apperrors.NewNetworkError("connectivity check", "https://www.google.com", errors.New("no route"))

	var stdout bytes.Buffer
	err := Run(context.Background(), baseConfig(), &stdout)
	if !apperrors.IsNetwork(err) {
		t.Fatalf("err = %v, want network error", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("no report expected, got:\n%s", stdout.String())
	}
}

func TestRunSaveFailureIsNotFatal(t *testing.T) {
	withHarness(t)

	cfg := baseConfig()
	cfg.Output = filepath.Join(t.TempDir(), "missing", "report.json")

	var stdout bytes.Buffer
	if err := Run(context.Background(), cfg, &stdout); err != nil {
		t.Fatalf("Run should not fail when the report cannot be saved: %v", err)
	}
	if !strings.Contains(stdout.String(), "[+] INSTAGRAM") {
		t.Fatalf("report should still be displayed:\n%s", stdout.String())
	}
}

func TestRunLogsRunIDAndProxy(t *testing.T) {
	withHarness(t)

	var logs bytes.Buffer
	logx.SetOutput(&logs)
	t.Cleanup(func() {
		logx.SetOutput(nil)
		logx.SetVerbosity(0)
	})

	cfg := baseConfig()
	cfg.Stealth = true
	cfg.Verbosity = 1

	var stdout bytes.Buffer
	if err := Run(context.Background(), cfg, &stdout); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, want := range []string{"fuentes habilitadas", "proxied=true", "run_id="} {
		if !strings.Contains(logs.String(), want) {
			t.Fatalf("log should contain %q:\n%s", want, logs.String())
		}
	}
}

func TestOmittedSources(t *testing.T) {
	t.Parallel()

	rep := &profile.Report{Entries: []profile.Entry{
		{Source: "instagram", Record: profile.NewRecord("alice")},
		{Source: "email", Err: "boom"},
	}}
	got := omitted(rep, []string{"instagram", "twitter", "email", "phone"})
	if diff := cmp.Diff([]string{"twitter", "phone"}, got); diff != "" {
		t.Fatalf("omitted mismatch (-want +got):\n%s", diff)
	}
	if got := omitted(rep, []string{"instagram"}); got != nil {
		t.Fatalf("omitted = %v, want none", got)
	}
}
