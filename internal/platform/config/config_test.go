package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	apperrors "social-rec/internal/platform/errors"
)

func resolve(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := Bind(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return flags.Resolve()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := resolve(t, "-u", "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := &Config{
		Username:  "alice",
		Platforms: []string{"all"},
		TimeoutS:  DefaultTimeoutS,
		Burst:     DefaultBurst,
		Proxy:     DefaultStealthProxy,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFlags(t *testing.T) {
	t.Parallel()

	cfg, err := resolve(t, "--username", "alice", "-vv", "-s", "-p", "Instagram, twitter,,", "-o", "out.json", "--seed", "7", "--no-color", "--proxy", "http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Verbosity != 2 || !cfg.Stealth || !cfg.NoColor || cfg.Seed != 7 || cfg.Output != "out.json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"instagram", "twitter"}, cfg.Platforms); diff != "" {
		t.Fatalf("platforms mismatch (-want +got):\n%s", diff)
	}
}

func TestFileOverlayFlagsWin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "cfg.yaml", "username: bob\nplatforms:\n  - instagram\n  - snapchat\ntimeout: 20\noutput: report.json\n"},
		{"json", "cfg.json", `{"username": "bob", "platforms": "instagram,snapchat", "timeout": 20, "output": "report.json"}`},
		{"toml", "cfg.toml", "username = \"bob\"\nplatforms = [\"instagram\", \"snapchat\"]\ntimeout = 20\noutput = \"report.json\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, tt.file, tt.content)
			cfg, err := resolve(t, "--config", path, "--timeout", "5")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if cfg.Username != "bob" || cfg.Output != "report.json" {
				t.Fatalf("file values not applied: %+v", cfg)
			}
			if cfg.TimeoutS != 5 {
				t.Fatalf("timeout = %d, explicit flag should win", cfg.TimeoutS)
			}
			if diff := cmp.Diff([]string{"instagram", "snapchat"}, cfg.Platforms); diff != "" {
				t.Fatalf("platforms mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequestRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		args      []string
		file      string
		wantRate  float64
		wantBurst int
	}{
		{"parallel unlimited", []string{"-u", "alice"}, "", 0, DefaultBurst},
		{"stealth default", []string{"-u", "alice", "-s", "--proxy", "http://127.0.0.1:1"}, "", DefaultStealthRate, DefaultBurst},
		{"stealth explicit", []string{"-u", "alice", "-s", "--proxy", "http://127.0.0.1:1", "--rate", "0.25", "--burst", "2"}, "", 0.25, 2},
		{"stealth explicit unlimited", []string{"-u", "alice", "-s", "--proxy", "http://127.0.0.1:1", "--rate", "0"}, "", 0, DefaultBurst},
		{"file rate", []string{"-u", "alice", "-s", "--proxy", "http://127.0.0.1:1"}, "rate: 3\nburst: 4\n", 3, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := tt.args
			if tt.file != "" {
				args = append(args, "--config", writeFile(t, "cfg.yaml", tt.file))
			}
			cfg, err := resolve(t, args...)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if cfg.Rate != tt.wantRate || cfg.Burst != tt.wantBurst {
				t.Fatalf("rate=%v burst=%d, want rate=%v burst=%d", cfg.Rate, cfg.Burst, tt.wantRate, tt.wantBurst)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"missing username", nil},
		{"handle with url chars", []string{"-u", "https://x.com/alice"}},
		{"zero timeout", []string{"-u", "alice", "--timeout", "0"}},
		{"empty platforms", []string{"-u", "alice", "-p", " , "}},
		{"negative rate", []string{"-u", "alice", "--rate", "-1"}},
		{"zero burst", []string{"-u", "alice", "--burst", "0"}},
		{"bad proxy scheme", []string{"-u", "alice", "-s", "--proxy", "ftp://127.0.0.1:21"}},
		{"proxy without host", []string{"-u", "alice", "-s", "--proxy", "socks5h://"}},
		{"missing config file", []string{"-u", "alice", "--config", "/nonexistent/social-rec.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolve(t, tt.args...)
			if !apperrors.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestInvalidFileFormat(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "cfg.json", `{"platforms": 3}`)
	if _, err := resolve(t, "-u", "alice", "--config", path); !apperrors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConfigureRootCAs(t *testing.T) {
	if err := ConfigureRootCAs(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if TLSConfig() != nil {
		t.Fatal("TLSConfig should be nil without custom CAs")
	}
	bad := writeFile(t, "ca.pem", "not a certificate")
	if err := ConfigureRootCAs(bad); !apperrors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
