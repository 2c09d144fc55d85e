package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"social-rec/internal/platform/config"
	apperrors "social-rec/internal/platform/errors"
)

func TestRootRequiresUsername(t *testing.T) {
	called := false
	prev := runApp
	runApp = func(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
		called = true
		return nil
	}
	t.Cleanup(func() { runApp = prev })

	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"-p", "instagram"})
	err := cmd.ExecuteContext(context.Background())
	if !apperrors.IsConfiguration(err) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if called {
		t.Fatal("app must not run without a username")
	}
}

func TestRootPassesResolvedConfig(t *testing.T) {
	var got *config.Config
	prev := runApp
	runApp = func(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
		got = cfg
		return nil
	}
	t.Cleanup(func() { runApp = prev })

	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"-u", "alice", "-p", "twitter,email", "-v", "--timeout", "4"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got == nil {
		t.Fatal("app was not called")
	}
	if got.Username != "alice" || got.TimeoutS != 4 || got.Verbosity != 1 {
		t.Fatalf("unexpected config: %+v", got)
	}
	if len(got.Platforms) != 2 || got.Platforms[0] != "twitter" || got.Platforms[1] != "email" {
		t.Fatalf("platforms = %v", got.Platforms)
	}
}

func TestRootRejectsPositionalArgs(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"-u", "alice", "extra"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for positional args")
	}
}
