package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"social-rec/internal/core/app"
	"social-rec/internal/platform/config"
	"social-rec/internal/platform/logx"
)

// version se fija en build vía -ldflags.
var version = "dev"

// runApp se reemplaza en tests.
var runApp = app.Run

func newRootCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "social-rec -u <handle>",
		Short: "Reconocimiento de perfiles sociales públicos a partir de un handle",
		Long: "social-rec consulta Instagram, Facebook, Twitter y Snapchat para un handle,\n" +
			"busca emails y teléfonos asociados en motores de búsqueda y agrega todo en un reporte.",
		Args:          cobra.NoArgs,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	cmd.SetOut(stdout)

	flags := config.Bind(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := flags.Resolve()
		if err != nil {
			return err
		}
		return runApp(cmd.Context(), cfg, cmd.OutOrStdout())
	}
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		logx.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}
