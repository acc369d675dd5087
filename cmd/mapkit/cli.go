package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/OCAP2/mapkit/internal/config"
	"github.com/OCAP2/mapkit/internal/logging"
	mkotel "github.com/OCAP2/mapkit/internal/otel"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "mapkit"

// app is the per-invocation state shared by subcommands.
type app struct {
	configDir string
	verbose   bool
	start     time.Time

	logs    *logging.SlogManager
	logFile *os.File
	otel    *mkotel.Provider
}

func newRootCmd() *cobra.Command {
	a := &app{logs: logging.NewSlogManager()}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Offline marker clustering for mapkit views",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.configDir, "config", "c", "", "directory containing "+config.FileName+" (defaults when empty)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newClusterCmd(a))
	root.AddCommand(newConfigCmd(a))
	return root
}

func (a *app) setup(ctx context.Context, stderr io.Writer) error {
	a.start = time.Now()

	viper.Reset()
	if a.configDir == "" {
		config.Defaults()
	} else if err := config.Load(a.configDir); err != nil {
		return err
	}

	level := config.GetString("logLevel")
	if a.verbose {
		level = "debug"
	}

	var out io.Writer
	if dir := config.GetString("logsDir"); dir != "" && dir != "-" {
		f, err := logging.OpenLogFile(dir, appName, a.start)
		if err != nil {
			return err
		}
		a.logFile, out = f, f
	}

	provider, err := mkotel.New(ctx, mkotel.FromConfig(config.GetOTelConfig(), out))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	provider.Install()
	a.otel = provider

	if out == nil {
		out = stderr
	}
	a.logs.Setup(logging.Options{
		File:     out,
		Level:    level,
		Provider: provider.LoggerProvider(),
	})
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if err := a.logs.Flush(ctx); err != nil {
		a.logger().Warn("log flush failed", "error", err)
	}
	var err error
	if a.otel != nil {
		err = a.otel.Shutdown(ctx)
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
	return err
}

func (a *app) logger() *slog.Logger {
	return a.logs.Logger()
}

// eventsLogger feeds widget listener diagnostics through zerolog to the
// same sink as the slog handlers.
func (a *app) eventsLogger(stderr io.Writer) *logging.ZerologEvents {
	var out io.Writer = stderr
	if a.logFile != nil {
		out = a.logFile
	}
	lvl := zerolog.InfoLevel
	if a.logs.Level() <= slog.LevelDebug {
		lvl = zerolog.DebugLevel
	}
	zl := zerolog.New(out).Level(lvl).With().Timestamp().Str("component", "widget").Logger()
	return logging.NewZerologEvents(zl)
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(viper.AllSettings())
		},
	}
}
