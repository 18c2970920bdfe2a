package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/internal/telemetry"
	fileAdapter "github.com/aretw0/weft/pkg/adapters/file"
	redisAdapter "github.com/aretw0/weft/pkg/adapters/redis"
	"github.com/aretw0/weft/pkg/script"
)

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "Weft compiles dataflow router configurations",
	Long: `Weft reads router configurations made of element declarations and connections,
expands compound element classes, checks requirements and resolves the push/pull
processing of every port.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("elementmap", "e", "", "Element map file (YAML/JSON) or directory of class documents")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().String("otel-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "OTLP gRPC endpoint for traces")
	rootCmd.PersistentFlags().String("cache-dir", "", "Cache compiled results in this directory")
	rootCmd.PersistentFlags().String("redis", "", "Cache compiled results in Redis at this address")
}

// env is what every command needs: a compiler and a way to release it.
type env struct {
	compiler *weft.Compiler
	logger   *slog.Logger
	close    func()
}

// setup builds the compiler from the persistent flags.
func setup(cmd *cobra.Command, opts ...weft.Option) (*env, error) {
	flags := cmd.Flags()
	levelName, _ := flags.GetString("log-level")
	asJSON, _ := flags.GetBool("log-json")
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	logger := logging.NewWriter(cmd.ErrOrStderr(), level, asJSON)

	endpoint, _ := flags.GetString("otel-endpoint")
	shutdown, err := telemetry.Setup(cmd.Context(), endpoint, "weft")
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	closers := []func(){func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", "err", err)
		}
	}}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	base := []weft.Option{weft.WithLogger(logger)}
	cacheDir, _ := flags.GetString("cache-dir")
	redisAddr, _ := flags.GetString("redis")
	switch {
	case redisAddr != "":
		store := redisAdapter.New(redisAddr, os.Getenv("WEFT_REDIS_PASSWORD"), 0)
		closers = append(closers, func() { _ = store.Close() })
		base = append(base,
			weft.WithStore(store),
			weft.WithLocker(redisAdapter.NewLocker(store.Client(), redisAdapter.DefaultPrefix), 0),
		)
	case cacheDir != "":
		base = append(base, weft.WithStore(fileAdapter.New(cacheDir)))
	}

	path, _ := flags.GetString("elementmap")
	c, err := weft.New(path, append(base, opts...)...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return &env{compiler: c, logger: logger, close: closeAll}, nil
}

// readSource reads a script from the named file, or stdin for "-".
func readSource(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

// decodeScript reads and decodes a script argument.
func decodeScript(cmd *cobra.Command, args []string) (*script.Script, error) {
	if len(args) > 0 && args[0] != "-" {
		return script.DecodeFile(args[0])
	}
	data, err := readSource(cmd, args)
	if err != nil {
		return nil, err
	}
	return script.Decode(data)
}
