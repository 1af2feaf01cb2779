// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// stroll-history speaks newline-delimited JSON-RPC 2.0 over stdio and
// serves historical market data out of local partition files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"storj.io/stroll/pkg/history"
	"storj.io/stroll/pkg/jsonrpc"
	"storj.io/stroll/pkg/wire"
)

var (
	rootCmd = &cobra.Command{
		Use:           "stroll-history",
		Short:         "Historical market data query service over stdio",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          cmdRun,
	}

	flagData      string
	flagLogLevel  string
	flagCacheSize int
)

func init() {
	rootCmd.Flags().StringVar(&flagData, "data", "./data", "data root holding partition files")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.Flags().IntVar(&flagCacheSize, "cache-size", 4096, "max response cache entries")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// A single structured diagnostic on stderr; stdout stays clean for
		// the protocol.
		diag, _ := json.Marshal(map[string]string{
			"service": wire.ServiceName,
			"fatal":   err.Error(),
		})
		fmt.Fprintln(os.Stderr, string(diag))
		os.Exit(1)
	}
}

func cmdRun(cmd *cobra.Command, args []string) (err error) {
	v := viper.New()
	v.SetEnvPrefix("STROLL")
	_ = v.BindEnv("data")                     // STROLL_DATA
	_ = v.BindEnv("log-level", "LOG_LEVEL")   // bare per the CLI contract
	_ = v.BindEnv("cache-size", "CACHE_SIZE") // bare per the CLI contract
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	v.SetDefault("data", flagData)
	v.SetDefault("log-level", flagLogLevel)
	v.SetDefault("cache-size", flagCacheSize)

	log, err := newLogger(v.GetString("log-level"))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	service, err := history.NewService(ctx, log, history.Config{
		DataRoot:  v.GetString("data"),
		CacheSize: v.GetInt("cache-size"),
	})
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, service.Close()) }()

	server, err := jsonrpc.NewServer(log.Named("rpc"), service, service.Tools(), jsonrpc.Config{
		ServiceName:    wire.ServiceName,
		ServiceVersion: wire.ServiceVersion,
	})
	if err != nil {
		return err
	}

	log.Info("serving",
		zap.String("service", wire.ServiceName),
		zap.String("version", wire.ServiceVersion),
		zap.String("data", v.GetString("data")))

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer cancel()
		return server.Serve(gctx, os.Stdin, os.Stdout)
	})
	return group.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parsed)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	return config.Build()
}
