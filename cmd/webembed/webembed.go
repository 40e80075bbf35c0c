// Package main provides the webembed command-line interface.
// webembed turns a web source folder into generated source files that embed
// every asset, plus a registry to look them up by path.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arhuman/webembed/internal/config"
	"github.com/arhuman/webembed/internal/emit"
	"github.com/arhuman/webembed/internal/logging"
	"github.com/arhuman/webembed/internal/pipeline"
	"github.com/arhuman/webembed/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Check for version flag
	if len(args) > 0 && (args[0] == "--version" || args[0] == "-v") {
		fmt.Fprintf(stdout, "webembed %s\n", version.Info())
		return pipeline.ExitOK
	}

	// Load configuration from flags, environment, .env and webembed.yaml
	cfg, err := config.LoadPipelineConfig(args, nil)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(stderr, emit.FormatHelp())
			return pipeline.ExitOK
		}
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return pipeline.ExitConfig
	}

	logger, _, err := logging.SetupLogger(cfg.Debug, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return pipeline.ExitConfig
	}
	defer logger.Sync()

	logger.Info("Starting webembed", zap.String("version", version.Component("webembed")))
	cfg.LogConfig(logger)

	driver, err := pipeline.NewDriver(cfg, logger)
	if err != nil {
		return fail(stderr, logger, err)
	}

	result, err := driver.Run(ctx)
	if err != nil {
		return fail(stderr, logger, err)
	}

	if cfg.ServeAddr == "" {
		return pipeline.ExitOK
	}

	lis, err := net.Listen("tcp", cfg.ServeAddr)
	if err != nil {
		return fail(stderr, logger, fmt.Errorf("failed to listen on %s: %w", cfg.ServeAddr, err))
	}
	if err := servePreview(ctx, lis, newPreviewServer(result, logger), logger); err != nil {
		return fail(stderr, logger, fmt.Errorf("preview server failed: %w", err))
	}
	return pipeline.ExitOK
}

func fail(stderr io.Writer, logger *zap.Logger, err error) int {
	code := pipeline.ExitCode(err)
	logger.Error("webembed failed", zap.Error(err), zap.Int("exit_code", code))
	fmt.Fprintf(stderr, "webembed: %v\n", err)
	return code
}
