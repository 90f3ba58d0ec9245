package main

import (
	"context"
	"fmt"
	"os"

	"chitieu/internal/backend"
	"chitieu/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stderr, cfg.LogLevel)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	root := cli.NewRootCommand(func(ctx context.Context) (*backend.Result, error) {
		return cli.OpenBackend(ctx, logger, cfg)
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
