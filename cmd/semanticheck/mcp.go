package main

import (
	"context"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"semanticheck/internal/adapter/mcpserver"
)

func mcpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis tools over the Model Context Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runMCP(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	// stdout carries the protocol stream.
	if strings.EqualFold(cfg.Logger.Output, "stdout") {
		cfg.Logger.Output = "stderr"
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.Info("mcp server starting", "version", version)
	return mcpserver.New(a.analyzer, version, cfg.Server.MaxUploadBytes, a.log).Serve(ctx, in, out)
}
