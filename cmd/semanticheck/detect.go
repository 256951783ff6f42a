package main

import (
	"context"

	"github.com/spf13/cobra"

	"semanticheck/internal/adapter/report"
)

func detectCommand(opts *options) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "detect FILE",
		Short: "Estimate whether a .txt or .docx document was written by an AI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := report.New(cmd.OutOrStdout(), out.width, out.json)
			return runDetect(cmd.Context(), opts, args[0], r)
		},
	}
	out.register(cmd)
	return cmd
}

func runDetect(ctx context.Context, opts *options, path string, r *report.Renderer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	text, err := readDocument(a.analyzer, path, cfg.Server.MaxUploadBytes)
	if err != nil {
		return err
	}
	res, err := a.analyzer.DetectAI(ctx, text)
	if err != nil {
		return err
	}
	return r.Detection(res)
}
