package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"semanticheck/internal/adapter/report"
	"semanticheck/internal/domain"
	"semanticheck/internal/usecase"
)

// outputFlags are shared by the commands that print an analysis.
type outputFlags struct {
	json  bool
	width int
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the result as JSON")
	cmd.Flags().IntVar(&f.width, "width", 80, "Wrap width for rendered text")
}

func compareCommand(opts *options) *cobra.Command {
	var (
		detailed bool
		out      outputFlags
	)
	cmd := &cobra.Command{
		Use:   "compare FILE_A FILE_B",
		Short: "Score the semantic similarity of two .txt or .docx documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := report.New(cmd.OutOrStdout(), out.width, out.json)
			return runCompare(cmd.Context(), opts, args[0], args[1], detailed, r)
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Add the LLM comparative analysis")
	out.register(cmd)
	return cmd
}

func runCompare(ctx context.Context, opts *options, pathA, pathB string, detailed bool, r *report.Renderer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	textA, err := readDocument(a.analyzer, pathA, cfg.Server.MaxUploadBytes)
	if err != nil {
		return err
	}
	textB, err := readDocument(a.analyzer, pathB, cfg.Server.MaxUploadBytes)
	if err != nil {
		return err
	}

	if !detailed {
		res, err := a.analyzer.Local(ctx, textA, textB)
		if err != nil {
			return err
		}
		return r.Similarity(res)
	}

	res, err := a.analyzer.Detailed(ctx, textA, textB)
	if err != nil {
		return err
	}
	return r.Detailed(res)
}

// readDocument loads a file from disk and extracts its text, applying the
// same size limit and format rules as an upload.
func readDocument(analyzer *usecase.Analyzer, path string, maxBytes int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: is a directory", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", fmt.Errorf("%s: %w", path, domain.ErrInputTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return analyzer.ExtractText(filepath.Base(path), data)
}
