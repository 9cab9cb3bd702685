package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/jetscope/internal/dataset"
)

func newPrepareCmd(a *app) *cobra.Command {
	var (
		rawDir    string
		outputDir string
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build train/val/test image directories from the variant manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Dataset
			if rawDir != "" {
				cfg.RawDir = rawDir
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if workers > 0 {
				cfg.Workers = workers
			}

			splitter := dataset.NewSplitter(dataset.Options{
				RawDir:    cfg.RawDir,
				ImageDir:  cfg.ImagesPath(),
				OutputDir: cfg.OutputDir,
				Normalizer: dataset.Normalizer{
					Width:  cfg.Width,
					Height: cfg.Height,
					Mean:   [3]float64{cfg.Mean[0], cfg.Mean[1], cfg.Mean[2]},
					Std:    [3]float64{cfg.Std[0], cfg.Std[1], cfg.Std[2]},
				},
				JPEGQuality:  cfg.JPEGQuality,
				Workers:      cfg.Workers,
				ProgressOut:  os.Stderr,
				ShowProgress: isatty.IsTerminal(os.Stderr.Fd()),
			}, a.logger)

			report, err := splitter.Run(cmd.Context())
			if err != nil {
				return err
			}

			a.logger.Info("dataset prepared",
				zap.String("output", cfg.OutputDir),
				zap.Int("written", report.Written()),
				zap.Int("failed", report.Failed()),
			)
			for _, s := range report.Splits {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\twritten=%d\tfailed=%d\n", s.Name, s.Written, s.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rawDir, "raw", "", "raw data directory holding the manifests, overrides dataset.rawdir")
	cmd.Flags().StringVar(&outputDir, "out", "", "output root for the split directories, overrides dataset.outputdir")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel image workers, overrides dataset.workers")

	return cmd
}
