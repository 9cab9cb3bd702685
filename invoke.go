package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/jetscope/internal/invoker"
	"github.com/example/jetscope/internal/labels"
)

func newInvokeCmd(a *app) *cobra.Command {
	var (
		url        string
		labelsPath string
		top        int
	)

	cmd := &cobra.Command{
		Use:   "invoke <image>",
		Short: "Send a local image to the deployed endpoint and print the top predictions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Invoker
			if url != "" {
				cfg.URL = url
			}
			if top > 0 {
				cfg.TopK = top
			}
			if labelsPath == "" {
				labelsPath = a.cfg.Labels.Path
			}

			opts := invoker.Options{
				URL:     cfg.URL,
				Accept:  cfg.Accept,
				Timeout: cfg.Timeout,
				TopK:    cfg.TopK,
			}

			var result invoker.Result
			catalog, err := labels.Load(labelsPath)
			switch {
			case err == nil:
				opts.Catalog = catalog
			case errors.Is(err, fs.ErrNotExist):
				a.logger.Warn("label file not found, using endpoint labels", zap.String("path", labelsPath))
			default:
				result = invoker.Failure(err)
			}

			if result.Err() == nil {
				result = invoker.New(opts, a.logger).PredictFromImage(cmd.Context(), args[0])
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "endpoint URL, overrides invoker.url")
	cmd.Flags().StringVar(&labelsPath, "labels", "", "label file, defaults to labels.path")
	cmd.Flags().IntVar(&top, "top", 0, "number of ranked classes to print, overrides invoker.topk")

	return cmd
}
