package dataset

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a Splitter.
type Options struct {
	RawDir       string
	ImageDir     string
	OutputDir    string
	Splits       []Split
	Normalizer   Normalizer
	JPEGQuality  int
	Workers      int
	ProgressOut  io.Writer
	ShowProgress bool
}

// SplitReport counts the outcome of one split.
type SplitReport struct {
	Name    string
	Written int
	Failed  int
}

// Report summarizes a run.
type Report struct {
	Splits []SplitReport
}

// Written returns the number of images written across all splits.
func (r *Report) Written() int {
	total := 0
	for _, s := range r.Splits {
		total += s.Written
	}
	return total
}

// Failed returns the number of skipped images across all splits.
func (r *Report) Failed() int {
	total := 0
	for _, s := range r.Splits {
		total += s.Failed
	}
	return total
}

// Splitter materializes train/val/test directories from manifests.
type Splitter struct {
	opts   Options
	logger *zap.Logger
}

// NewSplitter fills unset options with defaults.
func NewSplitter(opts Options, logger *zap.Logger) *Splitter {
	if opts.ImageDir == "" {
		opts.ImageDir = filepath.Join(opts.RawDir, "images")
	}
	if opts.Normalizer == (Normalizer{}) {
		opts.Normalizer = DefaultNormalizer()
	}
	if len(opts.Splits) == 0 {
		opts.Splits = DefaultSplits
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 75
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ProgressOut == nil {
		opts.ProgressOut = os.Stderr
	}
	return &Splitter{opts: opts, logger: logger.Named("dataset")}
}

// Run processes every split in order. Image failures are logged and counted;
// an unreadable manifest or output directory aborts the run.
func (s *Splitter) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	for _, split := range s.opts.Splits {
		sr, err := s.runSplit(ctx, split)
		if err != nil {
			return report, err
		}
		report.Splits = append(report.Splits, *sr)
		s.logger.Info("split complete",
			zap.String("split", sr.Name),
			zap.Int("written", sr.Written),
			zap.Int("failed", sr.Failed),
		)
	}
	return report, nil
}

func (s *Splitter) runSplit(ctx context.Context, split Split) (*SplitReport, error) {
	manifestPath := filepath.Join(s.opts.RawDir, split.Manifest)
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open manifest %s", manifestPath)
	}
	records, err := ParseManifest(f)
	f.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "parse manifest %s", manifestPath)
	}

	splitDir := filepath.Join(s.opts.OutputDir, split.Name)
	if err := os.RemoveAll(splitDir); err != nil {
		return nil, errors.Wrapf(err, "remove %s", splitDir)
	}
	if err := os.MkdirAll(splitDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", splitDir)
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetWriter(s.opts.ProgressOut),
		progressbar.OptionSetDescription("Processing "+split.Name),
		progressbar.OptionSetVisibility(s.opts.ShowProgress),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Close() //nolint:errcheck

	var written, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.processImage(splitDir, rec); err != nil {
				failed.Add(1)
				s.logger.Warn("skipping image",
					zap.String("split", split.Name),
					zap.String("id", rec.ID),
					zap.Error(err),
				)
			} else {
				written.Add(1)
			}
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "split %s", split.Name)
	}

	return &SplitReport{Name: split.Name, Written: int(written.Load()), Failed: int(failed.Load())}, nil
}

func (s *Splitter) processImage(splitDir string, rec Record) error {
	if rec.Err != nil {
		return rec.Err
	}
	srcPath := filepath.Join(s.opts.ImageDir, rec.ID+".jpg")
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return errors.Wrap(err, "read source")
	}
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		return errors.Errorf("unsupported source type %s", mt.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "decode source")
	}
	out := s.opts.Normalizer.Transform(img)

	labelDir := filepath.Join(splitDir, rec.Label)
	if err := os.MkdirAll(labelDir, 0o755); err != nil {
		return errors.Wrap(err, "create label directory")
	}

	dstPath := filepath.Join(labelDir, rec.ID+".jpg")
	dst, err := os.Create(dstPath)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	if err := jpeg.Encode(dst, out, &jpeg.Options{Quality: s.opts.JPEGQuality}); err != nil {
		dst.Close()
		return errors.Wrap(err, "encode output")
	}
	return errors.Wrap(dst.Close(), "close output")
}
