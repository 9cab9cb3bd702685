package invoker

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/jetscope/internal/labels"
	"github.com/example/jetscope/internal/serving"
)

const (
	defaultTimeout = 30 * time.Second
	defaultTopK    = 5
)

// ErrEmptyResponse is returned when the endpoint replies without a body.
var ErrEmptyResponse = errors.New("Empty response")

// Options configures an Invoker.
type Options struct {
	URL     string
	Accept  string
	Timeout time.Duration
	TopK    int
	// Catalog overrides the labels returned by the endpoint when set.
	Catalog *labels.Catalog
}

// Invoker sends a local image to a deployed classification endpoint.
type Invoker struct {
	client  *resty.Client
	url     string
	accept  string
	topK    int
	catalog *labels.Catalog
	logger  *zap.Logger
}

// New returns an Invoker. Calls are bounded by opts.Timeout and never retried.
func New(opts Options, logger *zap.Logger) *Invoker {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.Accept == "" {
		opts.Accept = serving.JSONContentType + serving.VerboseMarker
	}
	logger = logger.Named("invoker")

	r := resty.New().
		SetLogger(logger.Sugar()).
		SetTimeout(opts.Timeout).
		SetRetryCount(0)

	return &Invoker{
		client:  r,
		url:     opts.URL,
		accept:  opts.Accept,
		topK:    opts.TopK,
		catalog: opts.Catalog,
		logger:  logger,
	}
}

// PredictFromImage never returns an error; every failure is folded into the
// Result.
func (i *Invoker) PredictFromImage(ctx context.Context, imagePath string) Result {
	logger := i.logger.With(zap.String("image", imagePath), zap.String("url", i.url))

	predictions, err := i.predict(ctx, imagePath)
	if err != nil {
		logger.Error("prediction failed", zap.Error(err))
		return Failure(err)
	}

	logger.Info("top predictions", zap.Any("predictions", predictions))
	return Success(predictions)
}

func (i *Invoker) predict(ctx context.Context, imagePath string) ([]Prediction, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		return nil, errors.Errorf("%s is not an image (%s)", imagePath, mt.String())
	}

	i.logger.Info("invoking endpoint", zap.String("url", i.url), zap.String("image", imagePath))

	resp, err := i.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", serving.ImageContentType).
		SetHeader("Accept", i.accept).
		SetBody(data).
		Post(i.url)
	if err != nil {
		return nil, errors.Wrap(err, "invoke endpoint")
	}

	body := resp.Body()
	if resp.IsError() {
		return nil, &serving.UpstreamError{StatusCode: resp.StatusCode(), Message: strings.TrimSpace(string(body))}
	}
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	var out serving.Output
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, "decode endpoint response")
	}

	if len(out.Probabilities) == 0 {
		return nil, errors.New("endpoint response has no probabilities")
	}

	names := out.Labels
	if i.catalog != nil {
		names = i.catalog.Labels()
	}
	if len(names) == 0 {
		return nil, errors.New("no labels available for endpoint response")
	}

	return TopK(out.Probabilities, names, i.topK)
}
