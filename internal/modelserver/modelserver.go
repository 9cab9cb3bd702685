package modelserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/example/jetscope/internal/logging"
	"github.com/example/jetscope/internal/serving"
)

const defaultTimeout = 30 * time.Second

// Client exposes the subset of the model server used by the classification flow.
type Client interface {
	Predict(ctx context.Context, requestID string, payload []byte) (*serving.Response, error)
}

// RestClient calls a TensorFlow-Serving style REST predict endpoint.
type RestClient struct {
	client  *resty.Client
	restURI string
	logger  *zap.Logger
}

// NewRestClient returns a client posting to restURI. Requests are never retried.
func NewRestClient(restURI string, timeout time.Duration, logger *zap.Logger) *RestClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger = logger.Named("modelserver")

	r := resty.New().
		SetLogger(logger.Sugar()).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")

	return &RestClient{client: r, restURI: restURI, logger: logger}
}

// Predict posts the serialized instances. Non-2xx replies are returned as data so
// the response adapter can surface the upstream message; only transport
// failures become errors.
func (c *RestClient) Predict(ctx context.Context, requestID string, payload []byte) (*serving.Response, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.restURI)
	if err != nil {
		wrapped := logging.NewOperationError("modelserver.predict", requestID, err)
		c.logger.Error("model server call failed", zap.Error(wrapped), zap.String("uri", c.restURI))
		return nil, wrapped
	}

	if resp.StatusCode() != http.StatusOK {
		logging.WithOperation(c.logger, "modelserver.predict", requestID).Warn("model server returned non-success status",
			zap.Int("status", resp.StatusCode()),
			zap.Duration("elapsed", resp.Time()),
		)
	}

	return &serving.Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}
