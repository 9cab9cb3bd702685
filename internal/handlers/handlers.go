package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/jetscope/internal/auth"
	"github.com/example/jetscope/internal/repository"
	"github.com/example/jetscope/internal/serving"
	"github.com/example/jetscope/internal/usecase"
)

// MaxUploadSize is the default limit for an invocation body.
const MaxUploadSize = 10 << 20

// RequestIDHeader carries the request id of an invocation.
const RequestIDHeader = "X-Request-Id"

// Classifier is the use case surface the routes depend on.
type Classifier interface {
	Classify(ctx context.Context, callerID string, image []byte, opts serving.RequestOptions) (*usecase.Classification, error)
	GetResult(ctx context.Context, requestID string) (*repository.PredictionLog, error)
	GetMetricsSummary(ctx context.Context) (*usecase.MetricsSummary, error)
}

// Options tunes route registration.
type Options struct {
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// RegisterRoutes wires the HTTP handlers to the Gin router. Health routes stay
// outside authMiddleware.
func RegisterRoutes(router *gin.Engine, uc Classifier, authMiddleware gin.HandlerFunc, opts Options) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = MaxUploadSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	logger := opts.Logger.Named("handlers")

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/ping", health)
	router.GET("/health", health)

	protected := router.Group("/")
	if authMiddleware != nil {
		protected.Use(authMiddleware)
	}

	protected.POST("/invocations", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, opts.MaxUploadBytes)
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
			return
		}

		callerID, _ := auth.CallerID(c.Request.Context())
		reqOpts := serving.RequestOptions{
			ContentType: c.ContentType(),
			Response:    serving.ParseAccept(c.GetHeader("Accept")),
		}

		result, err := uc.Classify(c.Request.Context(), callerID, data, reqOpts)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				logger.Error("invocation failed", zap.Error(err), zap.Int("status", status))
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.Header(RequestIDHeader, result.RequestID)
		c.Data(http.StatusOK, result.ContentType, result.Body)
	})

	protected.GET("/predictions/:id", func(c *gin.Context) {
		log, err := uc.GetResult(c.Request.Context(), c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrNotFound), errors.Is(err, usecase.ErrPersistenceDisabled):
				c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			default:
				logger.Error("result lookup failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "result lookup failed"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":      log.RequestID,
			"caller_id":       log.CallerID,
			"predicted_index": log.PredictedIndex,
			"predicted_label": log.PredictedLabel,
			"confidence":      log.Confidence,
			"verbose":         log.Verbose,
			"cached":          log.Cached,
			"latency_ms":      log.LatencyMs,
			"created_at":      log.CreatedAt,
		})
	})

	protected.GET("/metrics/summary", func(c *gin.Context) {
		summary, err := uc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			if errors.Is(err, usecase.ErrPersistenceDisabled) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			logger.Error("metrics summary failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "metrics summary failed"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}

func statusFor(err error) int {
	var ctErr *serving.UnsupportedContentTypeError
	var upErr *serving.UpstreamError
	switch {
	case errors.As(err, &ctErr):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &upErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
