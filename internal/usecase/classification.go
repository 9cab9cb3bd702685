package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/jetscope/internal/logging"
	"github.com/example/jetscope/internal/modelserver"
	"github.com/example/jetscope/internal/repository"
	"github.com/example/jetscope/internal/retry"
	"github.com/example/jetscope/internal/serving"
)

var (
	// ErrNotFound is returned when no prediction log matches a request id.
	ErrNotFound = errors.New("prediction not found")
	// ErrPersistenceDisabled is returned by audit-log reads when no repository is configured.
	ErrPersistenceDisabled = errors.New("prediction persistence is disabled")
)

// PredictionRepository defines the persistence operations needed by the use case.
type PredictionRepository interface {
	SaveLog(ctx context.Context, log *repository.PredictionLog) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.PredictionLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// Classification is the outcome of one adapter round trip.
type Classification struct {
	RequestID      string
	Body           []byte
	ContentType    string
	PredictedIndex int
	PredictedLabel string
	Confidence     float64
	Cached         bool
}

// ClassificationUseCase runs the request adapter, the model server call and the
// response adapter for one inbound image.
type ClassificationUseCase struct {
	adapter     *serving.Adapter
	server      modelserver.Client
	repo        PredictionRepository
	cache       Cache
	cacheTTL    time.Duration
	logger      *zap.Logger
	retryPolicy retry.Policy
}

// Option configures optional collaborators.
type Option func(*ClassificationUseCase)

// WithCache enables the reply cache.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(uc *ClassificationUseCase) {
		uc.cache = cache
		uc.cacheTTL = ttl
	}
}

// WithRepository enables the prediction audit log.
func WithRepository(repo PredictionRepository) Option {
	return func(uc *ClassificationUseCase) {
		uc.repo = repo
	}
}

// NewClassificationUseCase constructs a new use case instance.
func NewClassificationUseCase(adapter *serving.Adapter, server modelserver.Client, logger *zap.Logger, opts ...Option) *ClassificationUseCase {
	uc := &ClassificationUseCase{
		adapter:     adapter,
		server:      server,
		logger:      logger.Named("classification_usecase"),
		cacheTTL:    5 * time.Minute,
		retryPolicy: retry.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Classify forwards image to the model server and reshapes the reply. Unsupported
// content types and upstream failures are returned as the serving package's
// typed errors.
func (uc *ClassificationUseCase) Classify(ctx context.Context, callerID string, image []byte, opts serving.RequestOptions) (*Classification, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.classify", requestID)

	payload, err := serving.EncodeRequest(image, opts.ContentType)
	if err != nil {
		opLogger.Warn("rejected request", zap.Error(err))
		return nil, err
	}

	hash := sha1.Sum(image)
	hashHex := hex.EncodeToString(hash[:])
	key := cacheKey(hashHex, opts.Response.Verbose)

	out, cached := uc.lookupCache(ctx, requestID, key)

	var latency time.Duration
	if out == nil {
		start := time.Now()
		resp, err := uc.server.Predict(ctx, requestID, payload)
		if err != nil {
			opLogger.Error("model server call failed", zap.Error(err))
			return nil, err
		}
		latency = time.Since(start)

		out, err = uc.adapter.Postprocess(*resp, opts.Response)
		if err != nil {
			opLogger.Error("response adapter failed", zap.Error(err), zap.Int("upstream_status", resp.StatusCode))
			return nil, err
		}
	}

	body, err := out.Encode()
	if err != nil {
		return nil, logging.NewOperationError("usecase.encode_output", requestID, err)
	}

	if uc.cache != nil && !cached {
		if err := retry.Do(ctx, uc.retryPolicy, uc.logger, "cache.set.result", requestID, func() error {
			return uc.cache.Set(ctx, key, string(body), uc.cacheTTL)
		}); err != nil {
			opLogger.Error("failed to cache classification", zap.Error(err))
			return nil, err
		}
	}

	index := serving.ArgMax(out.Probabilities)
	result := &Classification{
		RequestID:      requestID,
		Body:           body,
		ContentType:    opts.Response.ContentType,
		PredictedIndex: index,
		PredictedLabel: uc.adapter.LabelFor(index),
		Confidence:     out.Probabilities[index],
		Cached:         cached,
	}
	if result.ContentType == "" {
		result.ContentType = serving.JSONContentType
	}

	if uc.repo != nil {
		log := &repository.PredictionLog{
			RequestID:      requestID,
			CallerID:       callerID,
			SHA1Hash:       hashHex,
			PredictedIndex: result.PredictedIndex,
			PredictedLabel: result.PredictedLabel,
			Confidence:     result.Confidence,
			Verbose:        opts.Response.Verbose,
			Cached:         cached,
			LatencyMs:      latency.Milliseconds(),
			CreatedAt:      time.Now().UTC(),
		}
		if err := uc.repo.SaveLog(ctx, log); err != nil {
			wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
			opLogger.Error("failed to persist prediction log", zap.Error(wrapped))
			return nil, wrapped
		}
	}

	opLogger.Info("classified image",
		zap.String("predicted_label", result.PredictedLabel),
		zap.Int("predicted_index", result.PredictedIndex),
		zap.Bool("cached", cached),
		zap.Duration("upstream_latency", latency),
	)
	return result, nil
}

func (uc *ClassificationUseCase) lookupCache(ctx context.Context, requestID, key string) (*serving.Output, bool) {
	if uc.cache == nil {
		return nil, false
	}

	var (
		raw string
		hit bool
	)
	err := retry.Do(ctx, uc.retryPolicy, uc.logger, "cache.get.result", requestID, func() error {
		value, err := uc.cache.Get(ctx, key)
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, hit = value, true
		return nil
	})
	if err != nil {
		logging.WithOperation(uc.logger, "usecase.classify", requestID).Warn("failed to read cache", zap.Error(err))
		return nil, false
	}
	if !hit {
		return nil, false
	}

	var out serving.Output
	if err := json.Unmarshal([]byte(raw), &out); err != nil || len(out.Probabilities) == 0 {
		logging.WithOperation(uc.logger, "usecase.classify", requestID).Warn("failed to decode cached classification", zap.Error(err))
		return nil, false
	}
	return &out, true
}

// GetResult loads the prediction log of an earlier request.
func (uc *ClassificationUseCase) GetResult(ctx context.Context, requestID string) (*repository.PredictionLog, error) {
	if uc.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	log, err := uc.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return log, nil
}
