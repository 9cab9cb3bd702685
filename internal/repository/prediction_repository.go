package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/jetscope/internal/retry"
)

// PredictionLog records one classification served by the adapter.
type PredictionLog struct {
	ID             uint      `gorm:"primaryKey"`
	RequestID      string    `gorm:"column:request_id;uniqueIndex;size:64"`
	CallerID       string    `gorm:"column:caller_id;size:128"`
	SHA1Hash       string    `gorm:"column:sha1_hash;index;size:40"`
	PredictedIndex int       `gorm:"column:predicted_index"`
	PredictedLabel string    `gorm:"column:predicted_label;size:256"`
	Confidence     float64   `gorm:"column:confidence"`
	Verbose        bool      `gorm:"column:verbose"`
	Cached         bool      `gorm:"column:cached"`
	LatencyMs      int64     `gorm:"column:latency_ms"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// MetricsAggregation is the raw aggregate over all prediction logs.
type MetricsAggregation struct {
	TotalCount        int64
	CachedCount       int64
	AverageConfidence float64
	AverageLatencyMs  float64
}

// PredictionRepository provides persistence APIs for prediction logs.
type PredictionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	policy retry.Policy
}

// NewPredictionRepository creates a new repository instance.
func NewPredictionRepository(db *gorm.DB, logger *zap.Logger) *PredictionRepository {
	return &PredictionRepository{
		db:     db,
		logger: logger.Named("prediction_repository"),
		policy: retry.DefaultPolicy,
	}
}

// AutoMigrate ensures the schema is available.
func (r *PredictionRepository) AutoMigrate(ctx context.Context) error {
	return r.executeWithRetry(ctx, "repository.auto_migrate", "", func() error {
		return r.db.WithContext(ctx).AutoMigrate(&PredictionLog{})
	})
}

// SaveLog persists a prediction log entry.
func (r *PredictionRepository) SaveLog(ctx context.Context, log *PredictionLog) error {
	return r.executeWithRetry(ctx, "repository.save_log", log.RequestID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindByRequestID retrieves the prediction log for a request.
func (r *PredictionRepository) FindByRequestID(ctx context.Context, requestID string) (*PredictionLog, error) {
	var log PredictionLog
	err := r.executeWithRetry(ctx, "repository.find_by_request_id", requestID, func() error {
		return r.db.WithContext(ctx).First(&log, "request_id = ?", requestID).Error
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// AggregateMetrics summarises every stored prediction.
func (r *PredictionRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var row struct {
		TotalCount        int64
		CachedCount       int64
		AverageConfidence float64
		AverageLatencyMs  float64
	}
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).
			Model(&PredictionLog{}).
			Select("COUNT(*) AS total_count, " +
				"COALESCE(SUM(CASE WHEN cached THEN 1 ELSE 0 END), 0) AS cached_count, " +
				"COALESCE(AVG(confidence), 0) AS average_confidence, " +
				"COALESCE(AVG(latency_ms), 0) AS average_latency_ms").
			Scan(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &MetricsAggregation{
		TotalCount:        row.TotalCount,
		CachedCount:       row.CachedCount,
		AverageConfidence: row.AverageConfidence,
		AverageLatencyMs:  row.AverageLatencyMs,
	}, nil
}

func (r *PredictionRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	return retry.Do(ctx, r.policy, r.logger, operation, requestID, fn)
}
