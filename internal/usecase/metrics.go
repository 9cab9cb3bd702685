package usecase

import "context"

// MetricsSummary represents aggregated classification insights.
type MetricsSummary struct {
	TotalRequests            int64   `json:"total_requests"`
	CachedRequests           int64   `json:"cached_requests"`
	CacheHitRate             float64 `json:"cache_hit_rate"`
	AverageConfidence        float64 `json:"average_confidence"`
	AverageUpstreamLatencyMs float64 `json:"average_upstream_latency_ms"`
}

// GetMetricsSummary aggregates classification metrics from persisted logs.
func (uc *ClassificationUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	if uc.repo == nil {
		return nil, ErrPersistenceDisabled
	}

	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalRequests:            aggregation.TotalCount,
		CachedRequests:           aggregation.CachedCount,
		AverageConfidence:        aggregation.AverageConfidence,
		AverageUpstreamLatencyMs: aggregation.AverageLatencyMs,
	}

	if aggregation.TotalCount > 0 {
		summary.CacheHitRate = float64(aggregation.CachedCount) / float64(aggregation.TotalCount)
	}

	return summary, nil
}
