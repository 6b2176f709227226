package insightsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/libinsight/backend/internal/domain/borrowing"
	"github.com/libinsight/backend/internal/domain/insights"
	"github.com/libinsight/backend/internal/domain/shared"
	"github.com/libinsight/backend/internal/infrastructure/cache"
	"github.com/libinsight/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultCacheTTL bounds staleness of cached aggregations. Imports
// invalidate the cache, so the TTL only matters for out-of-band writes.
const DefaultCacheTTL = 5 * time.Minute

// maxRecentRecords is both the default and the cap for the
// recent-records listing
const maxRecentRecords = 100

// RecordInfo is the read model for the recent-records listing
type RecordInfo struct {
	Title      string `json:"title"`
	Department string `json:"department"`
	Genre      string `json:"genre"`
	Count      int    `json:"count"`
	BorrowDate string `json:"borrow_date"`
}

// InsightsService answers aggregation queries over borrow records,
// caching results between imports
type InsightsService struct {
	repo       insights.Repository
	recordRepo borrowing.RecordRepository
	cache      cache.InsightsCache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewInsightsService creates a new InsightsService. cache may be nil,
// in which case every query hits the database.
func NewInsightsService(
	repo insights.Repository,
	recordRepo borrowing.RecordRepository,
	insightsCache cache.InsightsCache,
	logger *zap.Logger,
) *InsightsService {
	return &InsightsService{
		repo:       repo,
		recordRepo: recordRepo,
		cache:      insightsCache,
		cacheTTL:   DefaultCacheTTL,
		logger:     logger,
	}
}

// TopTitles returns the most borrowed titles matching the filter
func (s *InsightsService) TopTitles(ctx context.Context, filter insights.RecordFilter) ([]insights.TitleRanking, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "insights", "top_titles")
	defer span.End()

	key := cacheKey("top-titles", filter)

	var cached []insights.TitleRanking
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	rankings, err := s.repo.GetTopTitles(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to query top titles", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load top titles")
	}

	s.toCache(ctx, key, rankings)
	return rankings, nil
}

// DepartmentTotals returns borrow totals grouped by department
func (s *InsightsService) DepartmentTotals(ctx context.Context, filter insights.RecordFilter) ([]insights.DepartmentTotal, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "insights", "departments")
	defer span.End()

	key := cacheKey("departments", filter)

	var cached []insights.DepartmentTotal
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	totals, err := s.repo.GetDepartmentTotals(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to query department totals", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load department totals")
	}

	s.toCache(ctx, key, totals)
	return totals, nil
}

// MonthlyTotals returns borrow totals bucketed by calendar month
func (s *InsightsService) MonthlyTotals(ctx context.Context, filter insights.RecordFilter) ([]insights.MonthlyTotal, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "insights", "monthly")
	defer span.End()

	key := cacheKey("monthly", filter)

	var cached []insights.MonthlyTotal
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	totals, err := s.repo.GetMonthlyTotals(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to query monthly totals", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load monthly totals")
	}

	s.toCache(ctx, key, totals)
	return totals, nil
}

// Summary returns dashboard counts for records matching the filter
func (s *InsightsService) Summary(ctx context.Context, filter insights.RecordFilter) (*insights.Summary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "insights", "summary")
	defer span.End()

	key := cacheKey("summary", filter)

	var cached insights.Summary
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	summary, err := s.repo.GetSummary(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to query summary", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load summary")
	}

	s.toCache(ctx, key, summary)
	return summary, nil
}

// FilterOptions returns the distinct genres and years available for
// filter dropdowns
func (s *InsightsService) FilterOptions(ctx context.Context) (*insights.FilterOptions, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "insights", "filters")
	defer span.End()

	key := cacheKey("filters", insights.RecordFilter{})

	var cached insights.FilterOptions
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	options, err := s.repo.GetFilterOptions(ctx)
	if err != nil {
		s.logger.Error("Failed to query filter options", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load filter options")
	}

	s.toCache(ctx, key, options)
	return options, nil
}

// RecentRecords returns the latest imported records, uncached
func (s *InsightsService) RecentRecords(ctx context.Context, limit int) ([]RecordInfo, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "insights", "recent")
	defer span.End()

	if limit <= 0 || limit > maxRecentRecords {
		limit = maxRecentRecords
	}

	records, err := s.recordRepo.FindRecent(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to query recent records", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load recent records")
	}

	infos := make([]RecordInfo, 0, len(records))
	for _, record := range records {
		infos = append(infos, RecordInfo{
			Title:      record.Title,
			Department: record.Department,
			Genre:      record.Genre,
			Count:      record.Count,
			BorrowDate: record.BorrowDate.Format(borrowing.BorrowDateFormat),
		})
	}
	return infos, nil
}

// cacheKey derives a stable key from the operation and filter. The
// store prepends its own namespace prefix.
func cacheKey(operation string, filter insights.RecordFilter) string {
	return fmt.Sprintf("%s:g=%s:y=%d:n=%d", operation, filter.Genre, filter.Year, filter.Limit())
}

// fromCache reports whether the key was found and unmarshaled into dst.
// Cache failures degrade to a miss.
func (s *InsightsService) fromCache(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}

	payload, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Insights cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		s.logger.Warn("Insights cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *InsightsService) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("Failed to marshal insights cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		s.logger.Warn("Insights cache write failed", zap.String("key", key), zap.Error(err))
	}
}
