package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/libinsight/backend/internal/domain/insights"
)

// GormInsightsRepository implements insights.Repository using GORM
type GormInsightsRepository struct {
	db *gorm.DB
}

// NewGormInsightsRepository creates a new GormInsightsRepository
func NewGormInsightsRepository(db *gorm.DB) *GormInsightsRepository {
	return &GormInsightsRepository{db: db}
}

// applyFilter narrows the query by genre and borrow year
func (r *GormInsightsRepository) applyFilter(query *gorm.DB, filter insights.RecordFilter) *gorm.DB {
	if filter.HasGenre() {
		query = query.Where("genre = ?", filter.Genre)
	}
	if filter.HasYear() {
		query = query.Where("EXTRACT(YEAR FROM borrow_date) = ?", filter.Year)
	}
	return query
}

// GetTopTitles returns the top N titles by total borrow count
func (r *GormInsightsRepository) GetTopTitles(ctx context.Context, filter insights.RecordFilter) ([]insights.TitleRanking, error) {
	type titleResult struct {
		Title        string
		TotalBorrows int64
	}

	var results []titleResult

	query := r.db.WithContext(ctx).Table("borrow_records").
		Select(`
			title,
			COALESCE(SUM(count), 0) as total_borrows
		`).
		Group("title").
		Order("total_borrows DESC, title ASC").
		Limit(filter.Limit())

	query = r.applyFilter(query, filter)

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	rankings := make([]insights.TitleRanking, len(results))
	for i, res := range results {
		rankings[i] = insights.TitleRanking{
			Rank:         i + 1,
			Title:        res.Title,
			TotalBorrows: res.TotalBorrows,
		}
	}
	return rankings, nil
}

// GetDepartmentTotals returns borrow totals grouped by department, largest first
func (r *GormInsightsRepository) GetDepartmentTotals(ctx context.Context, filter insights.RecordFilter) ([]insights.DepartmentTotal, error) {
	var results []insights.DepartmentTotal

	query := r.db.WithContext(ctx).Table("borrow_records").
		Select(`
			department,
			COALESCE(SUM(count), 0) as total_borrows
		`).
		Group("department").
		Order("total_borrows DESC, department ASC")

	query = r.applyFilter(query, filter)

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetMonthlyTotals returns borrow totals per calendar month in chronological order
func (r *GormInsightsRepository) GetMonthlyTotals(ctx context.Context, filter insights.RecordFilter) ([]insights.MonthlyTotal, error) {
	var results []insights.MonthlyTotal

	query := r.db.WithContext(ctx).Table("borrow_records").
		Select(`
			to_char(borrow_date, 'YYYY-MM') as month,
			COALESCE(SUM(count), 0) as total_borrows
		`).
		Group("to_char(borrow_date, 'YYYY-MM')").
		Order("month ASC")

	query = r.applyFilter(query, filter)

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetSummary returns dashboard counts
func (r *GormInsightsRepository) GetSummary(ctx context.Context, filter insights.RecordFilter) (*insights.Summary, error) {
	type summaryResult struct {
		TotalRecords int64
		UniqueTitles int64
	}

	var result summaryResult

	query := r.db.WithContext(ctx).Table("borrow_records").
		Select(`
			COUNT(*) as total_records,
			COUNT(DISTINCT title) as unique_titles
		`)

	query = r.applyFilter(query, filter)

	if err := query.Scan(&result).Error; err != nil {
		return nil, err
	}

	return &insights.Summary{
		TotalRecords: result.TotalRecords,
		UniqueTitles: result.UniqueTitles,
	}, nil
}

// GetFilterOptions returns the distinct genres and years present
func (r *GormInsightsRepository) GetFilterOptions(ctx context.Context) (*insights.FilterOptions, error) {
	var genres []string
	if err := r.db.WithContext(ctx).Table("borrow_records").
		Distinct("genre").
		Where("genre <> ''").
		Order("genre ASC").
		Pluck("genre", &genres).Error; err != nil {
		return nil, err
	}

	var years []int
	if err := r.db.WithContext(ctx).Table("borrow_records").
		Select("DISTINCT EXTRACT(YEAR FROM borrow_date)::int as year").
		Order("year ASC").
		Pluck("year", &years).Error; err != nil {
		return nil, err
	}

	return &insights.FilterOptions{
		Genres: genres,
		Years:  years,
	}, nil
}

// Ensure GormInsightsRepository implements insights.Repository
var _ insights.Repository = (*GormInsightsRepository)(nil)
