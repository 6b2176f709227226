package insights

import "context"

// DefaultTopN is the default ranking size for top-title queries
const DefaultTopN = 10

// TitleRanking represents one entry of the most-borrowed-titles ranking
// This is a CQRS read model optimized for querying
type TitleRanking struct {
	Rank         int    `json:"rank"`
	Title        string `json:"title"`
	TotalBorrows int64  `json:"total_borrows"`
}

// DepartmentTotal represents total borrows attributed to one department
type DepartmentTotal struct {
	Department   string `json:"department"`
	TotalBorrows int64  `json:"total_borrows"`
}

// MonthlyTotal represents total borrows in one calendar month
type MonthlyTotal struct {
	Month        string `json:"month"` // "YYYY-MM"
	TotalBorrows int64  `json:"total_borrows"`
}

// Summary provides quick dashboard counts
type Summary struct {
	TotalRecords int64 `json:"total_records"`
	UniqueTitles int64 `json:"unique_titles"`
}

// FilterOptions lists the distinct values available for filtering
type FilterOptions struct {
	Genres []string `json:"genres"`
	Years  []int    `json:"years"`
}

// RecordFilter defines filtering options for insight queries.
// Zero values mean no filtering; the literal "All" genre is treated
// the same as an empty genre.
type RecordFilter struct {
	Genre string `json:"genre,omitempty"`
	Year  int    `json:"year,omitempty"`
	TopN  int    `json:"top_n,omitempty"` // For rankings
}

// HasGenre returns true when the filter restricts by genre
func (f RecordFilter) HasGenre() bool {
	return f.Genre != "" && f.Genre != "All"
}

// HasYear returns true when the filter restricts by year
func (f RecordFilter) HasYear() bool {
	return f.Year > 0
}

// Limit returns the effective ranking size
func (f RecordFilter) Limit() int {
	if f.TopN <= 0 {
		return DefaultTopN
	}
	if f.TopN > 100 {
		return 100
	}
	return f.TopN
}

// Repository defines the interface for insight queries
type Repository interface {
	// GetTopTitles returns the top N titles by total borrow count
	GetTopTitles(ctx context.Context, filter RecordFilter) ([]TitleRanking, error)

	// GetDepartmentTotals returns borrow totals grouped by department,
	// largest first
	GetDepartmentTotals(ctx context.Context, filter RecordFilter) ([]DepartmentTotal, error)

	// GetMonthlyTotals returns borrow totals per calendar month in
	// chronological order
	GetMonthlyTotals(ctx context.Context, filter RecordFilter) ([]MonthlyTotal, error)

	// GetSummary returns dashboard counts
	GetSummary(ctx context.Context, filter RecordFilter) (*Summary, error)

	// GetFilterOptions returns the distinct genres and years present
	GetFilterOptions(ctx context.Context) (*FilterOptions, error)
}
