package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	insightsapp "github.com/libinsight/backend/internal/application/insights"
	"github.com/libinsight/backend/internal/domain/insights"
)

// InsightsHandler handles borrowing analytics queries
type InsightsHandler struct {
	BaseHandler
	insightsService *insightsapp.InsightsService
}

// NewInsightsHandler creates a new InsightsHandler
func NewInsightsHandler(insightsService *insightsapp.InsightsService) *InsightsHandler {
	return &InsightsHandler{insightsService: insightsService}
}

// parseRecordFilter builds a filter from the genre, year and limit query params.
// A missing or "All" genre matches every genre; a missing year matches all years.
func parseRecordFilter(c *gin.Context) (insights.RecordFilter, bool) {
	filter := insights.RecordFilter{
		Genre: c.Query("genre"),
	}

	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 0 {
			return filter, false
		}
		filter.Year = year
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, false
		}
		filter.TopN = limit
	}

	return filter, true
}

// TopTitles godoc
//
//	@Summary		Most borrowed titles
//	@Description	Returns the top titles ranked by total borrow count
//	@Tags			insights
//	@Produce		json
//	@Param			genre	query		string	false	"Genre filter ('All' or empty for no filter)"
//	@Param			year	query		int		false	"Year filter (0 or empty for all years)"
//	@Param			limit	query		int		false	"Number of titles to return (default 10, max 100)"
//	@Success		200		{object}	dto.Response{data=[]insights.TitleRanking}
//	@Failure		400		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		401		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/insights/top-titles [get]
func (h *InsightsHandler) TopTitles(c *gin.Context) {
	filter, ok := parseRecordFilter(c)
	if !ok {
		h.BadRequest(c, "Invalid filter parameters")
		return
	}

	rankings, err := h.insightsService.TopTitles(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rankings)
}

// Departments godoc
//
//	@Summary		Borrows per department
//	@Description	Returns total borrow counts grouped by department
//	@Tags			insights
//	@Produce		json
//	@Param			genre	query		string	false	"Genre filter"
//	@Param			year	query		int		false	"Year filter"
//	@Success		200		{object}	dto.Response{data=[]insights.DepartmentTotal}
//	@Failure		400		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		401		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/insights/departments [get]
func (h *InsightsHandler) Departments(c *gin.Context) {
	filter, ok := parseRecordFilter(c)
	if !ok {
		h.BadRequest(c, "Invalid filter parameters")
		return
	}

	totals, err := h.insightsService.DepartmentTotals(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, totals)
}

// Monthly godoc
//
//	@Summary		Monthly borrowing trend
//	@Description	Returns total borrow counts per month, oldest first
//	@Tags			insights
//	@Produce		json
//	@Param			genre	query		string	false	"Genre filter"
//	@Param			year	query		int		false	"Year filter"
//	@Success		200		{object}	dto.Response{data=[]insights.MonthlyTotal}
//	@Failure		400		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		401		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/insights/monthly [get]
func (h *InsightsHandler) Monthly(c *gin.Context) {
	filter, ok := parseRecordFilter(c)
	if !ok {
		h.BadRequest(c, "Invalid filter parameters")
		return
	}

	totals, err := h.insightsService.MonthlyTotals(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, totals)
}

// Summary godoc
//
//	@Summary		Aggregate summary
//	@Description	Returns overall totals for the current filter
//	@Tags			insights
//	@Produce		json
//	@Param			genre	query		string	false	"Genre filter"
//	@Param			year	query		int		false	"Year filter"
//	@Success		200		{object}	dto.Response{data=insights.Summary}
//	@Failure		400		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		401		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/insights/summary [get]
func (h *InsightsHandler) Summary(c *gin.Context) {
	filter, ok := parseRecordFilter(c)
	if !ok {
		h.BadRequest(c, "Invalid filter parameters")
		return
	}

	summary, err := h.insightsService.Summary(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// Filters godoc
//
//	@Summary		Available filter values
//	@Description	Returns the distinct genres and years present in the data
//	@Tags			insights
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=insights.FilterOptions}
//	@Failure		401	{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500	{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/insights/filters [get]
func (h *InsightsHandler) Filters(c *gin.Context) {
	options, err := h.insightsService.FilterOptions(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, options)
}

// RegisterRoutes registers all insights routes
func (h *InsightsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/insights")
	{
		group.GET("/top-titles", h.TopTitles)
		group.GET("/departments", h.Departments)
		group.GET("/monthly", h.Monthly)
		group.GET("/summary", h.Summary)
		group.GET("/filters", h.Filters)
	}
}
