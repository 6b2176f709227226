package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	importapp "github.com/libinsight/backend/internal/application/import"
	insightsapp "github.com/libinsight/backend/internal/application/insights"
	"github.com/libinsight/backend/internal/domain/borrowing"
	"github.com/libinsight/backend/internal/interfaces/http/dto"
)

// maxImportFileSize caps uploaded CSV files at 10MB
const maxImportFileSize = 10 * 1024 * 1024

// RecordsHandler handles borrow record uploads and listings
type RecordsHandler struct {
	BaseHandler
	importService   *importapp.BorrowImportService
	insightsService *insightsapp.InsightsService
}

// NewRecordsHandler creates a new RecordsHandler
func NewRecordsHandler(importService *importapp.BorrowImportService, insightsService *insightsapp.InsightsService) *RecordsHandler {
	return &RecordsHandler{
		importService:   importService,
		insightsService: insightsService,
	}
}

// readUploadedFile pulls the "file" form field, enforcing size and type limits
func (h *RecordsHandler) readUploadedFile(c *gin.Context) (string, []byte, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return "", nil, false
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "file exceeds maximum size of 10MB")
		return "", nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && contentType != "text/csv" && contentType != "application/octet-stream" &&
		contentType != "text/plain" && contentType != "application/vnd.ms-excel" {
		h.Error(c, http.StatusUnsupportedMediaType, dto.ErrCodeValidation, "file must be a CSV file")
		return "", nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImportFileSize+1))
	if err != nil {
		h.InternalError(c, "Failed to read uploaded file")
		return "", nil, false
	}

	return header.Filename, data, true
}

// Upload godoc
//
//	@Summary		Upload borrow records
//	@Description	Imports a CSV file of borrow records for the current user
//	@Tags			records
//	@ID				uploadBorrowRecords
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"CSV file to import"
//	@Success		200		{object}	dto.Response{data=dto.BorrowImportResponse}
//	@Failure		400		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		401		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		413		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		415		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/records/upload [post]
func (h *RecordsHandler) Upload(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	fileName, data, ok := h.readUploadedFile(c)
	if !ok {
		return
	}

	result, err := h.importService.Import(c.Request.Context(), importapp.ImportInput{
		UserID:   userID,
		FileName: fileName,
		Data:     data,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.BorrowImportResponse{
		UploadID:     result.UploadID.String(),
		TotalRows:    result.TotalRows,
		ImportedRows: result.ImportedRows,
		SkippedRows:  result.SkippedRows,
		ErrorRows:    result.ErrorRows,
		Errors:       result.Errors,
		IsTruncated:  result.IsTruncated,
		TotalErrors:  result.TotalErrors,
	})
}

// Validate godoc
//
//	@Summary		Validate a borrow record CSV
//	@Description	Dry-run validation of a CSV file without importing any rows
//	@Tags			records
//	@ID				validateBorrowRecords
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"CSV file to validate"
//	@Success		200		{object}	dto.Response{data=dto.BorrowImportValidateResponse}
//	@Failure		400		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		401		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		413		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		415		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/records/validate [post]
func (h *RecordsHandler) Validate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	fileName, data, ok := h.readUploadedFile(c)
	if !ok {
		return
	}

	result, err := h.importService.ValidateCSV(c.Request.Context(), importapp.ImportInput{
		UserID:   userID,
		FileName: fileName,
		Data:     data,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.BorrowImportValidateResponse{
		ValidationID: result.ValidationID,
		TotalRows:    result.TotalRows,
		ValidRows:    result.ValidRows,
		ErrorRows:    result.ErrorRows,
		Errors:       result.Errors,
		Preview:      result.Preview,
		IsTruncated:  result.IsTruncated,
		TotalErrors:  result.TotalErrors,
	})
}

// Template godoc
//
//	@Summary		Download CSV template
//	@Description	Returns a starter CSV file with the expected columns
//	@Tags			records
//	@Produce		text/csv
//	@Success		200	{string}	string	"CSV template"
//	@Security		BearerAuth
//	@Router			/records/template [get]
func (h *RecordsHandler) Template(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="borrow_records_template.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(h.importService.Template()))
}

// Recent godoc
//
//	@Summary		List recent borrow records
//	@Description	Returns the latest imported records, newest first
//	@Tags			records
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum records to return (default and cap 100)"
//	@Success		200		{object}	dto.Response{data=[]insightsapp.RecordInfo}
//	@Failure		401		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/records/recent [get]
func (h *RecordsHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	records, err := h.insightsService.RecentRecords(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, records)
}

// ListUploads godoc
//
//	@Summary		List uploads
//	@Description	Returns the current user's upload history, newest first
//	@Tags			records
//	@Produce		json
//	@Param			sort_by		query		string	false	"Sort field"	default(uploaded_at)
//	@Param			sort_order	query		string	false	"Sort order"	Enums(asc, desc)
//	@Success		200	{object}	dto.Response{data=[]importapp.UploadInfo}
//	@Failure		401	{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500	{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/records/uploads [get]
func (h *RecordsHandler) ListUploads(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	sort := borrowing.UploadSort{
		Field: c.Query("sort_by"),
		Order: c.Query("sort_order"),
	}

	uploads, err := h.importService.ListUploads(c.Request.Context(), userID, sort)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, uploads)
}

// GetUpload godoc
//
//	@Summary		Get one upload
//	@Description	Returns one of the current user's uploads with a presigned download link when archived
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Upload ID"
//	@Success		200	{object}	dto.Response{data=importapp.UploadInfo}
//	@Failure		400	{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		401	{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		404	{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500	{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/records/uploads/{id} [get]
func (h *RecordsHandler) GetUpload(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid upload ID")
		return
	}

	upload, err := h.importService.GetUpload(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, upload)
}

// RegisterRoutes registers all record routes
func (h *RecordsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	records := rg.Group("/records")
	{
		records.POST("/upload", h.Upload)
		records.POST("/validate", h.Validate)
		records.GET("/template", h.Template)
		records.GET("/recent", h.Recent)
		records.GET("/uploads", h.ListUploads)
		records.GET("/uploads/:id", h.GetUpload)
	}
}
