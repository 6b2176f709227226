package importapp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/libinsight/backend/internal/domain/borrowing"
	"github.com/libinsight/backend/internal/domain/shared"
	"github.com/libinsight/backend/internal/infrastructure/cache"
	csvimport "github.com/libinsight/backend/internal/infrastructure/import"
	"github.com/libinsight/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CSV column names expected in borrow record uploads
const (
	ColumnTitle      = "Title"
	ColumnDepartment = "Department"
	ColumnGenre      = "Genre"
	ColumnCount      = "Count"
	ColumnBorrowDate = "BorrowDate"
)

// RequiredColumns are the headers an upload must carry. A file missing
// any of them is rejected as a whole.
var RequiredColumns = []string{ColumnCount, ColumnBorrowDate}

// TemplateCSV is the downloadable starter file for uploads
const TemplateCSV = "Title,Department,Genre,Count,BorrowDate\n" +
	"Sample Book,Science,Fiction,5,2024-05-01\n" +
	"Another Book,Arts,Non-Fiction,2,2024-06-05\n"

const downloadURLExpiry = 15 * time.Minute

// ImportInput carries one uploaded CSV file
type ImportInput struct {
	UserID   uuid.UUID
	FileName string
	Data     []byte
}

// BorrowImportResult represents the outcome of a borrow record import
type BorrowImportResult struct {
	UploadID     uuid.UUID            `json:"upload_id"`
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	SkippedRows  int                  `json:"skipped_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// UploadInfo is the read model for the upload history listing
type UploadInfo struct {
	ID           uuid.UUID `json:"id"`
	FileName     string    `json:"file_name"`
	Status       string    `json:"status"`
	TotalRows    int       `json:"total_rows"`
	ImportedRows int       `json:"imported_rows"`
	SkippedRows  int       `json:"skipped_rows"`
	ErrorRows    int       `json:"error_rows"`
	UploadedAt   time.Time `json:"uploaded_at"`
	DownloadURL  string    `json:"download_url,omitempty"`
}

// BorrowImportService ingests borrow record CSV uploads
type BorrowImportService struct {
	recordRepo    borrowing.RecordRepository
	uploadRepo    borrowing.UploadRepository
	storage       ObjectStorageService
	insightsCache cache.InsightsCache
	processor     *csvimport.ImportProcessor
	sessions      csvimport.SessionStore
	deptCaser     cases.Caser
	logger        *zap.Logger
}

// NewBorrowImportService creates a new BorrowImportService
func NewBorrowImportService(
	recordRepo borrowing.RecordRepository,
	uploadRepo borrowing.UploadRepository,
	storage ObjectStorageService,
	insightsCache cache.InsightsCache,
	sessions csvimport.SessionStore,
	logger *zap.Logger,
) *BorrowImportService {
	return &BorrowImportService{
		recordRepo:    recordRepo,
		uploadRepo:    uploadRepo,
		storage:       storage,
		insightsCache: insightsCache,
		processor:     csvimport.NewImportProcessor(),
		sessions:      sessions,
		deptCaser:     cases.Title(language.English),
		logger:        logger,
	}
}

// GetValidationRules returns the validation rules for borrow record uploads
func (s *BorrowImportService) GetValidationRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field(ColumnTitle).String().MaxLength(500).Build(),
		csvimport.Field(ColumnDepartment).String().MaxLength(200).Build(),
		csvimport.Field(ColumnGenre).String().MaxLength(100).Build(),
		csvimport.Field(ColumnCount).Int().MinValue(decimal.Zero).Build(),
		csvimport.Field(ColumnBorrowDate).Required().DateFormat(borrowing.BorrowDateFormat).Build(),
	}
}

// Import parses, coerces and persists an uploaded CSV file.
// A file without the required headers fails as a whole. Rows with an
// unparseable borrow date are skipped; an invalid or negative count is
// coerced to zero and the row is kept.
func (s *BorrowImportService) Import(ctx context.Context, input ImportInput) (*BorrowImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "borrow_import", "import",
		telemetry.WithAttribute(telemetry.SpanAttrFileName, input.FileName))
	defer span.End()

	if len(input.Data) == 0 {
		return nil, shared.NewDomainError("EMPTY_FILE", "Uploaded file is empty")
	}
	if int64(len(input.Data)) > s.processor.MaxFileSize() {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "Uploaded file exceeds the size limit")
	}

	parser, err := csvimport.ParseFromBytes(input.Data)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_FILE", "File is not valid CSV: "+err.Error())
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, shared.NewDomainError("INVALID_FILE", "File is not valid CSV: "+err.Error())
	}

	if missing := parser.ValidateHeaders(RequiredColumns); len(missing) > 0 {
		return nil, shared.NewDomainError("MISSING_COLUMNS",
			fmt.Sprintf("Required columns missing: %s", strings.Join(missing, ", ")))
	}

	upload, err := borrowing.NewUpload(input.FileName, input.UserID)
	if err != nil {
		return nil, err
	}

	result := &BorrowImportResult{UploadID: upload.ID}
	rowErrors := csvimport.NewErrorCollection(100)
	records := make([]*borrowing.Record, 0, 64)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, shared.NewDomainError("INVALID_FILE", "Failed to read CSV row: "+err.Error())
		}
		if row.IsEmpty() {
			continue
		}
		result.TotalRows++

		record, ok := s.buildRecord(row, upload.ID, input.UserID, result, rowErrors)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	// Archive the raw file; the import still succeeds if archival fails
	storageKey := fmt.Sprintf("uploads/%s/%s", upload.ID, upload.FileName)
	if s.storage != nil {
		if err := s.storage.Upload(ctx, storageKey, input.Data, "text/csv"); err != nil {
			s.logger.Warn("Failed to archive uploaded file",
				zap.String("storage_key", storageKey),
				zap.Error(err))
		} else {
			upload.SetStorageKey(storageKey)
		}
	}

	upload.Complete(result.TotalRows, len(records), result.SkippedRows, result.ErrorRows)

	if err := s.uploadRepo.Create(ctx, upload); err != nil {
		s.logger.Error("Failed to persist upload", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to record upload")
	}

	if err := s.recordRepo.CreateBatch(ctx, records); err != nil {
		s.logger.Error("Failed to persist borrow records",
			zap.String("upload_id", upload.ID.String()),
			zap.Error(err))
		telemetry.RecordError(span, err)

		// The batch insert is atomic, so no records exist for this
		// upload. Mark it failed rather than leaving it claiming
		// imported rows.
		upload.Fail(result.TotalRows, result.ErrorRows)
		if failErr := s.uploadRepo.Update(ctx, upload); failErr != nil {
			s.logger.Error("Failed to mark upload as failed",
				zap.String("upload_id", upload.ID.String()),
				zap.Error(failErr))
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to store borrow records")
	}

	result.ImportedRows = len(records)
	result.Errors = rowErrors.Errors()
	result.IsTruncated = rowErrors.IsTruncated()
	result.TotalErrors = rowErrors.TotalCount()

	// Cached aggregations are stale now
	if s.insightsCache != nil {
		if err := s.insightsCache.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate insights cache", zap.Error(err))
		}
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrUploadID, upload.ID,
		telemetry.SpanAttrRowCount, result.TotalRows,
	)

	s.logger.Info("Borrow records imported",
		zap.String("upload_id", upload.ID.String()),
		zap.String("file_name", upload.FileName),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("imported_rows", result.ImportedRows),
		zap.Int("skipped_rows", result.SkippedRows))

	return result, nil
}

// buildRecord converts one CSV row into a domain record, applying the
// coercion rules. Returns false when the row is skipped or rejected.
func (s *BorrowImportService) buildRecord(
	row *csvimport.Row,
	uploadID, userID uuid.UUID,
	result *BorrowImportResult,
	rowErrors *csvimport.ErrorCollection,
) (*borrowing.Record, bool) {
	dateStr := strings.TrimSpace(row.Get(ColumnBorrowDate))
	borrowDate, err := time.Parse(borrowing.BorrowDateFormat, dateStr)
	if err != nil {
		rowErrors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, ColumnBorrowDate,
			csvimport.ErrCodeImportInvalidType, "borrow date is not in YYYY-MM-DD format, row skipped", dateStr))
		result.SkippedRows++
		return nil, false
	}

	// Invalid or negative counts become zero; the row is still imported
	count := 0
	if countStr := strings.TrimSpace(row.Get(ColumnCount)); countStr != "" {
		if parsed, err := strconv.Atoi(countStr); err == nil && parsed > 0 {
			count = parsed
		}
	}

	title := strings.TrimSpace(row.Get(ColumnTitle))
	department := strings.TrimSpace(row.Get(ColumnDepartment))
	if department != "" {
		department = s.deptCaser.String(department)
	}
	genre := strings.TrimSpace(row.Get(ColumnGenre))

	record, err := borrowing.NewRecord(title, department, genre, count, borrowDate, uploadID, userID)
	if err != nil {
		rowErrors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
		result.ErrorRows++
		return nil, false
	}

	return record, true
}

// ValidateCSV runs a dry-run validation of an upload and returns the
// per-row findings with a preview, without writing any records.
func (s *BorrowImportService) ValidateCSV(ctx context.Context, input ImportInput) (*csvimport.ValidationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "borrow_import", "validate",
		telemetry.WithAttribute(telemetry.SpanAttrFileName, input.FileName))
	defer span.End()

	if len(input.Data) == 0 {
		return nil, shared.NewDomainError("EMPTY_FILE", "Uploaded file is empty")
	}

	session := csvimport.NewImportSession(input.UserID, input.FileName, int64(len(input.Data)))
	if s.sessions != nil {
		if err := s.sessions.Save(session); err != nil {
			s.logger.Warn("Failed to save import session", zap.Error(err))
		}
	}

	result, err := s.processor.Validate(ctx, session, bytes.NewReader(input.Data), s.GetValidationRules())
	if err != nil {
		return nil, err
	}

	if s.sessions != nil {
		if err := s.sessions.Save(session); err != nil {
			s.logger.Warn("Failed to update import session", zap.Error(err))
		}
	}

	return result, nil
}

// Template returns the CSV template content
func (s *BorrowImportService) Template() string {
	return TemplateCSV
}

// ListUploads returns the caller's upload history, newest first unless
// another sort is requested
func (s *BorrowImportService) ListUploads(ctx context.Context, userID uuid.UUID, sort borrowing.UploadSort) ([]UploadInfo, error) {
	uploads, err := s.uploadRepo.FindByUser(ctx, userID, sort)
	if err != nil {
		s.logger.Error("Failed to list uploads", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list uploads")
	}

	infos := make([]UploadInfo, 0, len(uploads))
	for _, upload := range uploads {
		infos = append(infos, s.uploadInfo(ctx, upload))
	}
	return infos, nil
}

// GetUpload returns one of the caller's uploads by ID. Uploads made by
// other users are reported as not found.
func (s *BorrowImportService) GetUpload(ctx context.Context, id, userID uuid.UUID) (*UploadInfo, error) {
	upload, err := s.uploadRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "Upload not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load upload")
	}
	if upload.UploadedBy != userID {
		return nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "Upload not found")
	}

	info := s.uploadInfo(ctx, upload)
	return &info, nil
}

func (s *BorrowImportService) uploadInfo(ctx context.Context, upload *borrowing.Upload) UploadInfo {
	info := UploadInfo{
		ID:           upload.ID,
		FileName:     upload.FileName,
		Status:       string(upload.Status),
		TotalRows:    upload.TotalRows,
		ImportedRows: upload.ImportedRows,
		SkippedRows:  upload.SkippedRows,
		ErrorRows:    upload.ErrorRows,
		UploadedAt:   upload.UploadedAt,
	}

	if s.storage != nil && upload.StorageKey != "" {
		url, _, err := s.storage.GenerateDownloadURL(ctx, upload.StorageKey, downloadURLExpiry)
		if err != nil {
			s.logger.Warn("Failed to presign upload download",
				zap.String("upload_id", upload.ID.String()),
				zap.Error(err))
		} else {
			info.DownloadURL = url
		}
	}

	return info
}
