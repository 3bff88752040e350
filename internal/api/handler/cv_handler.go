// Package handler holds the transport-independent request handlers behind
// the HTTP router. Handlers take plain arguments and return response
// structs; the router does the hertz binding.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cv-intake-go/internal/config"
	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/logger"
	"cv-intake-go/internal/parser"
	"cv-intake-go/internal/processor"
	"cv-intake-go/internal/storage"
	"cv-intake-go/internal/storage/models"
	"cv-intake-go/internal/types"
	"cv-intake-go/pkg/utils"

	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

// Upload response statuses.
const (
	StatusSubmitted            = "SUBMITTED_FOR_PROCESSING"
	StatusDuplicateFileSkipped = "DUPLICATE_FILE_SKIPPED"
)

// CVHandler coordinates the CV intake flows: file upload, synchronous text
// analysis and result retrieval.
type CVHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	service processor.CVService
}

// NewCVHandler creates a CV handler over the storage aggregate and the
// processing service.
func NewCVHandler(cfg *config.Config, storage *storage.Storage, service processor.CVService) *CVHandler {
	return &CVHandler{
		cfg:     cfg,
		storage: storage,
		service: service,
	}
}

// CVUploadResponse is returned from the upload endpoint.
type CVUploadResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
}

// CVAnalyzeResponse is returned from the synchronous analyze endpoint.
type CVAnalyzeResponse struct {
	SubmissionUUID string              `json:"submission_uuid"`
	StructuredCV   *types.StructuredCV `json:"structured_cv"`
	ATSScore       *types.ATSScore     `json:"ats_score"`
	AnalysisMethod string              `json:"analysis_method"`
}

// CVDetailResponse is the stored state of one submission.
type CVDetailResponse struct {
	SubmissionUUID   string          `json:"submission_uuid"`
	SourceChannel    string          `json:"source_channel"`
	OriginalFilename string          `json:"original_filename,omitempty"`
	ProcessingStatus string          `json:"processing_status"`
	ParserVersion    string          `json:"parser_version,omitempty"`
	SubmittedAt      time.Time       `json:"submitted_at"`
	StructuredCV     json.RawMessage `json:"structured_cv,omitempty"`
	ATSScore         *int            `json:"ats_score,omitempty"`
	ATSFeedback      json.RawMessage `json:"ats_feedback,omitempty"`
	AnalysisMethod   string          `json:"analysis_method,omitempty"`
	AnalyzedAt       *time.Time      `json:"analyzed_at,omitempty"`
}

// HandleCVUpload stores an uploaded CV file and queues it for analysis.
// Files whose MD5 was seen before are skipped without creating a new
// submission.
func (h *CVHandler) HandleCVUpload(ctx context.Context, reader io.Reader, fileSize int64,
	filename string, sourceChannel string, userID string) (*CVUploadResponse, error) {

	// the reader can only be consumed once: buffer it so the MD5 gate runs
	// before anything is written
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(fileBytes) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}
	fileMD5 := utils.CalculateMD5(fileBytes)

	alreadySeen, err := h.storage.Redis.CheckAndAddRawFileMD5(ctx, fileMD5)
	if err != nil {
		logger.Error().
			Err(err).
			Str("md5", fileMD5).
			Msg("file MD5 dedup check failed")
		return nil, fmt.Errorf("file dedup check failed: %w", err)
	}
	if alreadySeen {
		existingUUID, lookupErr := h.storage.Redis.GetSubmissionUUIDByMD5(ctx, fileMD5)
		if lookupErr != nil {
			existingUUID = ""
		}
		logger.Info().
			Str("md5", fileMD5).
			Str("filename", filename).
			Str("existing_submission", existingUUID).
			Msg("duplicate file MD5, skipping intake")
		return &CVUploadResponse{
			SubmissionUUID: existingUUID,
			Status:         StatusDuplicateFileSkipped,
		}, nil
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		h.rollbackFileMD5(ctx, fileMD5)
		return nil, fmt.Errorf("failed to generate submission UUID: %w", err)
	}
	submissionUUID := uuidV7.String()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}

	objectKey, _, err := h.storage.MinIO.UploadCVFileStreaming(ctx, submissionUUID, ext,
		bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		h.rollbackFileMD5(ctx, fileMD5)
		return nil, fmt.Errorf("failed to upload CV to object storage: %w", err)
	}

	if err := h.storage.Redis.MapFileMD5ToSubmission(ctx, fileMD5, submissionUUID); err != nil {
		// the mapping only improves duplicate responses, intake continues
		logger.Warn().
			Err(err).
			Str("md5", fileMD5).
			Str("submission_uuid", submissionUUID).
			Msg("failed to map file MD5 to submission")
	}

	submission := models.CVSubmission{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: time.Now(),
		SourceChannel:       sourceChannel,
		UserID:              userID,
		OriginalFilename:    filename,
		OriginalFilePathOSS: objectKey,
		RawFileMD5:          fileMD5,
		ProcessingStatus:    constants.StatusUploaded,
	}

	event := storage.CVUploadedMessage{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: submission.SubmissionTimestamp,
		SourceChannel:       sourceChannel,
		UserID:              userID,
		OriginalFilename:    filename,
		OriginalFilePathOSS: objectKey,
		RawFileMD5:          fileMD5,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.rollbackFileMD5(ctx, fileMD5)
		return nil, fmt.Errorf("failed to encode upload event: %w", err)
	}

	// the submission row and its uploaded event commit together; the outbox
	// relay delivers the event afterwards
	err = h.storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&submission).Error; err != nil {
			return fmt.Errorf("failed to create submission: %w", err)
		}
		outboxMsg := models.OutboxMessage{
			AggregateID:      submissionUUID,
			EventType:        "cv.uploaded",
			Payload:          string(payload),
			TargetExchange:   h.cfg.RabbitMQ.CVEventsExchange,
			TargetRoutingKey: h.cfg.RabbitMQ.UploadedRoutingKey,
		}
		return h.storage.MySQL.CreateOutboxMessage(tx, &outboxMsg)
	})
	if err != nil {
		h.rollbackFileMD5(ctx, fileMD5)
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	logger.Info().
		Str("submission_uuid", submissionUUID).
		Str("filename", filename).
		Str("object_key", objectKey).
		Int64("size", fileSize).
		Msg("CV accepted for processing")

	return &CVUploadResponse{
		SubmissionUUID: submissionUUID,
		Status:         StatusSubmitted,
	}, nil
}

// rollbackFileMD5 removes a fingerprint added by the dedup gate when intake
// fails afterwards, so a retry of the same file is not rejected.
func (h *CVHandler) rollbackFileMD5(ctx context.Context, fileMD5 string) {
	if err := h.storage.Redis.RemoveRawFileMD5(ctx, fileMD5); err != nil {
		logger.Warn().
			Err(err).
			Str("md5", fileMD5).
			Msg("failed to roll back file MD5 after intake error")
	}
}

// HandleAnalyzeText structures and scores pasted CV text synchronously.
// When a job description is given the structured score includes keyword
// matching against it. The result is persisted when a database is
// configured.
func (h *CVHandler) HandleAnalyzeText(ctx context.Context, rawText string, jobDescription string) (*CVAnalyzeResponse, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, fmt.Errorf("raw_text is required")
	}

	result, err := h.service.AnalyzeRawText(ctx, rawText)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	score := result.ATSScore
	if jobDescription != "" {
		score = parser.ScoreStructuredCV(result.StructuredCV, jobDescription)
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate submission UUID: %w", err)
	}
	submissionUUID := uuidV7.String()

	if err := h.persistAnalysis(ctx, submissionUUID, rawText, result, score); err != nil {
		return nil, err
	}

	return &CVAnalyzeResponse{
		SubmissionUUID: submissionUUID,
		StructuredCV:   result.StructuredCV,
		ATSScore:       score,
		AnalysisMethod: result.AnalysisMethod,
	}, nil
}

// persistAnalysis records a synchronous analysis as a submission plus
// analysis row. Without a configured database the result is returned to the
// caller only.
func (h *CVHandler) persistAnalysis(ctx context.Context, submissionUUID, rawText string,
	result *processor.AnalysisResult, score *types.ATSScore) error {

	if h.storage == nil || h.storage.MySQL == nil {
		logger.Debug().
			Str("submission_uuid", submissionUUID).
			Msg("no database configured, analysis not persisted")
		return nil
	}

	parsedTextPath := ""
	if h.storage.MinIO != nil {
		path, err := h.storage.MinIO.UploadParsedText(ctx, submissionUUID, rawText)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("submission_uuid", submissionUUID).
				Msg("failed to archive analyzed text")
		} else {
			parsedTextPath = path
		}
	}

	cvJSON, err := models.ValueToJSON(result.StructuredCV)
	if err != nil {
		return fmt.Errorf("failed to encode structured CV: %w", err)
	}
	feedbackJSON, err := models.ValueToJSON(score.Feedback)
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}
	featuresJSON, err := models.MapToJSON(score.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	now := time.Now()
	submission := models.CVSubmission{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: now,
		SourceChannel:       "direct_text",
		ParsedTextPathOSS:   parsedTextPath,
		RawTextMD5:          utils.CalculateMD5([]byte(rawText)),
		ProcessingStatus:    constants.StatusAnalyzed,
		ParserVersion:       h.cfg.Parser.Version,
	}
	analysis := models.CVAnalysis{
		SubmissionUUID:   submissionUUID,
		StructuredCVJSON: cvJSON,
		ATSScore:         score.Score,
		ATSFeedbackJSON:  feedbackJSON,
		ATSFeaturesJSON:  featuresJSON,
		AnalysisMethod:   result.AnalysisMethod,
		AnalyzedAt:       now,
	}

	err = h.storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&submission).Error; err != nil {
			return fmt.Errorf("failed to create submission: %w", err)
		}
		return h.storage.MySQL.UpsertAnalysis(tx, &analysis)
	})
	if err != nil {
		return fmt.Errorf("failed to persist analysis: %w", err)
	}
	return nil
}

// HandleGetCV returns the stored submission and, when analysis has
// completed, its structured CV and score. Returns gorm.ErrRecordNotFound
// for unknown UUIDs.
func (h *CVHandler) HandleGetCV(ctx context.Context, submissionUUID string) (*CVDetailResponse, error) {
	submission, err := h.storage.MySQL.GetSubmissionByUUID(ctx, submissionUUID)
	if err != nil {
		return nil, err
	}

	resp := &CVDetailResponse{
		SubmissionUUID:   submission.SubmissionUUID,
		SourceChannel:    submission.SourceChannel,
		OriginalFilename: submission.OriginalFilename,
		ProcessingStatus: submission.ProcessingStatus,
		ParserVersion:    submission.ParserVersion,
		SubmittedAt:      submission.SubmissionTimestamp,
	}

	analysis, err := h.storage.MySQL.GetAnalysisBySubmission(ctx, submissionUUID)
	if err != nil {
		// a submission still in flight has no analysis row yet
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}
		return nil, err
	}

	resp.StructuredCV = json.RawMessage(analysis.StructuredCVJSON)
	resp.ATSScore = &analysis.ATSScore
	resp.ATSFeedback = json.RawMessage(analysis.ATSFeedbackJSON)
	resp.AnalysisMethod = analysis.AnalysisMethod
	resp.AnalyzedAt = &analysis.AnalyzedAt
	return resp, nil
}
