package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"cv-intake-go/internal/agent"
	"cv-intake-go/internal/config"
	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/logger"
	"cv-intake-go/internal/parser"
	"cv-intake-go/internal/storage"
	"cv-intake-go/internal/storage/models"
	"cv-intake-go/internal/tracing"
	"cv-intake-go/internal/types"
	"cv-intake-go/pkg/utils"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Component initialization errors shared across the service.
var (
	ErrStorageNotInit    = errors.New("storage is not initialized")
	ErrExtractorNotInit  = errors.New("extractor is not initialized")
	ErrStructurerNotInit = errors.New("structurer is not initialized")
)

var tracer = otel.Tracer("processor")

// CVService is the intake pipeline: it turns an uploaded CV file into an
// extracted text object, a structured CV and a persisted ATS analysis.
type CVService interface {
	// ProcessUploadedCV handles one uploaded-CV event end to end.
	ProcessUploadedCV(ctx context.Context, message storage.CVUploadedMessage) error

	// AnalyzeRawText structures and scores raw CV text without touching
	// any backing store. Used by the synchronous analyze endpoint.
	AnalyzeRawText(ctx context.Context, rawText string) (*AnalysisResult, error)
}

// AnalysisResult bundles one analysis of a CV text.
type AnalysisResult struct {
	StructuredCV   *types.StructuredCV `json:"structured_cv"`
	ATSScore       *types.ATSScore     `json:"ats_score"`
	AnalysisMethod string              `json:"analysis_method"`
}

type cvServiceImpl struct {
	components Components
	settings   Settings
	config     *config.Config
	logger     *zerolog.Logger
}

// NewCVService wires the pipeline components from configuration.
func NewCVService(cfg *config.Config, storageManager *storage.Storage, log *zerolog.Logger) (CVService, error) {
	if log == nil {
		defaultLogger := zerolog.Nop()
		log = &defaultLogger
	}

	settings := defaultSettings()
	settings.Logger = log
	settings.Debug = cfg.Logger.Level == "debug"
	settings.UseLLM = cfg.LLM.APIKey != ""

	components, err := createComponents(cfg, storageManager, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create components: %w", err)
	}

	return &cvServiceImpl{
		components: components,
		settings:   settings,
		config:     cfg,
		logger:     log,
	}, nil
}

// NewComponents assembles a Components value from options.
func NewComponents(opts ...ComponentOpt) *Components {
	c := &Components{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCVServiceV2 builds a service from pre-assembled components instead of
// configuration. A nil structurer falls back to the rule-based parser so a
// partial assembly still analyzes text.
func NewCVServiceV2(cfg *config.Config, comp *Components, set *Settings, opts ...SettingOpt) CVService {
	if comp == nil {
		comp = &Components{}
	}
	settings := defaultSettings()
	if set != nil {
		settings = *set
	}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Logger == nil {
		nop := zerolog.Nop()
		settings.Logger = &nop
	}
	if comp.Structurer == nil {
		comp.Structurer = NewHeuristicStructurer(parser.NewFallbackCVParser())
	}

	return &cvServiceImpl{
		components: *comp,
		settings:   settings,
		config:     cfg,
		logger:     settings.Logger,
	}
}

// createComponents builds the text extractor and CV structurer. The model
// path is only wired when an API key is configured; the structurer always
// falls back to the rule-based parser.
func createComponents(cfg *config.Config, storageManager *storage.Storage, set Settings) (Components, error) {
	components := Components{
		Storage: storageManager,
	}

	stdLogger := log.New(
		zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.NoColor = false
			w.TimeFormat = "15:04:05"
		}),
		"[PDFExtractor] ",
		log.LstdFlags,
	)

	pdfExtractor, err := parser.NewEinoPDFTextExtractor(context.Background(), parser.WithEinoLogger(stdLogger))
	if err != nil {
		set.Logger.Warn().Err(err).Msg("failed to create PDF extractor")
	} else {
		components.PDFExtractor = pdfExtractor
	}

	fallbackParser := parser.NewFallbackCVParser(keywordOptions(cfg)...)

	if set.UseLLM && cfg.LLM.APIKey != "" {
		qwenModel, err := agent.NewQwenChatModel(
			cfg.LLM.APIKey,
			cfg.GetModelForTask("cv_structuring"),
			cfg.LLM.APIURL,
		)
		if err != nil {
			set.Logger.Warn().Err(err).Msg("failed to create chat model, structuring stays heuristic")
		} else {
			structLogger := log.New(os.Stdout, "[CVStructurer] ", log.LstdFlags)
			structurerOpts := []parser.LLMStructurerOption{
				parser.WithFallbackParser(fallbackParser),
			}
			if cfg.LLM.MaxRetries > 0 {
				structurerOpts = append(structurerOpts, parser.WithMaxRetries(cfg.LLM.MaxRetries))
			}
			if timeout := config.GetDuration(cfg.LLM.ExtractionTimeout, 0); timeout > 0 {
				structurerOpts = append(structurerOpts, parser.WithCallTimeout(timeout))
			}
			components.Structurer = parser.NewLLMCVStructurer(qwenModel, structLogger, structurerOpts...)
		}
	}

	if components.Structurer == nil {
		components.Structurer = NewHeuristicStructurer(fallbackParser)
	}

	return components, nil
}

// keywordOptions converts configured extra section keywords into parser
// options. Unknown section names are skipped.
func keywordOptions(cfg *config.Config) []parser.ComplexOption {
	if len(cfg.Parser.ExtraSectionKeywords) == 0 {
		return nil
	}

	table := parser.DefaultKeywords.Clone()
	for sectionName, keywords := range cfg.Parser.ExtraSectionKeywords {
		section := parser.Section(sectionName)
		if _, ok := table[section]; !ok {
			continue
		}
		table[section] = append(table[section], keywords...)
	}
	return []parser.ComplexOption{parser.WithKeywords(table)}
}

// ProcessUploadedCV implements CVService.
func (s *cvServiceImpl) ProcessUploadedCV(ctx context.Context, message storage.CVUploadedMessage) error {
	ctx, span := tracer.Start(ctx, "ProcessUploadedCV",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("submission_uuid", message.SubmissionUUID),
		attribute.String("source_channel", message.SourceChannel),
	)

	ctx = logger.WithSubmissionUUID(ctx, message.SubmissionUUID)
	zlog := logger.FromContext(ctx)

	zlog.Debug().Msg("processing uploaded CV")

	if s.components.Storage == nil {
		span.RecordError(ErrStorageNotInit)
		span.SetStatus(codes.Error, "storage not initialized")
		return ErrStorageNotInit
	}
	if s.components.PDFExtractor == nil {
		span.RecordError(ErrExtractorNotInit)
		span.SetStatus(codes.Error, "extractor not initialized")
		return ErrExtractorNotInit
	}
	if s.components.Structurer == nil {
		span.RecordError(ErrStructurerNotInit)
		span.SetStatus(codes.Error, "structurer not initialized")
		return ErrStructurerNotInit
	}

	err := s.components.Storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the submission row. Concurrent consumers of the same
		// message must not analyze the same submission twice.
		var submission models.CVSubmission
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("submission_uuid = ?", message.SubmissionUUID).
			First(&submission).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				zlog.Info().Msg("submission record not found, likely deleted; acking message")
				return nil
			}
			zlog.Error().Err(err).Msg("failed to load submission record")
			return fmt.Errorf("failed to load submission: %w", err)
		}

		// 2. Idempotency gate.
		if !constants.IsStatusAllowed(submission.ProcessingStatus, constants.AllowedStatusesForAnalysis) {
			zlog.Debug().Str("current_status", submission.ProcessingStatus).Msg("skipping message for non-processable status")
			span.SetAttributes(
				attribute.String("skipped_reason", "invalid_status"),
				attribute.String("current_status", submission.ProcessingStatus),
			)
			return nil
		}

		if err := tx.Model(&submission).
			Update("processing_status", constants.StatusQueued).Error; err != nil {
			return fmt.Errorf("failed to update status to %s: %w", constants.StatusQueued, err)
		}

		// 3. Extract text and run the content dedup gate.
		ctx, extractSpan := tracer.Start(ctx, "ExtractAndDeduplicateCV")
		text, textMD5Hex, err := s.extractAndDeduplicate(ctx, tx, message)
		extractSpan.End()
		if err != nil {
			if errors.Is(err, ErrDuplicateContent) {
				zlog.Info().Msg("duplicate content detected, skipping analysis")
				return nil
			}
			return err
		}

		// 4. Store the extracted text.
		span.AddEvent("uploading_parsed_text")
		textObjectKey, err := s.components.Storage.MinIO.UploadParsedText(ctx, message.SubmissionUUID, text)
		if err != nil {
			zlog.Error().Err(err).Msg("failed to upload extracted text")
			return NewStoreError(message.SubmissionUUID, err.Error())
		}
		zlog.Debug().Str("object_key", textObjectKey).Msg("extracted text stored")

		// 5. Structure and score.
		ctx, structureSpan := tracer.Start(ctx, "StructureAndScoreCV")
		cv, method := s.components.Structurer.StructureCVWithMethod(ctx, text)
		atsScore := parser.CalculateBasicATSScore(text)
		structureSpan.SetAttributes(
			attribute.String("analysis_method", method),
			attribute.Int("ats_score", atsScore.Score),
		)
		structureSpan.End()

		// 6. Persist the analysis.
		structuredJSON, err := models.ValueToJSON(cv)
		if err != nil {
			return fmt.Errorf("failed to marshal structured CV: %w", err)
		}
		feedbackJSON, err := models.ValueToJSON(atsScore.Feedback)
		if err != nil {
			return fmt.Errorf("failed to marshal ATS feedback: %w", err)
		}
		featuresJSON, err := models.MapToJSON(atsScore.Features)
		if err != nil {
			return fmt.Errorf("failed to marshal ATS features: %w", err)
		}

		analyzedAt := s.now()
		analysis := models.CVAnalysis{
			SubmissionUUID:   message.SubmissionUUID,
			StructuredCVJSON: structuredJSON,
			ATSScore:         atsScore.Score,
			ATSFeedbackJSON:  feedbackJSON,
			ATSFeaturesJSON:  featuresJSON,
			AnalysisMethod:   method,
			AnalyzedAt:       analyzedAt,
		}
		if err := s.components.Storage.MySQL.UpsertAnalysis(tx, &analysis); err != nil {
			zlog.Error().Err(err).Msg("failed to upsert analysis")
			return NewDatabaseError(message.SubmissionUUID, err.Error())
		}

		// 7. Queue the analyzed event through the outbox, in the same
		// transaction as the state change.
		analyzedMessage := storage.CVAnalyzedMessage{
			SubmissionUUID:    message.SubmissionUUID,
			ParsedTextPathOSS: textObjectKey,
			ProcessingStatus:  constants.StatusAnalyzed,
			AnalysisMethod:    method,
			ATSScore:          atsScore.Score,
			AnalyzedAt:        analyzedAt.Unix(),
		}
		payloadBytes, err := json.Marshal(analyzedMessage)
		if err != nil {
			return fmt.Errorf("failed to marshal outbox payload: %w", err)
		}
		outboxEntry := models.OutboxMessage{
			AggregateID:      message.SubmissionUUID,
			EventType:        "cv.analyzed",
			Payload:          string(payloadBytes),
			TargetExchange:   s.config.RabbitMQ.CVEventsExchange,
			TargetRoutingKey: s.config.RabbitMQ.AnalyzedRoutingKey,
		}
		if err := s.components.Storage.MySQL.CreateOutboxMessage(tx, &outboxEntry); err != nil {
			zlog.Error().Err(err).Msg("failed to create outbox record")
			return NewDatabaseError(message.SubmissionUUID, err.Error())
		}

		// 8. Final submission update.
		if err := s.components.Storage.MySQL.UpdateSubmissionFields(tx, message.SubmissionUUID, map[string]interface{}{
			"parsed_text_path_oss": textObjectKey,
			"raw_text_md5":         textMD5Hex,
			"processing_status":    constants.StatusAnalyzed,
			"parser_version":       s.config.Parser.Version,
		}); err != nil {
			zlog.Error().Err(err).Msg("failed to update submission record")
			return NewUpdateError(message.SubmissionUUID, err.Error())
		}

		span.SetStatus(codes.Ok, "processed")
		return nil
	})

	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		if updateErr := s.components.Storage.MySQL.UpdateSubmissionStatus(
			ctx, message.SubmissionUUID, constants.StatusAnalysisFailed); updateErr != nil {
			zlog.Error().Err(updateErr).Msg("failed to mark submission as failed")
		}
		return err
	}

	zlog.Info().Msg("uploaded CV processed")
	return nil
}

// AnalyzeRawText implements CVService.
func (s *cvServiceImpl) AnalyzeRawText(ctx context.Context, rawText string) (*AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "AnalyzeRawText")
	defer span.End()

	if s.components.Structurer == nil {
		span.RecordError(ErrStructurerNotInit)
		span.SetStatus(codes.Error, "structurer not initialized")
		return nil, ErrStructurerNotInit
	}

	if s.settings.Debug {
		s.logger.Debug().
			Int("text_length", len(rawText)).
			Str("text_preview", tracing.TruncateString(rawText, 120)).
			Msg("analyzing raw text")
	}

	cv, method := s.components.Structurer.StructureCVWithMethod(ctx, rawText)
	atsScore := parser.CalculateBasicATSScore(rawText)

	span.SetAttributes(
		attribute.String("analysis_method", method),
		attribute.Int("ats_score", atsScore.Score),
		attribute.Int("text_length", len(rawText)),
	)
	span.SetStatus(codes.Ok, "")

	return &AnalysisResult{
		StructuredCV:   cv,
		ATSScore:       atsScore,
		AnalysisMethod: method,
	}, nil
}

// now stamps persisted timestamps in the configured timezone.
func (s *cvServiceImpl) now() time.Time {
	if s.settings.TimeLocation != nil {
		return time.Now().In(s.settings.TimeLocation)
	}
	return time.Now()
}

// extractAndDeduplicate downloads the original file, extracts its text and
// checks the extracted text against the content dedup set.
func (s *cvServiceImpl) extractAndDeduplicate(ctx context.Context, tx *gorm.DB, message storage.CVUploadedMessage) (string, string, error) {
	zlog := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)

	originalFileBytes, err := s.components.Storage.MinIO.GetCVFile(ctx, message.OriginalFilePathOSS)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to download CV from MinIO")
		span.SetAttributes(attribute.String("error.type", "download_failure"))
		return "", "", NewDownloadError(message.SubmissionUUID, err.Error())
	}
	zlog.Debug().Int("size_bytes", len(originalFileBytes)).Msg("downloaded original CV")
	span.SetAttributes(attribute.Int("file_size_bytes", len(originalFileBytes)))

	text, _, err := s.components.PDFExtractor.ExtractTextFromReader(
		ctx, bytes.NewReader(originalFileBytes), message.OriginalFilePathOSS, nil)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to extract CV text")
		tracing.RecordError(span, err, tracing.ErrorTypeParser)
		return "", "", NewExtractionError(message.SubmissionUUID, err.Error())
	}
	zlog.Debug().Int("text_length", len(text)).Msg("extracted text")
	span.SetAttributes(attribute.Int("text_length", len(text)))
	span.AddEvent("text_extraction_completed")

	textMD5Hex := utils.CalculateMD5([]byte(text))

	// A Redis failure here only disables content dedup; the pipeline keeps
	// going rather than failing the submission.
	textExists, err := s.components.Storage.Redis.CheckAndAddParsedTextMD5(ctx, textMD5Hex)
	if err != nil {
		zlog.Warn().Err(err).Msg("content dedup check failed, continuing without dedup")
	} else if textExists {
		zlog.Info().Str("md5", textMD5Hex).Msg("duplicate extracted text detected")
		if err := tx.Model(&models.CVSubmission{}).
			Where("submission_uuid = ?", message.SubmissionUUID).
			Update("processing_status", constants.StatusDuplicateSkipped).Error; err != nil {
			return "", "", fmt.Errorf("failed to mark submission as duplicate: %w", err)
		}
		span.SetAttributes(
			attribute.Bool("duplicate_content", true),
			attribute.String("md5", textMD5Hex),
		)
		return "", "", ErrDuplicateContent
	}

	return text, textMD5Hex, nil
}
