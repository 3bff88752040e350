package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/types"
)

// maxLLMInputRunes caps the CV text sent to the model; anything longer is
// truncated before prompting.
const maxLLMInputRunes = 10000

// LLMCVStructurer converts raw CV text into the structured schema through a
// chat model. It always degrades gracefully: any model, transport or JSON
// failure falls back to the pure heuristic pipeline, so callers get a result
// for every input.
type LLMCVStructurer struct {
	llmModel model.ToolCallingChatModel
	fallback *FallbackCVParser

	promptTemplate string
	maxRetries     int
	callTimeout    time.Duration

	logger *log.Logger
}

// LLMStructurerOption configures an LLMCVStructurer.
type LLMStructurerOption func(*LLMCVStructurer)

// WithPromptTemplate replaces the generated system prompt.
func WithPromptTemplate(template string) LLMStructurerOption {
	return func(s *LLMCVStructurer) {
		s.promptTemplate = template
	}
}

// WithMaxRetries sets how many times transient model errors are retried.
func WithMaxRetries(n int) LLMStructurerOption {
	return func(s *LLMCVStructurer) {
		s.maxRetries = n
	}
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) LLMStructurerOption {
	return func(s *LLMCVStructurer) {
		s.callTimeout = d
	}
}

// WithFallbackParser replaces the heuristic tier used on model failure.
func WithFallbackParser(p *FallbackCVParser) LLMStructurerOption {
	return func(s *LLMCVStructurer) {
		s.fallback = p
	}
}

// NewLLMCVStructurer creates a structurer around the given chat model. A nil
// logger discards diagnostics.
func NewLLMCVStructurer(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...LLMStructurerOption) *LLMCVStructurer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &LLMCVStructurer{
		llmModel:    llmModel,
		fallback:    NewFallbackCVParser(),
		maxRetries:  2,
		callTimeout: 60 * time.Second,
		logger:      logger,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.promptTemplate == "" {
		s.promptTemplate = buildStructuringPrompt()
	}

	return s
}

func buildStructuringPrompt() string {
	return `You are a CV structuring engine. The user message contains the raw text of a candidate CV, in English or Arabic.

Extract the information into a single JSON object with exactly this shape:

{
  "personal_info": {"full_name": "", "email": "", "phone": "", "location": ""},
  "education": [{"institution": "", "degree": "", "duration": ""}],
  "experience": [{"position": "", "company": "", "duration": "", "description": "", "achievements": []}],
  "skills": [],
  "projects": [{"title": "", "description": "", "technologies": [], "achievements": []}],
  "certifications": [],
  "languages": []
}

Rules:
- Keep skill and technology tokens exactly as written in the CV.
- Preserve the original order of entries.
- Use "" for anything the CV does not state; never invent data.
- Respond with the JSON object only, no commentary.`
}

// StructureCV structures raw CV text via the model. The model path can fail
// in many ways; every failure is logged and answered with the heuristic
// result for the same text, so the return value is never nil.
func (s *LLMCVStructurer) StructureCV(ctx context.Context, rawText string) *types.StructuredCV {
	cv, _ := s.StructureCVWithMethod(ctx, rawText)
	return cv
}

// StructureCVWithMethod is StructureCV plus the name of the path that
// produced the result, for persistence alongside the analysis.
func (s *LLMCVStructurer) StructureCVWithMethod(ctx context.Context, rawText string) (*types.StructuredCV, string) {
	if s.llmModel == nil {
		return s.fallback.StructureCVWithMethod(rawText)
	}

	input := rawText
	if runes := []rune(input); len(runes) > maxLLMInputRunes {
		input = string(runes[:maxLLMInputRunes])
	}

	response, err := s.callModel(ctx, s.promptTemplate, input)
	if err != nil {
		s.logger.Printf("[LLMCVStructurer] model call failed, using heuristic parse: %v", err)
		return s.fallback.StructureCVWithMethod(rawText)
	}

	cv, err := s.parseResponse(response)
	if err != nil {
		s.logger.Printf("[LLMCVStructurer] response unusable, using heuristic parse: %v", err)
		return s.fallback.StructureCVWithMethod(rawText)
	}

	// The model sometimes misses contact fields the regex extractors catch.
	if cv.PersonalInfo.Email == "" {
		cv.PersonalInfo.Email = ExtractEmail(rawText)
	}
	if cv.PersonalInfo.Phone == "" {
		cv.PersonalInfo.Phone = ExtractPhone(rawText)
	}

	return cv, constants.MethodLLM
}

func (s *LLMCVStructurer) callModel(ctx context.Context, systemContent, userContent string) (string, error) {
	messages := []*einoschema.Message{
		{Role: "system", Content: systemContent},
		{Role: "user", Content: userContent},
	}

	retryDelay := 2 * time.Second
	var response *einoschema.Message
	var err error

	for retry := 0; retry <= s.maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("context cancelled: %w", ctx.Err())
			case <-time.After(retryDelay):
				retryDelay *= 2
				s.logger.Printf("[LLMCVStructurer] retrying model call (attempt %d)", retry)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		response, err = s.llmModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			break
		}

		if !isRetryableModelError(err) || retry >= s.maxRetries {
			return "", fmt.Errorf("model generate failed: %w", err)
		}
	}

	return response.Content, nil
}

func isRetryableModelError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host")
}

func (s *LLMCVStructurer) parseResponse(response string) (*types.StructuredCV, error) {
	jsonStr := extractJSONObject(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var cv types.StructuredCV
	if err := json.Unmarshal([]byte(jsonStr), &cv); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	cv.Normalize()
	return &cv, nil
}

var jsonFenceRegex = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// extractJSONObject pulls the JSON payload out of a model response that may
// wrap it in a code fence or surrounding prose.
func extractJSONObject(text string) string {
	matches := jsonFenceRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	level := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
