package handler

import (
	"context"
	"testing"

	"cv-intake-go/internal/config"
	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/parser"
	"cv-intake-go/internal/processor"
	"cv-intake-go/internal/storage"
	"cv-intake-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAnalyzeService returns a canned analysis result without touching any
// backing services.
type stubAnalyzeService struct {
	result *processor.AnalysisResult
	err    error
}

func (s *stubAnalyzeService) ProcessUploadedCV(_ context.Context, _ storage.CVUploadedMessage) error {
	return nil
}

func (s *stubAnalyzeService) AnalyzeRawText(_ context.Context, _ string) (*processor.AnalysisResult, error) {
	return s.result, s.err
}

func sampleAnalysisResult() *processor.AnalysisResult {
	cv := types.NewStructuredCV()
	cv.PersonalInfo.FullName = "Rami Aloush"
	cv.PersonalInfo.Email = "rami@example.com"
	cv.Skills = []string{"Go", "Python", "Docker"}
	cv.Experience = append(cv.Experience, types.ExperienceEntry{
		Position:     "Backend Engineer",
		Company:      "Nimbus",
		Achievements: []string{},
	})

	return &processor.AnalysisResult{
		StructuredCV:   cv,
		ATSScore:       parser.CalculateBasicATSScore("Rami Aloush\nrami@example.com\nSkills: Go, Python, Docker"),
		AnalysisMethod: constants.MethodSimpleParse,
	}
}

// Without a configured database the analyze flow returns the result
// directly instead of persisting it.
func newAnalyzeHandler(service processor.CVService) *CVHandler {
	return NewCVHandler(&config.Config{}, nil, service)
}

func TestHandleAnalyzeText_RequiresText(t *testing.T) {
	h := newAnalyzeHandler(&stubAnalyzeService{result: sampleAnalysisResult()})

	_, err := h.HandleAnalyzeText(context.Background(), "   \n ", "")
	assert.Error(t, err)
}

func TestHandleAnalyzeText_ReturnsStructuredResult(t *testing.T) {
	result := sampleAnalysisResult()
	h := newAnalyzeHandler(&stubAnalyzeService{result: result})

	resp, err := h.HandleAnalyzeText(context.Background(), "Rami Aloush\nrami@example.com", "")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SubmissionUUID)
	assert.Equal(t, "Rami Aloush", resp.StructuredCV.PersonalInfo.FullName)
	assert.Equal(t, constants.MethodSimpleParse, resp.AnalysisMethod)
	// without a job description the basic raw-text score is passed through
	assert.Same(t, result.ATSScore, resp.ATSScore)
}

func TestHandleAnalyzeText_JobDescriptionRescores(t *testing.T) {
	result := sampleAnalysisResult()
	h := newAnalyzeHandler(&stubAnalyzeService{result: result})

	resp, err := h.HandleAnalyzeText(context.Background(), "Rami Aloush\nrami@example.com",
		"Looking for a Go engineer with Docker experience")
	require.NoError(t, err)

	assert.NotSame(t, result.ATSScore, resp.ATSScore)
	assert.Greater(t, resp.ATSScore.Score, 0)
}

func TestHandleAnalyzeText_ServiceError(t *testing.T) {
	h := newAnalyzeHandler(&stubAnalyzeService{err: assert.AnError})

	_, err := h.HandleAnalyzeText(context.Background(), "some text", "")
	assert.ErrorIs(t, err, assert.AnError)
}
