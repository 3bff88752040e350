package processor

import (
	"context"
	"errors"
	"testing"

	"cv-intake-go/internal/config"
	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/parser"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeuristicService(t *testing.T, opts ...parser.ComplexOption) CVService {
	t.Helper()
	comp := NewComponents(
		WithcompStructurer(NewHeuristicStructurer(parser.NewFallbackCVParser(opts...))),
	)
	return NewCVServiceV2(nil, comp, nil)
}

func TestAnalyzeRawText_HeuristicPath(t *testing.T) {
	service := newHeuristicService(t)

	result, err := service.AnalyzeRawText(context.Background(), `Name: Rami Aloush
Email: rami@example.com
Skills: Go, Python, Docker
Experience:
- Backend Engineer at Nimbus
`)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, constants.MethodSimpleParse, result.AnalysisMethod)
	require.NotNil(t, result.StructuredCV)
	assert.Equal(t, "rami@example.com", result.StructuredCV.PersonalInfo.Email)
	require.NotNil(t, result.ATSScore)
	assert.Greater(t, result.ATSScore.Score, 0)
}

func TestAnalyzeRawText_LooseTier(t *testing.T) {
	service := newHeuristicService(t)

	result, err := service.AnalyzeRawText(context.Background(), `Sami Barakat
Experience
- Developer at Orbit
Education
Damascus University
`)
	require.NoError(t, err)
	assert.Equal(t, constants.MethodHeuristic, result.AnalysisMethod)
	assert.Equal(t, "Sami Barakat", result.StructuredCV.PersonalInfo.FullName)
}

func TestAnalyzeRawText_WithoutStructurer(t *testing.T) {
	nop := zerolog.Nop()
	service := &cvServiceImpl{logger: &nop}

	_, err := service.AnalyzeRawText(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrStructurerNotInit)
}

func TestKeywordOptions_ExtendsConfiguredSections(t *testing.T) {
	cfg := &config.Config{}
	cfg.Parser.ExtraSectionKeywords = map[string][]string{
		"SKILLS":  {"compétences"},
		"UNKNOWN": {"ignored"},
	}

	opts := keywordOptions(cfg)
	require.Len(t, opts, 1)

	service := newHeuristicService(t, opts...)
	result, err := service.AnalyzeRawText(context.Background(), `Lea Dupont
Compétences
Go, Rust
`)
	require.NoError(t, err)
	assert.Contains(t, result.StructuredCV.Skills, "Go")
	assert.Contains(t, result.StructuredCV.Skills, "Rust")
}

func TestKeywordOptions_EmptyConfig(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, keywordOptions(cfg))
}

func TestCVProcessError(t *testing.T) {
	err := NewDownloadError("uuid-1", "connection refused")

	assert.True(t, errors.Is(err, ErrCVDownloadFailed))
	assert.Contains(t, err.Error(), "uuid-1")
	assert.Contains(t, err.Error(), "connection refused")

	var processErr *CVProcessError
	require.True(t, errors.As(err, &processErr))
	assert.Equal(t, "download", processErr.Op)
}
