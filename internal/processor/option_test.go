package processor

import (
	"context"
	"io"
	"testing"
	"time"

	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct{}

func (stubExtractor) ExtractFromFile(context.Context, string) (string, map[string]interface{}, error) {
	return "", nil, nil
}

func (stubExtractor) ExtractTextFromReader(context.Context, io.Reader, string, interface{}) (string, map[string]interface{}, error) {
	return "", nil, nil
}

func (stubExtractor) ExtractTextFromBytes(context.Context, []byte, string, interface{}) (string, map[string]interface{}, error) {
	return "", nil, nil
}

func TestNewComponents(t *testing.T) {
	store := &storage.Storage{}
	extractor := stubExtractor{}
	structurer := NewHeuristicStructurer(nil)

	comp := NewComponents(
		WithcompStorage(store),
		WithcompPdfextractor(extractor),
		WithcompStructurer(structurer),
	)

	assert.Same(t, store, comp.Storage)
	assert.Equal(t, extractor, comp.PDFExtractor)
	assert.Equal(t, structurer, comp.Structurer)
}

func TestSettingOptions(t *testing.T) {
	set := defaultSettings()
	require.NotNil(t, set.Logger)
	assert.Equal(t, time.Local, set.TimeLocation)
	assert.False(t, set.Debug)
	assert.False(t, set.UseLLM)

	logger := zerolog.New(io.Discard)
	riyadh := time.FixedZone("AST", 3*60*60)

	for _, opt := range []SettingOpt{
		WithsetDebug(true),
		WithsetUsellm(true),
		WithsetLogger(&logger),
		WithsetTimelocation(riyadh),
	} {
		opt(&set)
	}

	assert.True(t, set.Debug)
	assert.True(t, set.UseLLM)
	assert.Same(t, &logger, set.Logger)
	assert.Same(t, riyadh, set.TimeLocation)
}

func TestSettingOptions_NilFallbacks(t *testing.T) {
	var set Settings
	WithsetLogger(nil)(&set)
	WithsetTimelocation(nil)(&set)

	require.NotNil(t, set.Logger)
	assert.Equal(t, time.Local, set.TimeLocation)
}

func TestNewCVServiceV2_BackfillsStructurer(t *testing.T) {
	service := NewCVServiceV2(nil, nil, nil, WithsetDebug(false))

	result, err := service.AnalyzeRawText(context.Background(), "Maya Haddad\nExperience\n- Developer at Orbit\n")
	require.NoError(t, err)
	assert.Equal(t, constants.MethodHeuristic, result.AnalysisMethod)
}
