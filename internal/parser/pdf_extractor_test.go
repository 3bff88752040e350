package parser

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEinoPDFTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err)
	require.NotNil(t, extractor)
	assert.NotNil(t, extractor.parser)
	assert.NotNil(t, extractor.logger)

	customLogger := log.New(os.Stdout, "[pdf-test] ", log.LstdFlags)
	withLogger, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(customLogger))
	require.NoError(t, err)
	assert.Equal(t, customLogger, withLogger.logger)
}

func TestExtractFromFile_MissingFile(t *testing.T) {
	ctx := context.Background()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err)

	_, _, err = extractor.ExtractFromFile(ctx, "testdata/does_not_exist.pdf")
	assert.Error(t, err)
}

func TestCoerceMeta(t *testing.T) {
	assert.Equal(t, map[string]interface{}{}, coerceMeta(nil))

	meta := map[string]interface{}{"source": "upload"}
	assert.Equal(t, meta, coerceMeta(meta))

	wrapped := coerceMeta("something else")
	assert.Equal(t, "something else", wrapped["original_options"])
}
