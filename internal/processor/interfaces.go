package processor

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"cv-intake-go/internal/parser"
	"cv-intake-go/internal/storage"
	"cv-intake-go/internal/types"
)

// PDFExtractor extracts plain text and metadata from uploaded documents.
type PDFExtractor interface {
	// ExtractFromFile extracts text and metadata from a file on disk.
	ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error)

	// ExtractTextFromReader extracts text and metadata from a reader. The
	// uri identifies the source in logs and metadata.
	ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, options interface{}) (string, map[string]interface{}, error)

	// ExtractTextFromBytes extracts text and metadata from a byte slice.
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error)
}

// CVStructurer converts raw CV text into the structured schema and reports
// which path produced the result. Implementations must be total: they
// return a usable structure for any input, degrading instead of failing.
type CVStructurer interface {
	StructureCVWithMethod(ctx context.Context, rawText string) (*types.StructuredCV, string)
}

// heuristicStructurer adapts the pure rule-based parser to the CVStructurer
// surface used by the pipeline.
type heuristicStructurer struct {
	p *parser.FallbackCVParser
}

// NewHeuristicStructurer wraps a rule-based parser as a CVStructurer.
func NewHeuristicStructurer(p *parser.FallbackCVParser) CVStructurer {
	return heuristicStructurer{p: p}
}

func (h heuristicStructurer) StructureCVWithMethod(_ context.Context, rawText string) (*types.StructuredCV, string) {
	return h.p.StructureCVWithMethod(rawText)
}

// Components are the injectable dependencies of the CV service.
type Components struct {
	Storage      *storage.Storage
	PDFExtractor PDFExtractor
	Structurer   CVStructurer
}

// Settings are the behavioral knobs of the CV service.
type Settings struct {
	Debug        bool
	Logger       *zerolog.Logger
	TimeLocation *time.Location
	UseLLM       bool
}

// defaultSettings returns the settings used when a caller supplies none.
func defaultSettings() Settings {
	nop := zerolog.Nop()
	return Settings{
		Logger:       &nop,
		TimeLocation: time.Local,
	}
}
