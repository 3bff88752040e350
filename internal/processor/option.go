package processor

import (
	"time"

	"github.com/rs/zerolog"

	"cv-intake-go/internal/storage"
)

// ComponentOpt changes a field of the Components struct.
type ComponentOpt func(*Components)

// SettingOpt changes a field of the Settings struct.
type SettingOpt func(*Settings)

// ----- component options -----

// WithcompPdfextractor sets the document text extractor.
func WithcompPdfextractor(extractor PDFExtractor) ComponentOpt {
	return func(c *Components) {
		c.PDFExtractor = extractor
	}
}

// WithcompStructurer sets the CV structurer.
func WithcompStructurer(structurer CVStructurer) ComponentOpt {
	return func(c *Components) {
		c.Structurer = structurer
	}
}

// WithcompStorage sets the storage aggregate.
func WithcompStorage(storage *storage.Storage) ComponentOpt {
	return func(c *Components) {
		c.Storage = storage
	}
}

// ----- setting options -----

// WithsetDebug toggles verbose logging.
func WithsetDebug(debug bool) SettingOpt {
	return func(s *Settings) {
		s.Debug = debug
	}
}

// WithsetLogger sets the service logger; nil falls back to a discard logger.
func WithsetLogger(logger *zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		} else {
			nop := zerolog.Nop()
			s.Logger = &nop
		}
	}
}

// WithsetUsellm toggles the model-backed structuring path.
func WithsetUsellm(useLLM bool) SettingOpt {
	return func(s *Settings) {
		s.UseLLM = useLLM
	}
}

// WithsetTimelocation sets the timezone used for persisted timestamps.
func WithsetTimelocation(loc *time.Location) SettingOpt {
	return func(s *Settings) {
		if loc != nil {
			s.TimeLocation = loc
		} else {
			s.TimeLocation = time.Local
		}
	}
}
