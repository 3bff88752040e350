package parser

import (
	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/logger"
	"cv-intake-go/internal/types"
)

// excerptRunes caps the raw-text excerpt kept in a degraded parse result.
const excerptRunes = 500

// FallbackCVParser is the two-tier dispatcher over the strict labeled parser
// and the loose heuristic parser. It is a total function over strings: it
// never returns nil and never lets a panic escape, whatever the input.
type FallbackCVParser struct {
	simple  *SimpleCVParser
	complex *ComplexCVParser
}

// NewFallbackCVParser wires the two tiers together.
func NewFallbackCVParser(opts ...ComplexOption) *FallbackCVParser {
	return &FallbackCVParser{
		simple:  NewSimpleCVParser(),
		complex: NewComplexCVParser(opts...),
	}
}

// StructureCV converts raw CV text into the structured schema. The strict
// labeled parse runs first; it is kept only when it produced real signal
// (an identity plus either experience or skills). Otherwise the loose
// heuristic parse of the same text wins. The universal field extractors run
// regardless of which branch is chosen.
func (p *FallbackCVParser) StructureCV(rawText string) *types.StructuredCV {
	cv, _ := p.StructureCVWithMethod(rawText)
	return cv
}

// StructureCVWithMethod is StructureCV plus the name of the tier that
// produced the result, for persistence alongside the analysis.
func (p *FallbackCVParser) StructureCVWithMethod(rawText string) (cv *types.StructuredCV, method string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Int("text_len", len(rawText)).
				Msg("cv structuring panicked, degrading to minimal structure")
			cv = MinimalStructure(rawText)
			method = constants.MethodMinimal
		}
	}()

	strict := p.simple.Parse(rawText)
	if (strict.PersonalInfo.FullName != "" || strict.PersonalInfo.Email != "") &&
		(len(strict.Experience) > 0 || len(strict.Skills) > 0) {
		cv = strict
		method = constants.MethodSimpleParse
	} else {
		cv = p.complex.Parse(rawText)
		method = constants.MethodHeuristic
	}

	if cv.PersonalInfo.Email == "" {
		cv.PersonalInfo.Email = ExtractEmail(rawText)
	}
	if cv.PersonalInfo.Phone == "" {
		cv.PersonalInfo.Phone = ExtractPhone(rawText)
	}
	return cv, method
}

// MinimalStructure is the degraded result used when structuring fails
// entirely: an empty schema carrying a truncated excerpt of the input so
// callers still have something to show.
func MinimalStructure(rawText string) *types.StructuredCV {
	cv := types.NewStructuredCV()
	runes := []rune(rawText)
	if len(runes) > excerptRunes {
		cv.PersonalInfo.Summary = string(runes[:excerptRunes]) + "..."
	} else {
		cv.PersonalInfo.Summary = rawText
	}
	return cv
}

var defaultFallback = NewFallbackCVParser()

// StructureCVFallback is the package-level entry point used by callers that
// do not need a customized keyword table.
func StructureCVFallback(rawText string) *types.StructuredCV {
	return defaultFallback.StructureCV(rawText)
}

// ParseSimpleCV exposes the strict tier on its own; the dispatcher's
// selection policy is a contract of its own and callers (and tests) can
// inspect the strict result directly.
func ParseSimpleCV(rawText string) *types.StructuredCV {
	return defaultFallback.simple.Parse(rawText)
}
