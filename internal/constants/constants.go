package constants

// Submission processing statuses, persisted on cv_submissions.
const (
	StatusUploaded         = "UPLOADED"
	StatusQueued           = "QUEUED_FOR_ANALYSIS"
	StatusTextExtracted    = "TEXT_EXTRACTED"
	StatusAnalyzed         = "ANALYZED"
	StatusAnalysisFailed   = "ANALYSIS_FAILED"
	StatusDuplicateSkipped = "DUPLICATE_SKIPPED"
)

// Analysis methods recorded on cv_analyses, so consumers can tell which
// tier produced the structure.
const (
	MethodSimpleParse = "simple_parse"
	MethodHeuristic   = "heuristic_fallback"
	MethodLLM         = "llm"
	MethodMinimal     = "minimal_structure"
)

// AllowedStatusesForAnalysis are the submission states an analysis consumer
// may pick up. Anything else means the message is a duplicate or stale.
var AllowedStatusesForAnalysis = map[string]bool{
	StatusUploaded:       true,
	StatusQueued:         true,
	StatusAnalysisFailed: true,
}

// IsStatusAllowed reports whether status is in the allowed set.
func IsStatusAllowed(status string, allowed map[string]bool) bool {
	return allowed[status]
}
