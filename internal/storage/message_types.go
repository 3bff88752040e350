package storage

import "time"

// CVUploadedMessage is the event published when an original CV file has
// been stored and its submission row created.
type CVUploadedMessage struct {
	SubmissionUUID      string    `json:"submission_uuid"`
	SubmissionTimestamp time.Time `json:"submission_timestamp"`
	SourceChannel       string    `json:"source_channel,omitempty"`
	UserID              string    `json:"user_id,omitempty"`
	OriginalFilename    string    `json:"original_filename"`
	OriginalFilePathOSS string    `json:"original_file_path_oss"`
	// Carried so a failed consumer can roll the dedup entry back.
	RawFileMD5 string `json:"raw_file_md5,omitempty"`
}

// CVAnalyzedMessage is the event published after a submission has been
// structured and scored.
type CVAnalyzedMessage struct {
	SubmissionUUID    string `json:"submission_uuid"`
	ParsedTextPathOSS string `json:"parsed_text_path_oss,omitempty"`
	ProcessingStatus  string `json:"processing_status,omitempty"`
	AnalysisMethod    string `json:"analysis_method,omitempty"`
	ATSScore          int    `json:"ats_score,omitempty"`
	AnalyzedAt        int64  `json:"analyzed_at,omitempty"`
	Error             string `json:"error,omitempty"`
}
