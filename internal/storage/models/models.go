package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CVSubmission is one uploaded or pasted CV. The row is created at intake
// time and its ProcessingStatus advances as the pipeline works through it.
type CVSubmission struct {
	SubmissionUUID      string    `gorm:"type:char(36);primaryKey"`
	SubmissionTimestamp time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_cvs_submission_timestamp"`
	SourceChannel       string    `gorm:"type:varchar(100)"`
	UserID              string    `gorm:"type:char(36);index:idx_cvs_user_id"`
	OriginalFilename    string    `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string    `gorm:"type:varchar(1024)"`
	ParsedTextPathOSS   string    `gorm:"type:varchar(1024)"`
	RawFileMD5          string    `gorm:"type:char(32);index:idx_cvs_raw_file_md5"`
	RawTextMD5          string    `gorm:"type:char(32);index:idx_cvs_raw_text_md5"`
	ProcessingStatus    string    `gorm:"type:varchar(50);default:'UPLOADED';index:idx_cvs_processing_status"`
	ParserVersion       string    `gorm:"type:varchar(50)"`
	CreatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CVSubmission) TableName() string {
	return "cv_submissions"
}

// CVAnalysis is the structuring and scoring result for one submission.
// StructuredCVJSON carries the canonical schema; the score columns are
// denormalized for listing queries.
type CVAnalysis struct {
	AnalysisID       uint64         `gorm:"primaryKey;autoIncrement"`
	SubmissionUUID   string         `gorm:"type:char(36);not null;uniqueIndex:idx_cva_submission_uuid"`
	StructuredCVJSON datatypes.JSON `gorm:"type:json"`
	ATSScore         int            `gorm:"type:int;index:idx_cva_ats_score"`
	ATSFeedbackJSON  datatypes.JSON `gorm:"type:json"`
	ATSFeaturesJSON  datatypes.JSON `gorm:"type:json"`
	AnalysisMethod   string         `gorm:"type:varchar(50)"`
	AnalyzedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	CVSubmission *CVSubmission `gorm:"foreignKey:SubmissionUUID;references:SubmissionUUID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CVAnalysis) TableName() string {
	return "cv_analyses"
}

// StringToJSON converts a raw JSON string to datatypes.JSON.
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// MapToJSON marshals a map into datatypes.JSON.
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// ValueToJSON marshals any value into datatypes.JSON.
func ValueToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
