package processor

import (
	"errors"
	"fmt"
)

// Base error categories of the intake pipeline.
var (
	ErrCVDownloadFailed     = errors.New("failed to download CV file")
	ErrTextExtractionFailed = errors.New("failed to extract CV text")
	ErrStoreTextFailed      = errors.New("failed to upload extracted text")
	ErrUpdateStatusFailed   = errors.New("failed to update submission status")
	ErrDatabaseFailed       = errors.New("database operation failed")
	ErrDuplicateContent     = errors.New("duplicate content detected")
)

// CVProcessError carries the submission and operation alongside the base
// error so consumers can both match with errors.Is and log context.
type CVProcessError struct {
	SubmissionUUID string
	Op             string
	BaseErr        error
	Detail         string
}

func (e *CVProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (op:%s, uuid:%s): %s", e.BaseErr, e.Op, e.SubmissionUUID, e.Detail)
	}
	return fmt.Sprintf("%s (op:%s, uuid:%s)", e.BaseErr, e.Op, e.SubmissionUUID)
}

func (e *CVProcessError) Unwrap() error {
	return e.BaseErr
}

func (e *CVProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func NewDownloadError(uuid, detail string) error {
	return &CVProcessError{
		SubmissionUUID: uuid,
		Op:             "download",
		BaseErr:        ErrCVDownloadFailed,
		Detail:         detail,
	}
}

func NewExtractionError(uuid, detail string) error {
	return &CVProcessError{
		SubmissionUUID: uuid,
		Op:             "extract",
		BaseErr:        ErrTextExtractionFailed,
		Detail:         detail,
	}
}

func NewStoreError(uuid, detail string) error {
	return &CVProcessError{
		SubmissionUUID: uuid,
		Op:             "store",
		BaseErr:        ErrStoreTextFailed,
		Detail:         detail,
	}
}

func NewUpdateError(uuid, detail string) error {
	return &CVProcessError{
		SubmissionUUID: uuid,
		Op:             "update",
		BaseErr:        ErrUpdateStatusFailed,
		Detail:         detail,
	}
}

func NewDatabaseError(uuid, detail string) error {
	return &CVProcessError{
		SubmissionUUID: uuid,
		Op:             "database",
		BaseErr:        ErrDatabaseFailed,
		Detail:         detail,
	}
}
