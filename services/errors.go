package services

import "errors"

// Transition errors map to HTTP codes in the controllers: a locked save is
// 403, a duplicate submit is 409, a missing row is 404.
var (
	ErrSubmissionLocked   = errors.New("submission is locked")
	ErrAlreadySubmitted   = errors.New("submission already submitted")
	ErrNotSubmitted       = errors.New("submission is not submitted")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrProjectNotFound    = errors.New("project not found")
)
