package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission lifecycle states
const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
)

// Submission represents the submissions table. One row exists per
// (student, project) pair; it is created lazily on the first autosave.
type Submission struct {
	SubmissionID string         `gorm:"primaryKey;column:submission_id;size:36" json:"id"`
	StudentID    string         `gorm:"column:student_id;size:36;uniqueIndex:idx_student_project" json:"student_id"`
	ProjectID    string         `gorm:"column:project_id;size:36;uniqueIndex:idx_student_project" json:"project_id"`
	ContentRaw   string         `gorm:"column:content_raw;type:text" json:"content_raw"`
	ContentHTML  string         `gorm:"column:content_html;type:text" json:"content_html"`
	ContentJSON  datatypes.JSON `gorm:"column:content_json" json:"content_json"`
	Status       string         `gorm:"column:status;default:DRAFT" json:"status"`
	SubmittedAt  *time.Time     `gorm:"column:submitted_at" json:"submitted_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`

	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"project,omitempty"`
}

// TableName overrides the table name for Submission
func (Submission) TableName() string {
	return "submissions"
}

// BeforeCreate assigns a UUID when none was provided
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.SubmissionID == "" {
		s.SubmissionID = uuid.New().String()
	}
	return nil
}

// Locked reports whether the submission can no longer be edited by its owner.
func (s *Submission) Locked() bool {
	return s.Status == StatusSubmitted
}
