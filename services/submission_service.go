package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"writing-assessment-api/config"
	"writing-assessment-api/models"
	"writing-assessment-api/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DraftContent carries the three synchronized representations of the essay.
// content_raw is canonical for word counts and export; the other two are
// opaque editor output.
type DraftContent struct {
	ContentRaw  string         `json:"content_raw"`
	ContentHTML string         `json:"content_html"`
	ContentJSON datatypes.JSON `json:"content_json"`
}

// SubmissionService is the authoritative writer for submission rows.
// Transitions are guarded UPDATE statements keyed on the current status, so
// check-then-act is a single atomic statement and a save can never slip in
// after the lock: the WHERE clause simply stops matching.
type SubmissionService struct {
	db          *gorm.DB
	broadcaster Broadcaster
	notifyEmail string
}

func NewSubmissionService(db *gorm.DB, broadcaster Broadcaster) *SubmissionService {
	notify := os.Getenv("TEACHER_NOTIFY_EMAIL")
	if notify != "" && !utils.ValidateEmail(notify) {
		log.Printf("submission: ignoring invalid TEACHER_NOTIFY_EMAIL %q", notify)
		notify = ""
	}
	return &SubmissionService{db: db, broadcaster: broadcaster, notifyEmail: notify}
}

// DB exposes the underlying handle for read-only collaborators (export).
func (s *SubmissionService) DB() *gorm.DB {
	return s.db
}

// Get returns the submission for a (student, project) pair, or
// ErrSubmissionNotFound when the student has not started writing yet.
func (s *SubmissionService) Get(studentID, projectID string) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.Where("student_id = ? AND project_id = ?", studentID, projectID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByID returns a submission by primary key.
func (s *SubmissionService) GetByID(submissionID string) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.Where("submission_id = ?", submissionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByProject returns the full snapshot used to seed a dashboard.
func (s *SubmissionService) ListByProject(projectID string) ([]models.Submission, error) {
	var subs []models.Submission
	if err := s.db.Where("project_id = ?", projectID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// SaveDraft upserts draft content. The row is created lazily on the first
// autosave; once the submission is SUBMITTED every save fails with
// ErrSubmissionLocked and content stays untouched.
func (s *SubmissionService) SaveDraft(studentID, projectID string, content DraftContent) (*models.Submission, error) {
	now := time.Now().UTC()

	// Two passes at most: the second covers losing a create race to a
	// concurrent first autosave from the same session.
	for attempt := 0; attempt < 2; attempt++ {
		res := s.db.Model(&models.Submission{}).
			Where("student_id = ? AND project_id = ? AND status = ?", studentID, projectID, models.StatusDraft).
			Updates(map[string]interface{}{
				"content_raw":  content.ContentRaw,
				"content_html": content.ContentHTML,
				"content_json": content.ContentJSON,
				"updated_at":   now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			return s.finishTransition(studentID, projectID)
		}

		var existing models.Submission
		err := s.db.Where("student_id = ? AND project_id = ?", studentID, projectID).First(&existing).Error
		if err == nil {
			if existing.Locked() {
				return nil, ErrSubmissionLocked
			}
			// Raced with another transition; retry the guarded update.
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		sub := models.Submission{
			StudentID:   studentID,
			ProjectID:   projectID,
			ContentRaw:  content.ContentRaw,
			ContentHTML: content.ContentHTML,
			ContentJSON: content.ContentJSON,
			Status:      models.StatusDraft,
			UpdatedAt:   now,
			CreatedAt:   now,
		}
		if err := s.db.Create(&sub).Error; err != nil {
			// Unique (student, project) index: someone else created the
			// row first; loop back into the guarded update.
			continue
		}
		s.broadcast(&sub)
		return &sub, nil
	}

	return nil, ErrSubmissionLocked
}

// Submit locks the submission. submitted_at is stamped exactly once: a
// duplicate submit fails with ErrAlreadySubmitted and never re-stamps.
func (s *SubmissionService) Submit(studentID, projectID string) (*models.Submission, error) {
	now := time.Now().UTC()

	res := s.db.Model(&models.Submission{}).
		Where("student_id = ? AND project_id = ? AND status = ?", studentID, projectID, models.StatusDraft).
		Updates(map[string]interface{}{
			"status":       models.StatusSubmitted,
			"submitted_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var existing models.Submission
		err := s.db.Where("student_id = ? AND project_id = ?", studentID, projectID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrAlreadySubmitted
	}

	sub, err := s.finishTransition(studentID, projectID)
	if err != nil {
		return nil, err
	}
	s.sendReceipt(sub)
	return sub, nil
}

// Unlock returns a SUBMITTED row to DRAFT and clears submitted_at. Only the
// teacher routes reach this; the owning student has no path to it.
func (s *SubmissionService) Unlock(submissionID string) (*models.Submission, error) {
	now := time.Now().UTC()

	res := s.db.Model(&models.Submission{}).
		Where("submission_id = ? AND status = ?", submissionID, models.StatusSubmitted).
		Updates(map[string]interface{}{
			"status":       models.StatusDraft,
			"submitted_at": nil,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var existing models.Submission
		err := s.db.Where("submission_id = ?", submissionID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrNotSubmitted
	}

	sub, err := s.GetByID(submissionID)
	if err != nil {
		return nil, err
	}
	s.broadcast(sub)
	return sub, nil
}

// finishTransition reloads the row and emits its delta.
func (s *SubmissionService) finishTransition(studentID, projectID string) (*models.Submission, error) {
	sub, err := s.Get(studentID, projectID)
	if err != nil {
		return nil, err
	}
	s.broadcast(sub)
	return sub, nil
}

// broadcast emits exactly one delta per successful transition.
func (s *SubmissionService) broadcast(sub *models.Submission) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastSubmission(SubmissionDelta{
		SubmissionID: sub.SubmissionID,
		StudentID:    sub.StudentID,
		ProjectID:    sub.ProjectID,
		Status:       sub.Status,
		UpdatedAt:    sub.UpdatedAt,
		SubmittedAt:  sub.SubmittedAt,
		WordCount:    utils.WordCount(sub.ContentRaw),
	})
}

// sendReceipt mails the supervising teacher when a student finishes.
// Best-effort: a mail failure never fails the submit.
func (s *SubmissionService) sendReceipt(sub *models.Submission) {
	if s.notifyEmail == "" {
		return
	}

	var student models.Student
	name := sub.StudentID
	if err := s.db.Where("student_id = ?", sub.StudentID).First(&student).Error; err == nil {
		name = fmt.Sprintf("%s (%s)", student.Name, student.IDCode)
	}

	subject := "Assessment submitted: " + name
	body := fmt.Sprintf(
		"<p>%s submitted their assessment at %s.</p><p>Word count: %d</p>",
		name, sub.SubmittedAt.Format(time.RFC1123), utils.WordCount(sub.ContentRaw),
	)
	if err := config.SendMail([]string{s.notifyEmail}, subject, body); err != nil {
		log.Printf("submission: receipt mail failed: %v", err)
	}
}
