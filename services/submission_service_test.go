package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"writing-assessment-api/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type deltaRecorder struct {
	mu     sync.Mutex
	deltas []SubmissionDelta
}

func (r *deltaRecorder) BroadcastSubmission(delta SubmissionDelta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, delta)
}

func (r *deltaRecorder) all() []SubmissionDelta {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SubmissionDelta, len(r.deltas))
	copy(out, r.deltas)
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Student{}, &models.Teacher{}, &models.Project{}, &models.Submission{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*SubmissionService, *deltaRecorder) {
	t.Helper()
	rec := &deltaRecorder{}
	return NewSubmissionService(newTestDB(t), rec), rec
}

func TestSaveDraftCreatesLazily(t *testing.T) {
	svc, rec := newTestService(t)

	sub, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "Once upon a time"})
	if err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}

	if sub.SubmissionID == "" {
		t.Error("expected a generated submission id")
	}
	if sub.Status != models.StatusDraft {
		t.Errorf("status = %q, want %q", sub.Status, models.StatusDraft)
	}
	if sub.ContentRaw != "Once upon a time" {
		t.Errorf("content_raw = %q, want %q", sub.ContentRaw, "Once upon a time")
	}
	if sub.SubmittedAt != nil {
		t.Error("submitted_at should be nil before submit")
	}

	deltas := rec.all()
	if len(deltas) != 1 {
		t.Fatalf("got %d deltas, want 1", len(deltas))
	}
	if deltas[0].Status != models.StatusDraft || deltas[0].StudentID != "student-1" {
		t.Errorf("unexpected delta: %+v", deltas[0])
	}
	if deltas[0].WordCount != 4 {
		t.Errorf("delta word_count = %d, want 4", deltas[0].WordCount)
	}
}

func TestSaveDraftUpdatesExistingRow(t *testing.T) {
	svc, rec := newTestService(t)

	first, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "draft one"})
	if err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}
	second, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "draft two"})
	if err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}

	if second.SubmissionID != first.SubmissionID {
		t.Error("second save created a new row instead of updating")
	}
	if second.ContentRaw != "draft two" {
		t.Errorf("content_raw = %q, want %q", second.ContentRaw, "draft two")
	}
	if got := len(rec.all()); got != 2 {
		t.Errorf("got %d deltas, want 2 (one per successful transition)", got)
	}
}

func TestSaveDraftRejectedWhenLocked(t *testing.T) {
	svc, rec := newTestService(t)

	if _, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "final text"}); err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}
	if _, err := svc.Submit("student-1", "project-1"); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	before := len(rec.all())

	_, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "more text"})
	if !errors.Is(err, ErrSubmissionLocked) {
		t.Fatalf("SaveDraft() after submit = %v, want ErrSubmissionLocked", err)
	}

	sub, err := svc.Get("student-1", "project-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if sub.ContentRaw != "final text" {
		t.Errorf("locked save mutated content: %q", sub.ContentRaw)
	}
	if got := len(rec.all()); got != before {
		t.Errorf("failed transition emitted a delta: %d -> %d", before, got)
	}
}

func TestSubmitStampsOnce(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "done"}); err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}

	first, err := svc.Submit("student-1", "project-1")
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if first.Status != models.StatusSubmitted || first.SubmittedAt == nil {
		t.Fatalf("submit did not lock the row: %+v", first)
	}

	_, err = svc.Submit("student-1", "project-1")
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("duplicate Submit() = %v, want ErrAlreadySubmitted", err)
	}

	reloaded, err := svc.Get("student-1", "project-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !reloaded.SubmittedAt.Equal(*first.SubmittedAt) {
		t.Errorf("duplicate submit re-stamped submitted_at: %v != %v", reloaded.SubmittedAt, first.SubmittedAt)
	}
}

func TestSubmitWithoutDraft(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit("student-1", "project-1")
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("Submit() without a draft = %v, want ErrSubmissionNotFound", err)
	}
}

func TestUnlockReturnsToDraft(t *testing.T) {
	svc, rec := newTestService(t)

	if _, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "locked in"}); err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}
	sub, err := svc.Submit("student-1", "project-1")
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	unlocked, err := svc.Unlock(sub.SubmissionID)
	if err != nil {
		t.Fatalf("Unlock() failed: %v", err)
	}
	if unlocked.Status != models.StatusDraft {
		t.Errorf("status = %q, want %q", unlocked.Status, models.StatusDraft)
	}
	if unlocked.SubmittedAt != nil {
		t.Error("unlock did not clear submitted_at")
	}

	// The student can edit again straight away.
	saved, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "locked in, and more"})
	if err != nil {
		t.Fatalf("SaveDraft() after unlock failed: %v", err)
	}
	if saved.ContentRaw != "locked in, and more" {
		t.Errorf("content_raw = %q after unlock+save", saved.ContentRaw)
	}

	deltas := rec.all()
	// save, submit, unlock, save
	if len(deltas) != 4 {
		t.Fatalf("got %d deltas, want 4", len(deltas))
	}
	unlockDelta := deltas[2]
	if unlockDelta.Status != models.StatusDraft || unlockDelta.SubmittedAt != nil {
		t.Errorf("unlock delta = %+v, want DRAFT with nil submitted_at", unlockDelta)
	}
}

func TestUnlockRequiresSubmittedRow(t *testing.T) {
	svc, _ := newTestService(t)

	sub, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "still writing"})
	if err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}

	if _, err := svc.Unlock(sub.SubmissionID); !errors.Is(err, ErrNotSubmitted) {
		t.Errorf("Unlock() on a draft = %v, want ErrNotSubmitted", err)
	}
	if _, err := svc.Unlock("no-such-id"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("Unlock() on missing row = %v, want ErrSubmissionNotFound", err)
	}
}

func TestListByProject(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.SaveDraft("student-1", "project-1", DraftContent{ContentRaw: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveDraft("student-2", "project-1", DraftContent{ContentRaw: "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveDraft("student-1", "project-2", DraftContent{ContentRaw: "c"}); err != nil {
		t.Fatal(err)
	}

	subs, err := svc.ListByProject("project-1")
	if err != nil {
		t.Fatalf("ListByProject() failed: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d submissions, want 2", len(subs))
	}
}
