package client

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// DefaultDebounce is the autosave quiet period: a burst of keystrokes
// collapses into one persistence call fired this long after the last edit.
const DefaultDebounce = 2 * time.Second

// SaveState is the binary saving/saved indicator shown to the student.
// Failures are logged, never surfaced here; the next keystroke retries.
type SaveState int

const (
	StateSaved SaveState = iota
	StateSaving
)

var ErrSessionClosed = errors.New("editor session is closed")

// EditorSession owns the live buffer for one submission being composed and
// schedules its persistence. The submission identity is carried on the
// session and passed explicitly on every save, so a timer firing late can
// never write against a stale identity captured in a closure.
type EditorSession struct {
	api       *Client
	projectID string
	debounce  time.Duration
	onState   func(SaveState)
	logger    *log.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	content DraftContent
	locked  bool
	closed  bool

	// saveMu serializes persistence calls. Submit acquires it through
	// Flush, so the lock transition is observed only after any in-flight
	// save has completed.
	saveMu sync.Mutex
}

type SessionOption func(*EditorSession)

// WithDebounce overrides the autosave quiet period.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *EditorSession) { s.debounce = d }
}

// WithStateFunc registers the saving/saved indicator callback.
func WithStateFunc(fn func(SaveState)) SessionOption {
	return func(s *EditorSession) { s.onState = fn }
}

// WithLogger overrides where autosave failures are logged.
func WithLogger(l *log.Logger) SessionOption {
	return func(s *EditorSession) { s.logger = l }
}

func NewEditorSession(api *Client, projectID string, opts ...SessionOption) *EditorSession {
	s := &EditorSession{
		api:       api,
		projectID: projectID,
		debounce:  DefaultDebounce,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load seeds the buffer from the most recent persisted content. A SUBMITTED
// submission loads read-only: subsequent UpdateContent calls are rejected.
func (s *EditorSession) Load(ctx context.Context) (*Submission, error) {
	sub, err := s.api.GetSubmission(ctx, s.projectID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sub != nil {
		s.content = DraftContent{
			ContentRaw:  sub.ContentRaw,
			ContentHTML: sub.ContentHTML,
			ContentJSON: sub.ContentJSON,
		}
		s.locked = sub.Status == StatusSubmitted
	}
	return sub, nil
}

// Content returns the current buffer.
func (s *EditorSession) Content() DraftContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// UpdateContent replaces the buffer and (re)arms the debounce timer. It
// returns immediately; no I/O happens on this path. Empty content is legal.
func (s *EditorSession) UpdateContent(content DraftContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.locked {
		return ErrLocked
	}

	s.content = content
	s.pending = true

	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.fireAutosave)
	} else {
		s.timer.Reset(s.debounce)
	}
	return nil
}

func (s *EditorSession) fireAutosave() {
	if err := s.Flush(context.Background()); err != nil && !errors.Is(err, ErrLocked) {
		s.logger.Printf("autosave failed: %v", err)
	}
}

// Flush persists the pending buffer now, if any. The timer path calls this
// when the quiet period elapses; Submit calls it first so a trailing edit is
// never dropped by the lock.
func (s *EditorSession) Flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.pending || s.closed || s.locked {
		s.mu.Unlock()
		return nil
	}
	content := s.content
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.setState(StateSaving)
	_, err := s.api.SaveDraft(ctx, s.projectID, content)
	// The indicator returns to "saved" even on failure; the next edit
	// re-arms the scheduler and retries.
	s.setState(StateSaved)

	if errors.Is(err, ErrLocked) {
		s.mu.Lock()
		s.locked = true
		s.mu.Unlock()
		return err
	}
	return err
}

// Submit flushes any pending save, then locks the submission. After a
// successful submit no further saves are scheduled.
func (s *EditorSession) Submit(ctx context.Context) (*Submission, error) {
	if err := s.Flush(ctx); err != nil && !errors.Is(err, ErrLocked) {
		return nil, err
	}

	sub, err := s.api.Submit(ctx, s.projectID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.locked = true
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	return sub, nil
}

// Close cancels any pending debounce timer. Callers that care about the
// last unflushed edit should Flush before closing.
func (s *EditorSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *EditorSession) setState(state SaveState) {
	if s.onState != nil {
		s.onState(state)
	}
}
