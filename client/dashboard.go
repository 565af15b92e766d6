package client

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Reconnect policy: backoff grows linearly with the attempt count from a 2s
// base; after maxReconnectAttempts consecutive failures the view goes stale
// silently rather than crashing the dashboard.
const (
	reconnectBase        = 2 * time.Second
	maxReconnectAttempts = 5
)

const eventSubmissionUpdated = "SUBMISSION_UPDATED"

// StatusFilter values for Rows.
const (
	FilterAll = "ALL"
)

// StudentRow is one reconciled dashboard row: roster identity plus the
// latest known submission state.
type StudentRow struct {
	StudentID    string
	Name         string
	YearLevel    int
	IDCode       string
	ClassGroup   string
	AvatarID     string
	SubmissionID string
	Status       string
	WordCount    int
	UpdatedAt    time.Time
	SubmittedAt  *time.Time
}

// Stats summarizes the viewed project.
type Stats struct {
	Total     int
	Writing   int
	Submitted int
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// submissionDelta decodes with pointers so merging can distinguish "absent"
// from "zero": a delta carrying only a status change must not erase the
// other known fields.
type submissionDelta struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	ProjectID   string     `json:"project_id"`
	Status      string     `json:"status"`
	UpdatedAt   *time.Time `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	WordCount   *int       `json:"word_count"`
}

// DashboardView merges an initial snapshot with the live delta stream into
// one consistent row per student for a single project. Deltas for other
// projects are ignored here; the channel itself is unfiltered.
type DashboardView struct {
	api       *Client
	wsURL     string
	projectID string
	dialer    *websocket.Dialer
	logger    *log.Logger

	backoff     time.Duration
	maxAttempts int

	mu   sync.RWMutex
	rows map[string]*StudentRow
}

func NewDashboardView(api *Client, wsURL, projectID string) *DashboardView {
	return &DashboardView{
		api:         api,
		wsURL:       wsURL,
		projectID:   projectID,
		dialer:      websocket.DefaultDialer,
		logger:      log.Default(),
		backoff:     reconnectBase,
		maxAttempts: maxReconnectAttempts,
	}
}

// Load fetches the roster and the full submission snapshot and rebuilds the
// row map. Called at startup and after every reconnect, because deltas
// missed during an outage are unrecoverable.
func (d *DashboardView) Load(ctx context.Context) error {
	project, err := d.api.GetProject(ctx, d.projectID)
	if err != nil {
		return err
	}
	students, err := d.api.ListStudents(ctx)
	if err != nil {
		return err
	}
	subs, err := d.api.ProjectSubmissions(ctx, d.projectID)
	if err != nil {
		return err
	}

	assigned := make(map[string]bool, len(project.AssignedClassGroups))
	for _, g := range project.AssignedClassGroups {
		assigned[g] = true
	}

	rows := make(map[string]*StudentRow)
	for _, s := range students {
		if !assigned[s.ClassGroup] {
			continue
		}
		rows[s.ID] = &StudentRow{
			StudentID:  s.ID,
			Name:       s.Name,
			YearLevel:  s.YearLevel,
			IDCode:     s.IDCode,
			ClassGroup: s.ClassGroup,
			AvatarID:   s.AvatarID,
			Status:     StatusNotStarted,
		}
	}
	for _, sub := range subs {
		row, ok := rows[sub.StudentID]
		if !ok {
			// Student moved class group after starting; still show them.
			row = &StudentRow{StudentID: sub.StudentID, Status: StatusNotStarted}
			rows[sub.StudentID] = row
		}
		row.SubmissionID = sub.ID
		row.Status = sub.Status
		row.WordCount = sub.WordCount
		row.UpdatedAt = sub.UpdatedAt
		row.SubmittedAt = sub.SubmittedAt
	}

	d.mu.Lock()
	d.rows = rows
	d.mu.Unlock()
	return nil
}

// HandleEvent applies one pushed frame. Unknown event types are ignored so
// newer servers can add kinds without breaking older dashboards.
func (d *DashboardView) HandleEvent(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		d.logger.Printf("dashboard: bad frame: %v", err)
		return
	}
	if env.Type != eventSubmissionUpdated {
		return
	}

	var delta submissionDelta
	if err := json.Unmarshal(env.Data, &delta); err != nil {
		d.logger.Printf("dashboard: bad delta: %v", err)
		return
	}
	if delta.ProjectID != d.projectID || delta.StudentID == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rows == nil {
		d.rows = make(map[string]*StudentRow)
	}

	row, ok := d.rows[delta.StudentID]
	if !ok {
		row = &StudentRow{StudentID: delta.StudentID, Status: StatusNotStarted}
		d.rows[delta.StudentID] = row
	}

	// Field-level merge: only what the delta carries changes; identity
	// fields from the roster stay as they are.
	if delta.ID != "" {
		row.SubmissionID = delta.ID
	}
	if delta.Status != "" {
		row.Status = delta.Status
		if delta.Status == StatusDraft {
			row.SubmittedAt = nil
		}
	}
	if delta.UpdatedAt != nil {
		row.UpdatedAt = *delta.UpdatedAt
	}
	if delta.SubmittedAt != nil {
		row.SubmittedAt = delta.SubmittedAt
	}
	if delta.WordCount != nil {
		row.WordCount = *delta.WordCount
	}
}

// Rows filters and searches the merged map. Pure function of current state;
// no fetching.
func (d *DashboardView) Rows(statusFilter, search string) []StudentRow {
	search = strings.ToLower(search)

	d.mu.RLock()
	out := make([]StudentRow, 0, len(d.rows))
	for _, row := range d.rows {
		if statusFilter != "" && statusFilter != FilterAll && row.Status != statusFilter {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(row.Name), search) &&
			!strings.Contains(strings.ToLower(row.IDCode), search) {
			continue
		}
		out = append(out, *row)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stats counts rows per status.
func (d *DashboardView) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Stats{Total: len(d.rows)}
	for _, row := range d.rows {
		switch row.Status {
		case StatusDraft:
			s.Writing++
		case StatusSubmitted:
			s.Submitted++
		}
	}
	return s
}

// Run connects to the push channel and keeps the view live until the
// context is cancelled or the reconnect budget is exhausted. Every
// successful (re)connect refetches the snapshot before applying deltas.
func (d *DashboardView) Run(ctx context.Context) error {
	attempts := 0
	var lastErr error

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, resp, err := d.dialer.DialContext(ctx, d.wsURL, nil)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			lastErr = err
		} else {
			attempts = 0
			if err := d.Load(ctx); err != nil {
				conn.Close()
				lastErr = err
			} else {
				lastErr = d.readLoop(ctx, conn)
				conn.Close()
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		if attempts > d.maxAttempts {
			d.logger.Printf("dashboard: giving up after %d reconnect attempts: %v", d.maxAttempts, lastErr)
			return lastErr
		}

		select {
		case <-time.After(d.backoff * time.Duration(attempts)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *DashboardView) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		d.HandleEvent(payload)
	}
}
