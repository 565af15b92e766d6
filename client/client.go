// Package client implements the two consumer sides of the assessment API:
// the student editing session with debounced autosave, and the teacher
// dashboard view that reconciles a snapshot with pushed deltas.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

const (
	// Interactive calls get an aggressive timeout so a flaky network never
	// freezes the writing surface; export downloads get a long one.
	defaultTimeout = 10 * time.Second
	exportTimeout  = 60 * time.Second
)

// Submission statuses on the wire
const (
	StatusDraft      = "DRAFT"
	StatusSubmitted  = "SUBMITTED"
	StatusNotStarted = "NOT_STARTED"
)

var (
	ErrLocked           = errors.New("submission is locked")
	ErrAlreadySubmitted = errors.New("submission already submitted")
	ErrNotFound         = errors.New("not found")
)

// APIError carries any non-2xx response not covered by a sentinel error.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Submission mirrors the server's submission JSON.
type Submission struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"student_id"`
	ProjectID   string          `json:"project_id"`
	ContentRaw  string          `json:"content_raw"`
	ContentHTML string          `json:"content_html"`
	ContentJSON json.RawMessage `json:"content_json"`
	Status      string          `json:"status"`
	SubmittedAt *time.Time      `json:"submitted_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SubmissionRow is a dashboard snapshot row.
type SubmissionRow struct {
	Submission
	WordCount int `json:"word_count"`
}

// Student mirrors the roster entry JSON.
type Student struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	YearLevel  int    `json:"year_level"`
	IDCode     string `json:"id_code"`
	ClassGroup string `json:"class_group"`
	AvatarID   string `json:"avatar_id"`
}

// Project mirrors the project JSON.
type Project struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Genre               string   `json:"genre"`
	Instructions        string   `json:"instructions"`
	StimulusHTML        string   `json:"stimulus_html"`
	AssignedClassGroups []string `json:"assigned_class_groups"`
	IsActive            bool     `json:"is_active"`
}

// DraftContent is the save-draft request body.
type DraftContent struct {
	ContentRaw  string          `json:"content_raw"`
	ContentHTML string          `json:"content_html"`
	ContentJSON json.RawMessage `json:"content_json,omitempty"`
}

// Client talks to the assessment API. The credential is an explicit field
// handed to the constructor, never ambient process state, so two sessions
// with different identities can coexist in one process.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	export  *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		export:  &http.Client{Timeout: exportTimeout},
	}
}

// GetSubmission returns the student's submission for a project, or nil when
// the student has not started writing yet.
func (c *Client) GetSubmission(ctx context.Context, projectID string) (*Submission, error) {
	var sub *Submission
	if err := c.do(ctx, http.MethodGet, "/api/student/submissions/"+projectID, nil, &sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// SaveDraft persists autosaved content. ErrLocked once submitted.
func (c *Client) SaveDraft(ctx context.Context, projectID string, content DraftContent) (*Submission, error) {
	var sub Submission
	if err := c.do(ctx, http.MethodPost, "/api/student/submissions/"+projectID, content, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Submit finalizes the assessment. ErrAlreadySubmitted on a duplicate call.
func (c *Client) Submit(ctx context.Context, projectID string) (*Submission, error) {
	var sub Submission
	if err := c.do(ctx, http.MethodPut, "/api/student/submissions/"+projectID+"/submit", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Unlock returns a submission to draft mode (teacher token required).
func (c *Client) Unlock(ctx context.Context, submissionID string) (*Submission, error) {
	var sub Submission
	if err := c.do(ctx, http.MethodPost, "/api/submissions/"+submissionID+"/unlock", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ProjectSubmissions fetches the full dashboard snapshot for a project.
func (c *Client) ProjectSubmissions(ctx context.Context, projectID string) ([]SubmissionRow, error) {
	var rows []SubmissionRow
	if err := c.do(ctx, http.MethodGet, "/api/submissions/project/"+projectID, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListStudents fetches the roster.
func (c *Client) ListStudents(ctx context.Context) ([]Student, error) {
	var students []Student
	if err := c.do(ctx, http.MethodGet, "/api/student/list", nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// GetProject fetches one project (teacher token required).
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Export downloads the ZIP archive of submitted essays. Uses the long
// timeout; the archive can be large on a slow school network.
func (c *Client) Export(ctx context.Context, projectID string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/submissions/export/"+projectID, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.export.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return data, filename, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusForbidden:
		return ErrLocked
	case http.StatusConflict:
		return ErrAlreadySubmitted
	case http.StatusNotFound:
		return ErrNotFound
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}
