// controllers/submission.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"writing-assessment-api/models"
	"writing-assessment-api/services"
	"writing-assessment-api/utils"

	"github.com/gin-gonic/gin"
)

// ===================== TEACHER SUBMISSION MANAGEMENT =====================

// SubmissionRow is a dashboard snapshot row: the submission plus the word
// count derived from its canonical plain text.
type SubmissionRow struct {
	models.Submission
	WordCount int `json:"word_count"`
}

// ListProjectSubmissions returns the snapshot a dashboard loads at connect
// time. Deltas pushed over the socket are merged into this by the viewer.
func ListProjectSubmissions(c *gin.Context) {
	projectID := c.Param("projectId")

	subs, err := submissions.ListByProject(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	rows := make([]SubmissionRow, 0, len(subs))
	for _, sub := range subs {
		rows = append(rows, SubmissionRow{
			Submission: sub,
			WordCount:  utils.WordCount(sub.ContentRaw),
		})
	}

	c.JSON(http.StatusOK, rows)
}

// UnlockSubmission returns a submission to draft mode so the student can
// keep editing. Teacher role only (enforced in routes).
func UnlockSubmission(c *gin.Context) {
	submissionID := c.Param("submissionId")

	sub, err := submissions.Unlock(submissionID)
	if errors.Is(err, services.ErrSubmissionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if errors.Is(err, services.ErrNotSubmitted) {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission is not locked"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unlock submission"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// ExportSubmissions streams a ZIP of all submitted essays for a project
func ExportSubmissions(c *gin.Context) {
	projectID := c.Param("projectId")

	archive, filename, err := services.ExportProjectSubmissions(submissions.DB(), projectID)
	if errors.Is(err, services.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export submissions"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/x-zip-compressed", archive)
}
