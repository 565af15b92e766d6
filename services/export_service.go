package services

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"

	"writing-assessment-api/models"
	"writing-assessment-api/utils"

	"gorm.io/gorm"
)

// ExportProjectSubmissions bundles every SUBMITTED essay for a project into
// a ZIP of plain-text files, one per student, named Name_IDCode.txt. The raw
// content preserves the student's original tabs and newlines.
func ExportProjectSubmissions(db *gorm.DB, projectID string) ([]byte, string, error) {
	var project models.Project
	err := db.Where("project_id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrProjectNotFound
	}
	if err != nil {
		return nil, "", err
	}

	var rows []struct {
		StudentName string `gorm:"column:name"`
		IDCode      string `gorm:"column:id_code"`
		ContentRaw  string `gorm:"column:content_raw"`
	}
	err = db.Model(&models.Submission{}).
		Select("students.name, students.id_code, submissions.content_raw").
		Joins("JOIN students ON students.student_id = submissions.student_id").
		Where("submissions.project_id = ? AND submissions.status = ?", projectID, models.StatusSubmitted).
		Order("students.name").
		Scan(&rows).Error
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, row := range rows {
		name := utils.SanitizeFilename(fmt.Sprintf("%s_%s.txt", row.StudentName, row.IDCode))
		w, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return nil, "", err
		}
		if _, err := w.Write([]byte(row.ContentRaw)); err != nil {
			zw.Close()
			return nil, "", err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}

	filename := utils.SanitizeFilename(project.Title + "_Submissions.zip")
	return buf.Bytes(), filename, nil
}
