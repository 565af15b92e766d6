package controllers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"writing-assessment-api/config"
	"writing-assessment-api/models"
	"writing-assessment-api/utils"

	"github.com/gin-gonic/gin"
)

// Expected roster CSV header columns
var rosterColumns = []string{"Name", "Year Level", "ID Code", "Class Group", "Password", "Avatar ID"}

type RosterImportResult struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// UploadRoster imports the student roster from a CSV file. Rows are keyed by
// ID Code: existing students are updated in place, the rest are created.
// Row-level failures are collected, not fatal.
func UploadRoster(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	result, err := importRoster(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func importRoster(r io.Reader) (*RosterImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Strip a UTF-8 BOM exported by Excel.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}
	for _, col := range rosterColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	result := &RosterImportResult{Errors: []string{}}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Total++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.Total, err))
			continue
		}
		result.Total++

		field := func(col string) string {
			return utils.SanitizeInput(record[colIndex[col]])
		}

		idCode := field("ID Code")
		name := field("Name")
		if idCode == "" || name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Name and ID Code are required", result.Total))
			continue
		}

		yearLevel, err := strconv.Atoi(field("Year Level"))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: invalid year level", result.Total))
			continue
		}

		var student models.Student
		found := config.DB.Where("id_code = ?", idCode).First(&student).Error == nil

		student.Name = name
		student.YearLevel = yearLevel
		student.IDCode = idCode
		student.ClassGroup = field("Class Group")
		student.AvatarID = field("Avatar ID")

		if password := record[colIndex["Password"]]; password != "" {
			hash, err := HashPassword(password)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: failed to hash password", result.Total))
				continue
			}
			student.PasswordHash = hash
		}

		if found {
			if err := config.DB.Save(&student).Error; err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.Total, err))
				continue
			}
			result.Updated++
		} else {
			if err := config.DB.Create(&student).Error; err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.Total, err))
				continue
			}
			result.Created++
		}
	}

	return result, nil
}
