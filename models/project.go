package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project genres as shown to students
const (
	GenreNarrative  = "NARRATIVE"
	GenrePersuasive = "PERSUASIVE"
)

// Project represents the projects table
type Project struct {
	ProjectID           string         `gorm:"primaryKey;column:project_id;size:36" json:"id"`
	Title               string         `gorm:"column:title" json:"title"`
	Genre               string         `gorm:"column:genre" json:"genre"`
	Instructions        string         `gorm:"column:instructions;type:text" json:"instructions"`
	StimulusHTML        string         `gorm:"column:stimulus_html;type:text" json:"stimulus_html"`
	AssetPaths          datatypes.JSON `gorm:"column:asset_paths" json:"asset_paths"`
	AssignedClassGroups datatypes.JSON `gorm:"column:assigned_class_groups" json:"assigned_class_groups"`
	IsActive            bool           `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt           time.Time      `gorm:"column:created_at" json:"created_at"`

	Submissions []Submission `gorm:"foreignKey:ProjectID;references:ProjectID" json:"submissions,omitempty"`
}

// TableName overrides the table name for Project
func (Project) TableName() string {
	return "projects"
}

// BeforeCreate assigns a UUID when none was provided
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ProjectID == "" {
		p.ProjectID = uuid.New().String()
	}
	return nil
}

// ClassGroups decodes the assigned_class_groups JSON column.
func (p *Project) ClassGroups() []string {
	var groups []string
	if len(p.AssignedClassGroups) == 0 {
		return groups
	}
	_ = json.Unmarshal(p.AssignedClassGroups, &groups)
	return groups
}

// HasClassGroup reports whether the project is assigned to the given class group.
func (p *Project) HasClassGroup(group string) bool {
	for _, g := range p.ClassGroups() {
		if g == group {
			return true
		}
	}
	return false
}
