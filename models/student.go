package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student represents the students table
type Student struct {
	StudentID    string    `gorm:"primaryKey;column:student_id;size:36" json:"id"`
	Name         string    `gorm:"column:name" json:"name"`
	YearLevel    int       `gorm:"column:year_level" json:"year_level"`
	IDCode       string    `gorm:"column:id_code;uniqueIndex" json:"id_code"`
	ClassGroup   string    `gorm:"column:class_group" json:"class_group"`
	AvatarID     string    `gorm:"column:avatar_id" json:"avatar_id"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`

	Submissions []Submission `gorm:"foreignKey:StudentID;references:StudentID" json:"submissions,omitempty"`
}

// TableName overrides the table name for Student
func (Student) TableName() string {
	return "students"
}

// BeforeCreate assigns a UUID when none was provided
func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.StudentID == "" {
		s.StudentID = uuid.New().String()
	}
	return nil
}
