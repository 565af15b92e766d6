package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Teacher represents the teachers table
type Teacher struct {
	TeacherID    string    `gorm:"primaryKey;column:teacher_id;size:36" json:"id"`
	Username     string    `gorm:"column:username;uniqueIndex" json:"username"`
	FullName     string    `gorm:"column:full_name" json:"full_name"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name for Teacher
func (Teacher) TableName() string {
	return "teachers"
}

// BeforeCreate assigns a UUID when none was provided
func (t *Teacher) BeforeCreate(tx *gorm.DB) error {
	if t.TeacherID == "" {
		t.TeacherID = uuid.New().String()
	}
	return nil
}
