package models

import "time"

// Subject is a topic inside a study group. Names are unique per group (exact match).
type Subject struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:250;not null;uniqueIndex:idx_group_subject_name" json:"name"`
	GroupID   uint      `gorm:"not null;index;uniqueIndex:idx_group_subject_name" json:"group_id"`

	// Relationships
	Group    StudyGroup     `gorm:"foreignKey:GroupID" json:"-"`
	Sessions []StudySession `gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE" json:"sessions,omitempty"`
}
