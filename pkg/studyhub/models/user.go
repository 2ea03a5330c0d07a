package models

import "time"

// User represents a registered account
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"size:250;uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"size:250;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`

	// Relationships
	Memberships []Membership   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
	Sessions    []StudySession `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE" json:"sessions,omitempty"`
}
