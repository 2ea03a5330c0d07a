package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a study session
type SessionStatus string

const (
	SessionScheduled  SessionStatus = "Scheduled"
	SessionCompleted  SessionStatus = "Completed"
	SessionInProgress SessionStatus = "In Progress"
	SessionCancelled  SessionStatus = "Cancelled"
)

// ErrUnknownSessionStatus is returned for a status outside the defined set
var ErrUnknownSessionStatus = errors.New("unknown session status")

// Valid reports whether s is one of the defined statuses
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionCompleted, SessionInProgress, SessionCancelled:
		return true
	}
	return false
}

// Value rejects unknown statuses before they reach the database
func (s SessionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSessionStatus, string(s))
	}
	return string(s), nil
}

// Scan reads a status from the database
func (s *SessionStatus) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into SessionStatus", value)
	}
	status := SessionStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSessionStatus, raw)
	}
	*s = status
	return nil
}

// StudySession is a scheduled meeting on a subject
type StudySession struct {
	ID          uint          `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Title       string        `gorm:"size:250;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	DateTime    time.Time     `gorm:"not null;index" json:"date_time"`
	Duration    int           `gorm:"not null;check:duration_range,duration > 0" json:"duration"` // minutes
	Status      SessionStatus `gorm:"type:varchar(20);not null;default:'Scheduled'" json:"status"`
	SubjectID   uint          `gorm:"not null;index" json:"subject_id"`
	CreatedByID uint          `gorm:"column:created_by;not null;index" json:"created_by"`

	// Relationships
	Subject   Subject `gorm:"foreignKey:SubjectID" json:"-"`
	CreatedBy User    `gorm:"foreignKey:CreatedByID" json:"-"`
}
