package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// StudyGroup is a named collaboration space. Names are unique regardless of case;
// NameKey holds the folded name so the storage layer enforces that, not just the
// lookup done before insert.
type StudyGroup struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"size:250;not null" json:"name"`
	NameKey     string    `gorm:"size:250;uniqueIndex;not null" json:"-"`
	Description string    `gorm:"type:text" json:"description"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`

	// Relationships
	Owner       User         `gorm:"foreignKey:OwnerID" json:"-"`
	Memberships []Membership `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
	Subjects    []Subject    `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"subjects,omitempty"`
}

// GroupNameKey folds a group name into the form used for uniqueness checks
func GroupNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BeforeSave keeps NameKey in step with Name
func (g *StudyGroup) BeforeSave(tx *gorm.DB) error {
	g.NameKey = GroupNameKey(g.Name)
	return nil
}
