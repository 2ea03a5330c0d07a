package models

import "time"

// Membership binds a user to a study group with exactly one role.
// (UserID, GroupID) is the primary key, so a user has at most one membership per group.
type Membership struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	GroupID   uint      `gorm:"primaryKey;autoIncrement:false;index" json:"group_id"`
	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User  User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Group StudyGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
