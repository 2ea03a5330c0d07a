// Package membership is the authoritative store of (user, group) -> role.
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	"gorm.io/gorm"
)

const (
	MsgGroupNotFound = "Group not found."
	MsgNotAMember    = "You must be a group member to perform this action."
)

var (
	// ErrNotMember is returned by Lookup when the user holds no membership in the group
	ErrNotMember = errors.New("membership not found")
	// ErrAlreadyMember is returned by Create when the (user, group) pair exists
	ErrAlreadyMember = errors.New("membership already exists")
)

// Registry reads and writes memberships
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a registry over db
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// WithTx returns a registry bound to an open transaction
func (r *Registry) WithTx(tx *gorm.DB) *Registry {
	return &Registry{db: tx}
}

// GroupExists reports whether a study group with the id exists
func (r *Registry) GroupExists(ctx context.Context, groupID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.StudyGroup{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count group %d: %w", groupID, err)
	}
	return count > 0, nil
}

// Lookup returns the membership of userID in groupID, or ErrNotMember
func (r *Registry) Lookup(ctx context.Context, userID, groupID uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.WithContext(ctx).Where("user_id = ? AND group_id = ?", userID, groupID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("lookup membership: %w", err)
	}
	return &m, nil
}

// RequireMember returns the caller's membership. A missing group is a 404; an
// existing group the caller does not belong to is a 403.
func (r *Registry) RequireMember(ctx context.Context, userID, groupID uint) (*models.Membership, error) {
	exists, err := r.GroupExists(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.NotFound(MsgGroupNotFound)
	}

	m, err := r.Lookup(ctx, userID, groupID)
	if errors.Is(err, ErrNotMember) {
		return nil, apierr.Forbidden(MsgNotAMember)
	}
	return m, err
}

// Create adds userID to groupID with role
func (r *Registry) Create(ctx context.Context, userID, groupID uint, role models.Role) (*models.Membership, error) {
	m := models.Membership{UserID: userID, GroupID: groupID, Role: role}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("create membership: %w", err)
	}
	return &m, nil
}

// UpdateRole sets a new role on m
func (r *Registry) UpdateRole(ctx context.Context, m *models.Membership, role models.Role) error {
	res := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND group_id = ?", m.UserID, m.GroupID).
		Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("update membership role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotMember
	}
	m.Role = role
	return nil
}

// Delete removes m
func (r *Registry) Delete(ctx context.Context, m *models.Membership) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND group_id = ?", m.UserID, m.GroupID).Delete(&models.Membership{})
	if res.Error != nil {
		return fmt.Errorf("delete membership: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

// DeleteByGroup removes every membership of a group
func (r *Registry) DeleteByGroup(ctx context.Context, groupID uint) error {
	if err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&models.Membership{}).Error; err != nil {
		return fmt.Errorf("delete memberships of group %d: %w", groupID, err)
	}
	return nil
}

// DeleteByUser removes every membership a user holds
func (r *Registry) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Membership{}).Error; err != nil {
		return fmt.Errorf("delete memberships of user %d: %w", userID, err)
	}
	return nil
}

// ListByGroup returns a group's memberships with their users, oldest first
func (r *Registry) ListByGroup(ctx context.Context, groupID uint) ([]models.Membership, error) {
	var ms []models.Membership
	if err := r.db.WithContext(ctx).Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at ASC, user_id ASC").
		Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("list members of group %d: %w", groupID, err)
	}
	return ms, nil
}

// ListByUser returns a user's memberships with their groups
func (r *Registry) ListByUser(ctx context.Context, userID uint) ([]models.Membership, error) {
	var ms []models.Membership
	if err := r.db.WithContext(ctx).Preload("Group").
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("list memberships of user %d: %w", userID, err)
	}
	return ms, nil
}

// HoldsRole reports whether the user holds role in any group
func (r *Registry) HoldsRole(ctx context.Context, userID uint, role models.Role) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count %s memberships: %w", role, err)
	}
	return count > 0, nil
}
