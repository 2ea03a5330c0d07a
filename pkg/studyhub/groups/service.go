package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/authz"
	"github.com/mikepea/studyhub/pkg/studyhub/membership"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	msgGroupNotFound   = membership.MsgGroupNotFound
	msgGroupExists     = "A study group with this name already exists."
	msgAlreadyMember   = "You are already a member of this group!"
	msgMemberNotFound  = "Member not found."
	msgJoined          = "Successfully joined the study group."
	msgNameRequirement = "Group name must be between 3 and 250 characters"
)

// Service implements the study group and membership use cases. Every
// mutation runs in a single transaction.
type Service struct {
	db      *gorm.DB
	members *membership.Registry
}

// NewService creates a group service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, members: membership.NewRegistry(db)}
}

// UpdateInput carries a partial group update; nil fields are left untouched
type UpdateInput struct {
	Name        *string
	Description *string
}

// List returns every group, newest first
func (s *Service) List(ctx context.Context) ([]models.StudyGroup, error) {
	var groups []models.StudyGroup
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// Get returns one group
func (s *Service) Get(ctx context.Context, groupID uint) (*models.StudyGroup, error) {
	return findGroup(s.db.WithContext(ctx), groupID)
}

func findGroup(db *gorm.DB, groupID uint) (*models.StudyGroup, error) {
	var group models.StudyGroup
	err := db.First(&group, groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound(msgGroupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find group %d: %w", groupID, err)
	}
	return &group, nil
}

// nameTaken reports whether another group already uses name, ignoring case
func nameTaken(db *gorm.DB, name string, exceptID uint) (bool, error) {
	var count int64
	q := db.Model(&models.StudyGroup{}).Where("name_key = ?", models.GroupNameKey(name))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check group name: %w", err)
	}
	return count > 0, nil
}

func validName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 3 && n <= 250
}

// Create makes a new group owned by userID, who becomes its Creator
func (s *Service) Create(ctx context.Context, userID uint, name, description string) (*models.StudyGroup, error) {
	name = strings.TrimSpace(name)
	if !validName(name) {
		return nil, apierr.Validation(msgNameRequirement)
	}

	group := models.StudyGroup{Name: name, Description: description, OwnerID: userID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := nameTaken(tx, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return apierr.Duplicate(msgGroupExists)
		}

		if err := tx.Create(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierr.Duplicate(msgGroupExists)
			}
			return fmt.Errorf("create group: %w", err)
		}

		_, err = s.members.WithTx(tx).Create(ctx, userID, group.ID, models.RoleCreator)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"group_id": group.ID, "user_id": userID}).Info("study group created")
	return &group, nil
}

// Update changes a group's name or description. Admin or Creator only.
func (s *Service) Update(ctx context.Context, userID, groupID uint, in UpdateInput) (*models.StudyGroup, error) {
	var group *models.StudyGroup
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := authz.Require(ctx, s.members.WithTx(tx), userID, groupID, authz.ActionUpdateGroup); err != nil {
			return err
		}

		var err error
		if group, err = findGroup(tx, groupID); err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if !validName(name) {
				return apierr.Validation(msgNameRequirement)
			}
			taken, err := nameTaken(tx, name, groupID)
			if err != nil {
				return err
			}
			if taken {
				return apierr.Duplicate(msgGroupExists)
			}
			group.Name = name
		}
		if in.Description != nil {
			group.Description = *in.Description
		}

		if err := tx.Save(group).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierr.Duplicate(msgGroupExists)
			}
			return fmt.Errorf("update group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Delete removes a group with its sessions, subjects and memberships. Admin or Creator only.
func (s *Service) Delete(ctx context.Context, userID, groupID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := authz.Require(ctx, s.members.WithTx(tx), userID, groupID, authz.ActionDeleteGroup); err != nil {
			return err
		}

		subjectIDs := tx.Model(&models.Subject{}).Select("id").Where("group_id = ?", groupID)
		if err := tx.Where("subject_id IN (?)", subjectIDs).Delete(&models.StudySession{}).Error; err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.Subject{}).Error; err != nil {
			return fmt.Errorf("delete subjects: %w", err)
		}
		if err := s.members.WithTx(tx).DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		if err := tx.Delete(&models.StudyGroup{}, groupID).Error; err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"group_id": groupID, "user_id": userID}).Info("study group deleted")
	return nil
}

// Members lists a group's memberships. Callers must be members themselves.
func (s *Service) Members(ctx context.Context, userID, groupID uint) ([]models.Membership, error) {
	if _, err := authz.Require(ctx, s.members, userID, groupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}
	return s.members.ListByGroup(ctx, groupID)
}

// Join adds userID to the group as a Member
func (s *Service) Join(ctx context.Context, userID, groupID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.members.WithTx(tx)
		exists, err := members.GroupExists(ctx, groupID)
		if err != nil {
			return err
		}
		if !exists {
			return apierr.NotFound(msgGroupNotFound)
		}

		_, err = members.Create(ctx, userID, groupID, models.RoleMember)
		if errors.Is(err, membership.ErrAlreadyMember) {
			return apierr.Duplicate(msgAlreadyMember)
		}
		return err
	})
}

// UpdateMemberRole sets the role of targetID within the group on behalf of actingID.
// Granting Creator transfers ownership: the acting Creator becomes an Admin and
// the group's owner moves to the target, all in one transaction.
func (s *Service) UpdateMemberRole(ctx context.Context, actingID, groupID, targetID uint, requested models.Role) (*models.Membership, error) {
	var target *models.Membership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.members.WithTx(tx)

		acting, err := authz.Require(ctx, members, actingID, groupID, authz.ActionUpdateRole)
		if err != nil {
			return err
		}

		target, err = members.Lookup(ctx, targetID, groupID)
		if errors.Is(err, membership.ErrNotMember) {
			return apierr.NotFound(msgMemberNotFound)
		}
		if err != nil {
			return err
		}

		if actingID == targetID && acting.Role == models.RoleCreator && requested != models.RoleCreator {
			return apierr.Forbidden(authz.MsgMustTransferFirst)
		}
		if err := authz.AuthorizeRoleUpdate(acting.Role, target.Role, requested).Err(); err != nil {
			return err
		}
		if target.Role == requested {
			return nil
		}

		if requested == models.RoleCreator {
			if err := members.UpdateRole(ctx, acting, models.RoleAdmin); err != nil {
				return err
			}
			if err := tx.Model(&models.StudyGroup{}).Where("id = ?", groupID).Update("owner_id", targetID).Error; err != nil {
				return fmt.Errorf("transfer ownership: %w", err)
			}
			log.WithFields(log.Fields{"group_id": groupID, "from": actingID, "to": targetID}).Info("ownership transferred")
		}
		return members.UpdateRole(ctx, target, requested)
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(&target.User, targetID).Error; err != nil {
		return nil, fmt.Errorf("load member %d: %w", targetID, err)
	}
	return target, nil
}

// Leave removes the caller's membership. The Creator cannot leave.
func (s *Service) Leave(ctx context.Context, userID, groupID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.members.WithTx(tx)
		m, err := members.RequireMember(ctx, userID, groupID)
		if err != nil {
			return err
		}
		if err := authz.AuthorizeLeave(m.Role).Err(); err != nil {
			return err
		}
		return members.Delete(ctx, m)
	})
}
