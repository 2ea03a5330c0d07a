// Package subjects manages the topics organised inside a study group.
package subjects

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
	MsgSubjectNotFound = "Subject not found!"
	msgDuplicate       = "Duplicate subject is not allowed."
)

// Service implements the subject use cases
type Service struct {
	db      *gorm.DB
	members *membership.Registry
}

// NewService creates a subject service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, members: membership.NewRegistry(db)}
}

// Find loads a subject and checks it belongs to groupID. A subject of
// another group is reported as missing.
func Find(db *gorm.DB, groupID, subjectID uint) (*models.Subject, error) {
	var subject models.Subject
	err := db.Where("id = ? AND group_id = ?", subjectID, groupID).First(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound(MsgSubjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find subject %d: %w", subjectID, err)
	}
	return &subject, nil
}

// List returns the subjects of a group. Members only.
func (s *Service) List(ctx context.Context, userID, groupID uint) ([]models.Subject, error) {
	if _, err := authz.Require(ctx, s.members, userID, groupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}

	var subjects []models.Subject
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("name ASC").Find(&subjects).Error; err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Create adds a subject to a group. Names are unique within the group, exact match.
func (s *Service) Create(ctx context.Context, userID, groupID uint, name string) (*models.Subject, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 250 {
		return nil, apierr.Validation("Subject name must be between 3 and 250 characters")
	}

	subject := models.Subject{Name: name, GroupID: groupID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := authz.Require(ctx, s.members.WithTx(tx), userID, groupID, authz.ActionCreateSubject); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Subject{}).Where("group_id = ? AND name = ?", groupID, name).Count(&count).Error; err != nil {
			return fmt.Errorf("check subject name: %w", err)
		}
		if count > 0 {
			return apierr.Conflict(msgDuplicate)
		}

		if err := tx.Create(&subject).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierr.Conflict(msgDuplicate)
			}
			return fmt.Errorf("create subject: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"group_id": groupID, "subject_id": subject.ID}).Info("subject created")
	return &subject, nil
}

// Delete removes a subject and its sessions. Admin or Creator only.
func (s *Service) Delete(ctx context.Context, userID, groupID, subjectID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := authz.Require(ctx, s.members.WithTx(tx), userID, groupID, authz.ActionDeleteSubject); err != nil {
			return err
		}

		subject, err := Find(tx, groupID, subjectID)
		if err != nil {
			return err
		}

		if err := tx.Where("subject_id = ?", subject.ID).Delete(&models.StudySession{}).Error; err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if err := tx.Delete(subject).Error; err != nil {
			return fmt.Errorf("delete subject: %w", err)
		}
		return nil
	})
}
