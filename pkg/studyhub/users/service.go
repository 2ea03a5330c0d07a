// Package users implements the caller's own account operations.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/auth"
	"github.com/mikepea/studyhub/pkg/studyhub/authz"
	"github.com/mikepea/studyhub/pkg/studyhub/membership"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	msgIncorrectPassword = "Incorrect password!"
	msgEmailExists       = "Email already exists!"
	msgUserNotFound      = "User not found."
)

// Service implements account use cases for the authenticated user
type Service struct {
	db          *gorm.DB
	credentials *auth.CredentialStore
	members     *membership.Registry
}

// NewService creates an account service
func NewService(db *gorm.DB, credentials *auth.CredentialStore) *Service {
	return &Service{db: db, credentials: credentials, members: membership.NewRegistry(db)}
}

func (s *Service) load(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	err := db.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &user, nil
}

// loadVerified loads the user and checks password before a sensitive change
func (s *Service) loadVerified(db *gorm.DB, userID uint, password string) (*models.User, error) {
	user, err := s.load(db, userID)
	if err != nil {
		return nil, err
	}
	if !s.credentials.Verify(user, password) {
		return nil, apierr.Unauthenticated(msgIncorrectPassword, auth.ErrBadCredentials)
	}
	return user, nil
}

// Memberships returns every group the user belongs to with the role held there
func (s *Service) Memberships(ctx context.Context, userID uint) ([]models.Membership, error) {
	return s.members.ListByUser(ctx, userID)
}

// ChangeEmail moves the account to a new, unused email address
func (s *Service) ChangeEmail(ctx context.Context, userID uint, newEmail, password string) error {
	newEmail = strings.TrimSpace(newEmail)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadVerified(tx, userID, password)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", newEmail, userID).Count(&count).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if count > 0 {
			return apierr.Duplicate(msgEmailExists)
		}

		if err := tx.Model(user).Update("email", newEmail).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierr.Duplicate(msgEmailExists)
			}
			return fmt.Errorf("update email: %w", err)
		}
		return nil
	})
}

// ChangePassword replaces the password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if utf8.RuneCountInString(newPassword) < 3 {
		return apierr.Validation("Password must be at least 3 characters")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadVerified(tx, userID, oldPassword)
		if err != nil {
			return err
		}
		hash, err := s.credentials.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := tx.Model(user).Update("password_hash", hash).Error; err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
}

// DeleteAccount removes the user with their memberships and the sessions they
// created. A user who is the Creator of any group must transfer ownership first,
// so no group is left without a Creator.
func (s *Service) DeleteAccount(ctx context.Context, userID uint, password string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadVerified(tx, userID, password)
		if err != nil {
			return err
		}

		members := s.members.WithTx(tx)
		isCreator, err := members.HoldsRole(ctx, userID, models.RoleCreator)
		if err != nil {
			return err
		}
		if isCreator {
			return apierr.Forbidden(authz.MsgMustTransferFirst)
		}

		if err := tx.Where("created_by = ?", userID).Delete(&models.StudySession{}).Error; err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if err := members.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Delete(user).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.WithField("user_id", userID).Info("account deleted")
	return nil
}
