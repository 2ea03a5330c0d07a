// Package sessions schedules study sessions on a group's subjects.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/authz"
	"github.com/mikepea/studyhub/pkg/studyhub/membership"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	"github.com/mikepea/studyhub/pkg/studyhub/subjects"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	msgSessionNotFound = "Session not found!"
	msgBadStatus       = "Status must be one of: Scheduled, Completed, In Progress, Cancelled"
	msgBadDuration     = "Duration must be greater than 0"
	msgBadTitle        = "Title must be between 3 and 250 characters"
)

// Service implements the study session use cases
type Service struct {
	db      *gorm.DB
	members *membership.Registry
}

// NewService creates a session service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, members: membership.NewRegistry(db)}
}

// CreateInput describes a new session. An empty Status means Scheduled.
type CreateInput struct {
	Title       string
	Description string
	DateTime    time.Time
	Duration    int
	Status      models.SessionStatus
}

// UpdateInput carries a partial update; nil fields are left untouched
type UpdateInput struct {
	Title       *string
	Description *string
	DateTime    *time.Time
	Duration    *int
	Status      *models.SessionStatus
}

func validTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	return n >= 3 && n <= 250
}

func (in *CreateInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = models.SessionScheduled
	}
	switch {
	case !validTitle(in.Title):
		return apierr.Validation(msgBadTitle)
	case in.Duration <= 0:
		return apierr.Validation(msgBadDuration)
	case !in.Status.Valid():
		return apierr.Validation(msgBadStatus)
	case in.DateTime.IsZero():
		return apierr.Validation("Date and time are required")
	}
	return nil
}

// List returns the sessions of a subject ordered by start time. Members only.
func (s *Service) List(ctx context.Context, userID, groupID, subjectID uint) ([]models.StudySession, error) {
	if _, err := authz.Require(ctx, s.members, userID, groupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if _, err := subjects.Find(db, groupID, subjectID); err != nil {
		return nil, err
	}

	var sessions []models.StudySession
	if err := db.Preload("Subject").
		Where("subject_id = ?", subjectID).
		Order("date_time ASC, id ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Create schedules a session on a subject. Admin or Creator only.
func (s *Service) Create(ctx context.Context, userID, groupID, subjectID uint, in CreateInput) (*models.StudySession, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var session models.StudySession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := authz.Require(ctx, s.members.WithTx(tx), userID, groupID, authz.ActionCreateSession); err != nil {
			return err
		}
		subject, err := subjects.Find(tx, groupID, subjectID)
		if err != nil {
			return err
		}

		session = models.StudySession{
			Title:       in.Title,
			Description: in.Description,
			DateTime:    in.DateTime.UTC(),
			Duration:    in.Duration,
			Status:      in.Status,
			SubjectID:   subject.ID,
			CreatedByID: userID,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		session.Subject = *subject
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"session_id": session.ID, "subject_id": subjectID, "user_id": userID}).Info("study session created")
	return &session, nil
}

func findSession(tx *gorm.DB, subjectID, sessionID uint) (*models.StudySession, error) {
	var session models.StudySession
	err := tx.Where("id = ? AND subject_id = ?", sessionID, subjectID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound(msgSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session %d: %w", sessionID, err)
	}
	return &session, nil
}

// Update changes the given fields of a session. Admin or Creator only.
func (s *Service) Update(ctx context.Context, userID, groupID, subjectID, sessionID uint, in UpdateInput) (*models.StudySession, error) {
	var session *models.StudySession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := authz.Require(ctx, s.members.WithTx(tx), userID, groupID, authz.ActionUpdateSession); err != nil {
			return err
		}
		subject, err := subjects.Find(tx, groupID, subjectID)
		if err != nil {
			return err
		}
		if session, err = findSession(tx, subject.ID, sessionID); err != nil {
			return err
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if !validTitle(title) {
				return apierr.Validation(msgBadTitle)
			}
			session.Title = title
		}
		if in.Description != nil {
			session.Description = *in.Description
		}
		if in.DateTime != nil {
			session.DateTime = in.DateTime.UTC()
		}
		if in.Duration != nil {
			if *in.Duration <= 0 {
				return apierr.Validation(msgBadDuration)
			}
			session.Duration = *in.Duration
		}
		if in.Status != nil {
			if !in.Status.Valid() {
				return apierr.Validation(msgBadStatus)
			}
			session.Status = *in.Status
		}

		if err := tx.Save(session).Error; err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		session.Subject = *subject
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes a session. Admin or Creator only.
func (s *Service) Delete(ctx context.Context, userID, groupID, subjectID, sessionID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := authz.Require(ctx, s.members.WithTx(tx), userID, groupID, authz.ActionDeleteSession); err != nil {
			return err
		}
		subject, err := subjects.Find(tx, groupID, subjectID)
		if err != nil {
			return err
		}
		session, err := findSession(tx, subject.ID, sessionID)
		if err != nil {
			return err
		}
		if err := tx.Delete(session).Error; err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}
