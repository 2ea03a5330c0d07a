package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	"gorm.io/gorm"
)

// ErrBadCredentials is the internal cause behind a failed login
var ErrBadCredentials = errors.New("bad credentials")

// CredentialStore verifies user identity by comparing against stored password hashes
type CredentialStore struct {
	db     *gorm.DB
	hasher PasswordHasher
}

// NewCredentialStore creates a credential store
func NewCredentialStore(db *gorm.DB, hasher PasswordHasher) *CredentialStore {
	return &CredentialStore{db: db, hasher: hasher}
}

// NormalizePassword strips surrounding whitespace. Every hash and every
// comparison goes through it so all entry points agree on the same secret.
func NormalizePassword(password string) string {
	return strings.TrimSpace(password)
}

// Hash hashes a new password for storage
func (s *CredentialStore) Hash(password string) (string, error) {
	return s.hasher.Hash(NormalizePassword(password))
}

// Verify checks password against an already loaded user
func (s *CredentialStore) Verify(user *models.User, password string) bool {
	return user != nil && s.hasher.Verify(NormalizePassword(password), user.PasswordHash)
}

// Authenticate resolves username and checks password. An unknown user and a wrong
// password produce the same authentication error.
func (s *CredentialStore) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.Unauthenticated(apierr.AuthenticationFailed, ErrBadCredentials)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !s.Verify(&user, password) {
		return nil, apierr.Unauthenticated(apierr.AuthenticationFailed, ErrBadCredentials)
	}
	return &user, nil
}
