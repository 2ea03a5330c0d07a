package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the key for username in gin context
	ContextKeyUsername = "username"
)

var (
	errMissingHeader = errors.New("authorization header required")
	errBadHeader     = errors.New("invalid authorization header format")
	errUnknownUser   = errors.New("token subject no longer exists")
)

// AuthMiddleware validates bearer tokens and sets the caller in context.
// Every token failure renders the same 401; the reason is only logged. A store
// failure while checking the subject is a 500. When db is
// non-nil the user must still exist, so tokens of deleted accounts stop working.
func AuthMiddleware(tokens *TokenService, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticate(c, tokens, db)
		if apierr.Is(err, apierr.KindInternal) {
			apierr.Respond(c, err)
			return
		}
		if err != nil {
			log.WithFields(log.Fields{
				"reason": err.Error(),
				"path":   c.FullPath(),
			}).Debug("rejected bearer token")
			apierr.Respond(c, apierr.Unauthenticated(apierr.AuthenticationFailed, err))
			return
		}

		c.Set(ContextKeyUserID, identity.UserID)
		c.Set(ContextKeyUsername, identity.Username)

		c.Next()
	}
}

func authenticate(c *gin.Context, tokens *TokenService, db *gorm.DB) (Identity, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return Identity{}, errMissingHeader
	}

	// Expect "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		return Identity{}, errBadHeader
	}

	identity, err := tokens.Validate(strings.TrimSpace(parts[1]))
	if err != nil {
		return Identity{}, err
	}

	if db != nil {
		var count int64
		if err := db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", identity.UserID).Count(&count).Error; err != nil {
			return Identity{}, apierr.Internal(fmt.Errorf("check token subject: %w", err))
		}
		if count == 0 {
			return Identity{}, errUnknownUser
		}
	}

	return identity, nil
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUsername returns the username from the gin context
func GetUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(ContextKeyUsername)
	if !exists {
		return "", false
	}
	return username.(string), true
}

// GetIdentity returns the authenticated caller
func GetIdentity(c *gin.Context) (Identity, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return Identity{}, false
	}
	username, _ := GetUsername(c)
	return Identity{Username: username, UserID: userID}, true
}
