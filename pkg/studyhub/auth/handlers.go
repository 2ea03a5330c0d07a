package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const msgUserExists = "Email/username already exists!"

// Handler handles authentication requests
type Handler struct {
	db          *gorm.DB
	credentials *CredentialStore
	tokens      *TokenService
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, credentials *CredentialStore, tokens *TokenService) *Handler {
	return &Handler{db: db, credentials: credentials, tokens: tokens}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=250"`
	Username string `json:"username" binding:"required,min=3,max=250"`
	Password string `json:"password" binding:"required,min=3,max=250"`
}

// TokenRequest is the form-encoded password grant
type TokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// TokenResponse represents an issued access token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]string "Email/username already exists"
// @Failure 422 {object} map[string]string "Validation error"
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)
	if utf8.RuneCountInString(req.Username) < 3 || utf8.RuneCountInString(req.Password) < 3 {
		apierr.Respond(c, apierr.Validation("Username and password must be at least 3 characters"))
		return
	}

	ctx := c.Request.Context()

	// Check if email or username already exists
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", req.Email, req.Username).
		Count(&count).Error; err != nil {
		apierr.Respond(c, err)
		return
	}
	if count > 0 {
		apierr.Respond(c, apierr.Duplicate(msgUserExists))
		return
	}

	hashedPassword, err := h.credentials.Hash(req.Password)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hashedPassword,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			apierr.Respond(c, apierr.Duplicate(msgUserExists))
			return
		}
		apierr.Respond(c, err)
		return
	}

	log.WithField("user_id", user.ID).Info("user registered")

	c.JSON(http.StatusCreated, UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

// Token exchanges a username and password for an access token
// @Summary Issue an access token
// @Description Authenticate with username and password (form-encoded) to receive a bearer token
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} map[string]string "Authentication failed"
// @Router /auth/token [post]
func (h *Handler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	user, err := h.credentials.Authenticate(c.Request.Context(), strings.TrimSpace(req.Username), strings.TrimSpace(req.Password))
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	token, err := h.tokens.Issue(user.Username, user.ID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/token", h.Token)
}
