package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/auth"
)

// Handler handles account requests for the authenticated user
type Handler struct {
	service *Service
}

// NewHandler creates a new users handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MembershipResponse is one group the caller belongs to
type MembershipResponse struct {
	GroupID   uint   `json:"group_id"`
	GroupName string `json:"group_name"`
	Role      string `json:"role"`
}

// ChangeEmailRequest represents a request to change the account email
type ChangeEmailRequest struct {
	NewEmail string `json:"new_email" binding:"required,email,max=250"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents a request to change the account password
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=3,max=250"`
}

// DeleteAccountRequest confirms account deletion with the current password
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// MessageResponse acknowledges an action without returning a resource
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Me returns the authenticated caller
// @Summary Current user
// @Tags user
// @Produce json
// @Success 200 {object} auth.Identity
// @Failure 401 {object} map[string]string "Authentication failed"
// @Security BearerAuth
// @Router /user [get]
func (h *Handler) Me(c *gin.Context) {
	identity, _ := auth.GetIdentity(c)
	c.JSON(http.StatusOK, identity)
}

// Memberships lists the caller's groups and roles
// @Summary List my memberships
// @Tags user
// @Produce json
// @Success 200 {array} MembershipResponse
// @Security BearerAuth
// @Router /user/memberships [get]
func (h *Handler) Memberships(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	memberships, err := h.service.Memberships(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	response := make([]MembershipResponse, len(memberships))
	for i, m := range memberships {
		response[i] = MembershipResponse{
			GroupID:   m.GroupID,
			GroupName: m.Group.Name,
			Role:      m.Role.String(),
		}
	}

	c.JSON(http.StatusOK, response)
}

// ChangeEmail changes the caller's email
// @Summary Change email
// @Tags user
// @Accept json
// @Produce json
// @Param request body ChangeEmailRequest true "New email and current password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} map[string]string "Email already exists"
// @Failure 401 {object} map[string]string "Incorrect password"
// @Security BearerAuth
// @Router /user/email [put]
func (h *Handler) ChangeEmail(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ChangeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	if err := h.service.ChangeEmail(c.Request.Context(), userID, req.NewEmail, req.Password); err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Email updated successfully."})
}

// ChangePassword changes the caller's password
// @Summary Change password
// @Tags user
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} map[string]string "Incorrect password"
// @Security BearerAuth
// @Router /user/password [put]
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Password updated successfully."})
}

// DeleteAccount deletes the caller's account
// @Summary Delete my account
// @Description Delete the account with its memberships and created sessions. Creators must transfer ownership first.
// @Tags user
// @Accept json
// @Param request body DeleteAccountRequest true "Current password"
// @Success 204
// @Failure 401 {object} map[string]string "Incorrect password"
// @Failure 403 {object} map[string]string "Creator of a group"
// @Security BearerAuth
// @Router /user/me [delete]
func (h *Handler) DeleteAccount(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), userID, req.Password); err != nil {
		apierr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers account routes; rg must require authentication
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Me)
	rg.GET("/memberships", h.Memberships)
	rg.PUT("/email", h.ChangeEmail)
	rg.PUT("/password", h.ChangePassword)
	rg.DELETE("/me", h.DeleteAccount)
}
