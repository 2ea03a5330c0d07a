package groups

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/auth"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
)

// MemberResponse represents a group member in API responses
type MemberResponse struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UpdateMemberRequest represents a request to change a member's role
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required"`
}

// MessageResponse acknowledges an action without returning a resource
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListMembers returns all members of a group
// @Summary List group members
// @Description List the members of a study group (members only)
// @Tags members
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {array} MemberResponse
// @Failure 403 {object} map[string]string "Not a member"
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /study-groups/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	memberships, err := h.service.Members(c.Request.Context(), userID, groupID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	members := make([]MemberResponse, len(memberships))
	for i, m := range memberships {
		members[i] = MemberResponse{
			UserID:   m.UserID,
			Username: m.User.Username,
			Role:     m.Role.String(),
		}
	}

	c.JSON(http.StatusOK, members)
}

// Join adds the caller to a group as a Member
// @Summary Join a study group
// @Tags members
// @Produce json
// @Param id path int true "Group ID"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} map[string]string "Already a member"
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /study-groups/{id}/join [post]
func (h *Handler) Join(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	if err := h.service.Join(c.Request.Context(), userID, groupID); err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Success: true, Message: msgJoined})
}

// UpdateMember changes a member's role
// @Summary Update a member's role
// @Description Change a member's role. Granting Creator transfers ownership.
// @Tags members
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param userId path int true "User ID"
// @Param request body UpdateMemberRequest true "New role (Member, Admin or Creator)"
// @Success 200 {object} MemberResponse
// @Failure 403 {object} map[string]string "Role change not permitted"
// @Failure 404 {object} map[string]string "Group or member not found"
// @Failure 422 {object} map[string]string "Unknown role"
// @Security BearerAuth
// @Router /study-groups/{id}/members/{userId} [put]
func (h *Handler) UpdateMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	targetID, err := apierr.ParamID(c, "userId", "user ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	role, err := models.ParseRole(strings.TrimSpace(req.Role))
	if err != nil {
		apierr.Respond(c, apierr.Validation("Role must be one of: Member, Admin, Creator"))
		return
	}

	m, err := h.service.UpdateMemberRole(c.Request.Context(), userID, groupID, targetID, role)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, MemberResponse{
		UserID:   m.UserID,
		Username: m.User.Username,
		Role:     m.Role.String(),
	})
}

// Leave removes the caller from a group
// @Summary Leave a study group
// @Description Leave a study group. The Creator must transfer ownership first.
// @Tags members
// @Param id path int true "Group ID"
// @Success 204
// @Failure 403 {object} map[string]string "Creator cannot leave"
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /study-groups/{id}/leave [delete]
func (h *Handler) Leave(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	if err := h.service.Leave(c.Request.Context(), userID, groupID); err != nil {
		apierr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.POST("/:id/join", h.Join)
	rg.PUT("/:id/members/:userId", h.UpdateMember)
	rg.DELETE("/:id/leave", h.Leave)
}
