package groups

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/auth"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
)

// Handler handles study group requests
type Handler struct {
	service *Service
}

// NewHandler creates a new groups handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=250"`
	Description string `json:"description"`
}

// UpdateGroupRequest represents the request to update a group
type UpdateGroupRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=3,max=250"`
	Description *string `json:"description"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uint      `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func toGroupResponse(g *models.StudyGroup) GroupResponse {
	return GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		OwnerID:     g.OwnerID,
		CreatedAt:   g.CreatedAt,
	}
}

// List returns all study groups
// @Summary List study groups
// @Description Get every study group. No authentication required.
// @Tags study-groups
// @Produce json
// @Success 200 {array} GroupResponse
// @Router /study-groups [get]
func (h *Handler) List(c *gin.Context) {
	groups, err := h.service.List(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	response := make([]GroupResponse, len(groups))
	for i := range groups {
		response[i] = toGroupResponse(&groups[i])
	}

	c.JSON(http.StatusOK, response)
}

// Create creates a new group and adds the caller as its Creator
// @Summary Create a study group
// @Description Create a new study group with the current user as Creator
// @Tags study-groups
// @Accept json
// @Produce json
// @Param request body CreateGroupRequest true "Group details"
// @Success 201 {object} GroupResponse
// @Failure 400 {object} map[string]string "Name already taken"
// @Failure 422 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /study-groups [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	group, err := h.service.Create(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, toGroupResponse(group))
}

// Get returns a specific group
// @Summary Get a study group
// @Description Get details of a specific study group. No authentication required.
// @Tags study-groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} GroupResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Router /study-groups/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	group, err := h.service.Get(c.Request.Context(), groupID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, toGroupResponse(group))
}

// Update updates a group (Admin or Creator)
// @Summary Update a study group
// @Description Update a study group (requires Admin or Creator role in group)
// @Tags study-groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body UpdateGroupRequest true "Updated group details"
// @Success 200 {object} GroupResponse
// @Failure 400 {object} map[string]string "Name already taken"
// @Failure 403 {object} map[string]string "Insufficient role"
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /study-groups/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	group, err := h.service.Update(c.Request.Context(), userID, groupID, UpdateInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, toGroupResponse(group))
}

// Delete deletes a group (Admin or Creator)
// @Summary Delete a study group
// @Description Delete a study group with its subjects, sessions and memberships
// @Tags study-groups
// @Param id path int true "Group ID"
// @Success 204
// @Failure 403 {object} map[string]string "Insufficient role"
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /study-groups/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, groupID); err != nil {
		apierr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterPublicRoutes registers the routes readable without a token
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}

// RegisterRoutes registers group routes that require authentication
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
