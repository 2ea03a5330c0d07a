package subjects

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/auth"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
)

// Handler handles subject requests
type Handler struct {
	service *Service
}

// NewHandler creates a new subjects handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateSubjectRequest represents the request to create a subject
type CreateSubjectRequest struct {
	Name string `json:"name" binding:"required,min=3,max=250"`
}

// SubjectResponse represents a subject in API responses
type SubjectResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	GroupID uint   `json:"group_id"`
}

func toSubjectResponse(s *models.Subject) SubjectResponse {
	return SubjectResponse{ID: s.ID, Name: s.Name, GroupID: s.GroupID}
}

// List returns the subjects of a group
// @Summary List subjects
// @Tags subjects
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {array} SubjectResponse
// @Failure 403 {object} map[string]string "Not a member"
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /study-groups/{id}/subjects [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	subjects, err := h.service.List(c.Request.Context(), userID, groupID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	response := make([]SubjectResponse, len(subjects))
	for i := range subjects {
		response[i] = toSubjectResponse(&subjects[i])
	}

	c.JSON(http.StatusOK, response)
}

// Create adds a subject to a group
// @Summary Create a subject
// @Description Create a subject in a study group (requires Admin or Creator role)
// @Tags subjects
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body CreateSubjectRequest true "Subject details"
// @Success 201 {object} SubjectResponse
// @Failure 403 {object} map[string]string "Insufficient role"
// @Failure 409 {object} map[string]string "Duplicate subject"
// @Failure 422 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /study-groups/{id}/subjects [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	var req CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	subject, err := h.service.Create(c.Request.Context(), userID, groupID, req.Name)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSubjectResponse(subject))
}

// Delete removes a subject with its sessions
// @Summary Delete a subject
// @Tags subjects
// @Param id path int true "Group ID"
// @Param subjectId path int true "Subject ID"
// @Success 204
// @Failure 403 {object} map[string]string "Insufficient role"
// @Failure 404 {object} map[string]string "Subject not found"
// @Security BearerAuth
// @Router /study-groups/{id}/subjects/{subjectId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := apierr.ParamID(c, "id", "group ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	subjectID, err := apierr.ParamID(c, "subjectId", "subject ID")
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, groupID, subjectID); err != nil {
		apierr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers subject routes under a study group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/subjects", h.List)
	rg.POST("/:id/subjects", h.Create)
	rg.DELETE("/:id/subjects/:subjectId", h.Delete)
}
