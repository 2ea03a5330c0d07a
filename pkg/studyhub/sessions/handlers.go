package sessions

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/auth"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
)

// Handler handles study session requests
type Handler struct {
	service *Service
}

// NewHandler creates a new sessions handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateSessionRequest represents the request to schedule a session.
// date_time is RFC 3339; status defaults to Scheduled.
type CreateSessionRequest struct {
	Title       string     `json:"title" binding:"required,min=3,max=250"`
	Description string     `json:"description"`
	DateTime    *time.Time `json:"date_time" binding:"required"`
	Duration    int        `json:"duration" binding:"required,gt=0"`
	Status      string     `json:"status"`
}

// UpdateSessionRequest represents a partial session update
type UpdateSessionRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=3,max=250"`
	Description *string    `json:"description"`
	DateTime    *time.Time `json:"date_time"`
	Duration    *int       `json:"duration"`
	Status      *string    `json:"status"`
}

// SubjectSummary identifies the subject a session belongs to
type SubjectSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// SessionResponse represents a study session in API responses
type SessionResponse struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	DateTime    time.Time      `json:"date_time"`
	Duration    int            `json:"duration"`
	Status      string         `json:"status"`
	CreatedBy   uint           `json:"created_by"`
	Subject     SubjectSummary `json:"subject"`
}

func toSessionResponse(s *models.StudySession) SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		DateTime:    s.DateTime,
		Duration:    s.Duration,
		Status:      string(s.Status),
		CreatedBy:   s.CreatedByID,
		Subject:     SubjectSummary{ID: s.Subject.ID, Name: s.Subject.Name},
	}
}

// pathIDs parses the group, subject and (when withSession) session ids
func pathIDs(c *gin.Context, withSession bool) (groupID, subjectID, sessionID uint, err error) {
	if groupID, err = apierr.ParamID(c, "id", "group ID"); err != nil {
		return
	}
	if subjectID, err = apierr.ParamID(c, "subjectId", "subject ID"); err != nil {
		return
	}
	if withSession {
		sessionID, err = apierr.ParamID(c, "sessionId", "session ID")
	}
	return
}

// List returns the sessions of a subject
// @Summary List study sessions
// @Tags sessions
// @Produce json
// @Param id path int true "Group ID"
// @Param subjectId path int true "Subject ID"
// @Success 200 {array} SessionResponse
// @Failure 403 {object} map[string]string "Not a member"
// @Failure 404 {object} map[string]string "Group or subject not found"
// @Security BearerAuth
// @Router /study-groups/{id}/subjects/{subjectId}/sessions [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, subjectID, _, err := pathIDs(c, false)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	sessions, err := h.service.List(c.Request.Context(), userID, groupID, subjectID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	response := make([]SessionResponse, len(sessions))
	for i := range sessions {
		response[i] = toSessionResponse(&sessions[i])
	}

	c.JSON(http.StatusOK, response)
}

// Create schedules a session
// @Summary Create a study session
// @Description Schedule a session on a subject (requires Admin or Creator role)
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param subjectId path int true "Subject ID"
// @Param request body CreateSessionRequest true "Session details"
// @Success 201 {object} SessionResponse
// @Failure 403 {object} map[string]string "Insufficient role"
// @Failure 404 {object} map[string]string "Group or subject not found"
// @Failure 422 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /study-groups/{id}/subjects/{subjectId}/sessions [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, subjectID, _, err := pathIDs(c, false)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	session, err := h.service.Create(c.Request.Context(), userID, groupID, subjectID, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		DateTime:    *req.DateTime,
		Duration:    req.Duration,
		Status:      models.SessionStatus(req.Status),
	})
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(session))
}

// Update changes a session
// @Summary Update a study session
// @Description Update the given fields of a session (requires Admin or Creator role)
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param subjectId path int true "Subject ID"
// @Param sessionId path int true "Session ID"
// @Param request body UpdateSessionRequest true "Fields to change"
// @Success 200 {object} SessionResponse
// @Failure 403 {object} map[string]string "Insufficient role"
// @Failure 404 {object} map[string]string "Group, subject or session not found"
// @Failure 422 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /study-groups/{id}/subjects/{subjectId}/sessions/{sessionId} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, subjectID, sessionID, err := pathIDs(c, true)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	in := UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		DateTime:    req.DateTime,
		Duration:    req.Duration,
	}
	if req.Status != nil {
		status := models.SessionStatus(*req.Status)
		in.Status = &status
	}

	session, err := h.service.Update(c.Request.Context(), userID, groupID, subjectID, sessionID, in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(session))
}

// Delete removes a session
// @Summary Delete a study session
// @Tags sessions
// @Param id path int true "Group ID"
// @Param subjectId path int true "Subject ID"
// @Param sessionId path int true "Session ID"
// @Success 204
// @Failure 403 {object} map[string]string "Insufficient role"
// @Failure 404 {object} map[string]string "Group, subject or session not found"
// @Security BearerAuth
// @Router /study-groups/{id}/subjects/{subjectId}/sessions/{sessionId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, subjectID, sessionID, err := pathIDs(c, true)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, groupID, subjectID, sessionID); err != nil {
		apierr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers session routes under a study group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/:id/subjects/:subjectId/sessions")
	sessions.GET("", h.List)
	sessions.POST("", h.Create)
	sessions.PUT("/:sessionId", h.Update)
	sessions.DELETE("/:sessionId", h.Delete)
}
