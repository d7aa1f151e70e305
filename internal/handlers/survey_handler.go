package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"survey-service/internal/middleware"
	"survey-service/internal/models"
	"survey-service/internal/services"
)

// SurveyHandler exposes survey template management for admins and
// supervisors.
type SurveyHandler struct {
	surveyService     *services.SurveyService
	assignmentService *services.AssignmentService
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveyService *services.SurveyService, assignmentService *services.AssignmentService) *SurveyHandler {
	return &SurveyHandler{
		surveyService:     surveyService,
		assignmentService: assignmentService,
	}
}

// Create handles POST /surveys
func (h *SurveyHandler) Create(c *gin.Context) {
	var req models.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	survey, err := h.surveyService.Create(c.Request.Context(), &req, middleware.UserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusCreated, "Survey created", survey)
}

// List handles GET /surveys
func (h *SurveyHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	surveys, pagination, err := h.surveyService.List(c.Request.Context(), c.Query("published") == "true", page, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Surveys", gin.H{
		"items":      surveys,
		"pagination": pagination,
	})
}

// Get handles GET /surveys/:id
func (h *SurveyHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid survey id", false)
		return
	}

	survey, err := h.surveyService.Get(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Survey", survey)
}

// Delete handles DELETE /surveys/:id
func (h *SurveyHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid survey id", false)
		return
	}

	if err := h.surveyService.Delete(c.Request.Context(), id); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Survey deleted", nil)
}

// CreateVersion handles POST /surveys/:id/versions
func (h *SurveyHandler) CreateVersion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid survey id", false)
		return
	}
	var req models.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	version, err := h.surveyService.CreateVersion(c.Request.Context(), id, &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusCreated, "Version created", version)
}

// GetVersion handles GET /surveys/:id/versions/:versionId
func (h *SurveyHandler) GetVersion(c *gin.Context) {
	versionID, err := uuid.Parse(c.Param("versionId"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid version id", false)
		return
	}

	version, err := h.surveyService.GetVersion(c.Request.Context(), versionID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Survey version", version)
}

// Publish handles POST /surveys/:id/versions/:versionId/publish
func (h *SurveyHandler) Publish(c *gin.Context) {
	versionID, err := uuid.Parse(c.Param("versionId"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid version id", false)
		return
	}

	version, err := h.surveyService.Publish(c.Request.Context(), versionID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Version published", version)
}

// ListAssignments handles GET /surveys/:id/assignments
func (h *SurveyHandler) ListAssignments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid survey id", false)
		return
	}

	page, limit := pageParams(c)
	assignments, pagination, err := h.assignmentService.ListBySurvey(c.Request.Context(), id, page, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Assignments", gin.H{
		"items":      assignments,
		"pagination": pagination,
	})
}
