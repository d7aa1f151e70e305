package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"survey-service/internal/middleware"
	"survey-service/internal/models"
	"survey-service/internal/services"
)

// MobileHandler serves the offline-first mobile client: assigned surveys,
// batch sync, document uploads, and the sync dashboard.
type MobileHandler struct {
	assignmentService *services.AssignmentService
	responseService   *services.ResponseService
	documentService   *services.DocumentService
}

// NewMobileHandler creates a new mobile handler
func NewMobileHandler(
	assignmentService *services.AssignmentService,
	responseService *services.ResponseService,
	documentService *services.DocumentService,
) *MobileHandler {
	return &MobileHandler{
		assignmentService: assignmentService,
		responseService:   responseService,
		documentService:   documentService,
	}
}

// MySurveys handles GET /mobile/surveys
func (h *MobileHandler) MySurveys(c *gin.Context) {
	surveys, err := h.assignmentService.MySurveys(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Assigned surveys", surveys)
}

// SubmitBatch handles POST /mobile/responses/batch. The call succeeds as a
// whole even when individual items fail; only malformed top-level input
// (including an oversized batch) rejects the request.
func (h *MobileHandler) SubmitBatch(c *gin.Context) {
	var req models.BatchResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	result, err := h.responseService.SubmitBatch(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Batch processed", result)
}

// MyResponses handles GET /mobile/responses
func (h *MobileHandler) MyResponses(c *gin.Context) {
	page, limit := pageParams(c)
	responses, pagination, err := h.responseService.ListMine(c.Request.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Responses", gin.H{
		"items":      responses,
		"pagination": pagination,
	})
}

// ResponseDocuments handles GET /mobile/responses/:clientId/documents
func (h *MobileHandler) ResponseDocuments(c *gin.Context) {
	clientID := c.Param("clientId")
	if _, err := h.responseService.GetMine(c.Request.Context(), middleware.UserID(c), clientID); err != nil {
		ServiceError(c, err)
		return
	}

	docs, err := h.documentService.ListByResponse(c.Request.Context(), clientID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Documents", docs)
}

// RequestUpload handles POST /mobile/documents/upload
func (h *MobileHandler) RequestUpload(c *gin.Context) {
	var req models.DocumentUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	resp, err := h.documentService.RequestUpload(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusCreated, "Upload URL issued", resp)
}

// ConfirmUpload handles POST /mobile/documents/confirm
func (h *MobileHandler) ConfirmUpload(c *gin.Context) {
	var req models.DocumentConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	doc, err := h.documentService.ConfirmUpload(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Upload confirmed", doc)
}

// SyncStatus handles GET /mobile/sync-status
func (h *MobileHandler) SyncStatus(c *gin.Context) {
	status, err := h.responseService.SyncStatus(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Sync status", status)
}
