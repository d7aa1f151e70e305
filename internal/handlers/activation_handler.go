package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"survey-service/internal/middleware"
	"survey-service/internal/models"
	"survey-service/internal/repository"
	"survey-service/internal/services"
)

// ActivationHandler exposes the activation-code lifecycle: the public
// validate/complete pair and the admin mutations.
type ActivationHandler struct {
	activationService *services.ActivationService
}

// NewActivationHandler creates a new activation handler
func NewActivationHandler(activationService *services.ActivationService) *ActivationHandler {
	return &ActivationHandler{activationService: activationService}
}

func requestContext(c *gin.Context) services.RequestContext {
	return services.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		DeviceID:  c.GetHeader("X-Device-ID"),
	}
}

// Generate handles POST /admin/activation-codes
func (h *ActivationHandler) Generate(c *gin.Context) {
	var req models.GenerateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	resp, err := h.activationService.Generate(c.Request.Context(), &req, middleware.UserID(c), requestContext(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusCreated, "Activation code generated", resp)
}

// Validate handles POST /activation/validate (public). An unusable code is
// a successful validation with valid=false, not an HTTP error.
func (h *ActivationHandler) Validate(c *gin.Context) {
	var req models.ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	resp, err := h.activationService.Validate(c.Request.Context(), &req, requestContext(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Validation result", resp)
}

// Complete handles POST /activation/complete (public)
func (h *ActivationHandler) Complete(c *gin.Context) {
	var req models.CompleteActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	rc := requestContext(c)
	if req.DeviceID != "" {
		rc.DeviceID = req.DeviceID
	}
	resp, err := h.activationService.Complete(c.Request.Context(), &req, rc)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusCreated, "Account activated", resp)
}

// List handles GET /admin/activation-codes
func (h *ActivationHandler) List(c *gin.Context) {
	page, limit := pageParams(c)

	var whitelistID *uuid.UUID
	if raw := c.Query("whitelist_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid whitelist_id", false)
			return
		}
		whitelistID = &id
	}

	resp, err := h.activationService.List(c.Request.Context(), c.Query("status"), whitelistID, page, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Activation codes", resp)
}

// Get handles GET /admin/activation-codes/:id
func (h *ActivationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid code id", false)
		return
	}

	detail, err := h.activationService.Get(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Activation code", detail)
}

// Revoke handles POST /admin/activation-codes/:id/revoke
func (h *ActivationHandler) Revoke(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid code id", false)
		return
	}
	var req models.RevokeCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	if err := h.activationService.Revoke(c.Request.Context(), id, middleware.UserID(c), req.Reason, requestContext(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Activation code revoked", nil)
}

// Extend handles POST /admin/activation-codes/:id/extend
func (h *ActivationHandler) Extend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid code id", false)
		return
	}
	var req models.ExtendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	detail, err := h.activationService.Extend(c.Request.Context(), id, middleware.UserID(c), req.AdditionalHours, requestContext(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Activation code extended", detail)
}

// Resend handles POST /admin/activation-codes/:id/resend
func (h *ActivationHandler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid code id", false)
		return
	}
	var req models.ResendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		BindError(c, err)
		return
	}

	resp, err := h.activationService.Resend(c.Request.Context(), id, middleware.UserID(c), req.CustomMessage, requestContext(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusCreated, "Activation code resent", resp)
}

// Stats handles GET /admin/activation-codes/stats
func (h *ActivationHandler) Stats(c *gin.Context) {
	stats, err := h.activationService.Stats(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Activation statistics", stats)
}

// AuditLog handles GET /admin/activation-codes/audit
func (h *ActivationHandler) AuditLog(c *gin.Context) {
	page, limit := pageParams(c)

	filter := repository.ActivationFilter{EventType: c.Query("event_type")}
	if raw := c.Query("code_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.CodeID = &id
		}
	}
	if raw := c.Query("whitelist_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.WhitelistID = &id
		}
	}
	if raw := c.Query("since"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.Since = &t
		}
	}

	resp, err := h.activationService.ListAudit(c.Request.Context(), filter, page, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Audit log", resp)
}
