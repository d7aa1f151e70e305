package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"survey-service/internal/middleware"
	"survey-service/internal/models"
	"survey-service/internal/services"
)

// WhitelistHandler exposes admin management of pre-registered identities.
type WhitelistHandler struct {
	whitelistService *services.WhitelistService
}

// NewWhitelistHandler creates a new whitelist handler
func NewWhitelistHandler(whitelistService *services.WhitelistService) *WhitelistHandler {
	return &WhitelistHandler{whitelistService: whitelistService}
}

// Create handles POST /admin/whitelist
func (h *WhitelistHandler) Create(c *gin.Context) {
	var req models.CreateWhitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	entry, idCheck, err := h.whitelistService.Create(c.Request.Context(), &req, middleware.UserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}

	data := gin.H{"entry": entry}
	if idCheck != nil {
		data["id_check"] = idCheck
	}
	Success(c, http.StatusCreated, "Whitelist entry created", data)
}

// Get handles GET /admin/whitelist/:id
func (h *WhitelistHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid whitelist id", false)
		return
	}

	entry, err := h.whitelistService.Get(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Whitelist entry", entry)
}

// List handles GET /admin/whitelist
func (h *WhitelistHandler) List(c *gin.Context) {
	page, limit := pageParams(c)

	var activated *bool
	switch c.Query("activated") {
	case "true":
		v := true
		activated = &v
	case "false":
		v := false
		activated = &v
	}

	entries, pagination, err := h.whitelistService.List(c.Request.Context(), activated, page, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Whitelist entries", gin.H{
		"items":      entries,
		"pagination": pagination,
	})
}

// UpdateNotes handles PATCH /admin/whitelist/:id
func (h *WhitelistHandler) UpdateNotes(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid whitelist id", false)
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	entry, err := h.whitelistService.UpdateNotes(c.Request.Context(), id, req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Whitelist entry updated", entry)
}
