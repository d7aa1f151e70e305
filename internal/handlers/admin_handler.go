package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"survey-service/internal/middleware"
	"survey-service/internal/models"
	"survey-service/internal/services"
)

// AdminHandler exposes user management, assignments, and the admin audit
// trail.
type AdminHandler struct {
	userService       *services.UserService
	assignmentService *services.AssignmentService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userService *services.UserService, assignmentService *services.AssignmentService) *AdminHandler {
	return &AdminHandler{
		userService:       userService,
		assignmentService: assignmentService,
	}
}

// ListUsers handles GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, pagination, err := h.userService.List(c.Request.Context(), c.Query("role"), page, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Users", gin.H{
		"items":      users,
		"pagination": pagination,
	})
}

// GetUser handles GET /admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id", false)
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "User", user)
}

// UpdateUser handles PATCH /admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id", false)
		return
	}
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, middleware.UserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "User updated", user)
}

// DeleteUser handles DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id", false)
		return
	}
	if id == middleware.UserID(c) {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "cannot delete your own account", false)
		return
	}

	if err := h.userService.Delete(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "User deleted", nil)
}

// CreateAssignment handles POST /assignments
func (h *AdminHandler) CreateAssignment(c *gin.Context) {
	var req models.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	assignment, err := h.assignmentService.Create(c.Request.Context(), &req, middleware.UserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusCreated, "Assignment created", assignment)
}

// UpdateAssignmentStatus handles PATCH /assignments/:id/status
func (h *AdminHandler) UpdateAssignmentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid assignment id", false)
		return
	}
	var req models.UpdateAssignmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	assignment, err := h.assignmentService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Assignment updated", assignment)
}

// DeleteAssignment handles DELETE /assignments/:id
func (h *AdminHandler) DeleteAssignment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid assignment id", false)
		return
	}

	if err := h.assignmentService.Delete(c.Request.Context(), id); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Assignment deleted", nil)
}

// AdminAuditLog handles GET /admin/audit-log
func (h *AdminHandler) AdminAuditLog(c *gin.Context) {
	page, limit := pageParams(c)

	var actorID *uuid.UUID
	if raw := c.Query("actor_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actorID = &id
		}
	}

	entries, pagination, err := h.userService.ListAdminAudit(c.Request.Context(), actorID, c.Query("action"), page, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Admin audit log", gin.H{
		"items":      entries,
		"pagination": pagination,
	})
}
