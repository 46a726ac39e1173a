package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinequery/cinequery/internal/service"
)

// Handler handles admin API requests
type Handler struct {
	adminService *service.AdminService
}

// NewHandler creates a new admin handler
func NewHandler(adminService *service.AdminService) *Handler {
	return &Handler{adminService: adminService}
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.Stats)
}

// Stats returns system statistics
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
