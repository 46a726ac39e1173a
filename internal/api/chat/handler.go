package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinequery/cinequery/internal/domain"
	"github.com/cinequery/cinequery/internal/service"
)

// Handler handles chat API requests
type Handler struct {
	chatService *service.ChatService
}

// NewHandler creates a new chat handler
func NewHandler(chatService *service.ChatService) *Handler {
	return &Handler{chatService: chatService}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sessions", h.CreateSession)
	r.POST("/chat", h.Chat)
	r.GET("/chat/:session_id/history", h.History)
}

// CreateSession creates a new chat session
func (h *Handler) CreateSession(c *gin.Context) {
	session, err := h.chatService.CreateSession(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// Chat handles one user turn
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidQuery):
			c.JSON(http.StatusBadRequest, gin.H{"error": "query text must not be empty"})
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// History returns all messages for a session
func (h *Handler) History(c *gin.Context) {
	sessionID := c.Param("session_id")

	messages, err := h.chatService.GetHistory(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": messages})
}
