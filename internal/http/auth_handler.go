package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diary-companion/internal/service"
)

// AuthHandler expone login, estado de sesion y logout.
type AuthHandler struct {
	logger    *zap.Logger
	companion *service.Companion
}

func NewAuthHandler(logger *zap.Logger, companion *service.Companion) *AuthHandler {
	return &AuthHandler{logger: logger, companion: companion}
}

// Login maneja POST /auth/login. Un identificador nuevo crea la cuenta.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Secret     string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.companion.Login(c.Request.Context(), req.Identifier, req.Secret)
	if err != nil {
		writeServiceError(c, h.logger, "login", err)
		return
	}

	status := http.StatusOK
	if res.IsNew {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// Session maneja GET /session: devuelve el estado actual sin saludar.
func (h *AuthHandler) Session(c *gin.Context) {
	view, err := h.companion.View(c.Request.Context(), GetSessionToken(c))
	if err != nil {
		writeServiceError(c, h.logger, "session view", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.companion.Logout(c.Request.Context(), GetSessionToken(c)); err != nil {
		writeServiceError(c, h.logger, "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}
