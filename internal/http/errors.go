package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diary-companion/internal/domain"
	"diary-companion/internal/service"
)

// writeServiceError traduce los errores de servicio a respuestas HTTP.
// Solo los errores inesperados se loguean como Error.
func writeServiceError(c *gin.Context, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrMalformedSecret):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed secret"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, service.ErrCorruptedSession), errors.Is(err, service.ErrNoSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
	case errors.Is(err, service.ErrSessionBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "session busy"})
	case errors.Is(err, service.ErrJournalForeground):
		c.JSON(http.StatusConflict, gin.H{"error": "journal is open"})
	case errors.Is(err, service.ErrJournalLocked):
		c.JSON(http.StatusForbidden, gin.H{"error": "journal locked"})
	case errors.Is(err, service.ErrIncorrectSecret):
		c.JSON(http.StatusForbidden, gin.H{"error": "incorrect secret"})
	case errors.Is(err, service.ErrUnsupportedLanguage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language"})
	case errors.Is(err, domain.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
	case errors.Is(err, service.ErrSpeechUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "speech unavailable"})
	default:
		logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
