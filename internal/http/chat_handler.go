package http

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diary-companion/internal/service"
)

const maxAudioBytes = 10 << 20

// ChatHandler expone el dialogo: texto libre, opciones guiadas y voz.
type ChatHandler struct {
	logger    *zap.Logger
	companion *service.Companion
}

func NewChatHandler(logger *zap.Logger, companion *service.Companion) *ChatHandler {
	return &ChatHandler{logger: logger, companion: companion}
}

// Message maneja POST /chat/message.
func (h *ChatHandler) Message(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := h.companion.Message(c.Request.Context(), GetSessionToken(c), req.Text)
	if err != nil {
		writeServiceError(c, h.logger, "chat message", err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Option maneja POST /chat/option.
func (h *ChatHandler) Option(c *gin.Context) {
	var req struct {
		OptionID string `json:"option_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat option request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := h.companion.Option(c.Request.Context(), GetSessionToken(c), req.OptionID)
	if err != nil {
		writeServiceError(c, h.logger, "chat option", err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Speech maneja POST /chat/speech. Acepta un archivo multipart "audio" o el
// audio crudo en el cuerpo.
func (h *ChatHandler) Speech(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes)

	var audio io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("audio")
		if err != nil {
			h.logger.Warn("invalid speech request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		f, err := file.Open()
		if err != nil {
			writeServiceError(c, h.logger, "open audio", err)
			return
		}
		defer f.Close()
		audio = f
	}

	reply, err := h.companion.Speech(c.Request.Context(), GetSessionToken(c), audio)
	if err != nil {
		writeServiceError(c, h.logger, "chat speech", err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// History maneja GET /chat/history.
func (h *ChatHandler) History(c *gin.Context) {
	turns, err := h.companion.History(c.Request.Context(), GetSessionToken(c))
	if err != nil {
		writeServiceError(c, h.logger, "chat history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": turns})
}

// HistoryDays maneja GET /chat/history/days?tz=Europe/Paris.
func (h *ChatHandler) HistoryDays(c *gin.Context) {
	loc := time.UTC
	if tz := strings.TrimSpace(c.Query("tz")); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timezone"})
			return
		}
		loc = parsed
	}

	days, err := h.companion.HistoryByDay(c.Request.Context(), GetSessionToken(c), loc)
	if err != nil {
		writeServiceError(c, h.logger, "chat history days", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// ClearHistory maneja DELETE /chat/history. La confirmacion la pide el cliente.
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	reply, err := h.companion.ClearHistory(c.Request.Context(), GetSessionToken(c))
	if err != nil {
		writeServiceError(c, h.logger, "clear history", err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// SetLanguage maneja PUT /language.
func (h *ChatHandler) SetLanguage(c *gin.Context) {
	var req struct {
		Language string `json:"language" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid language request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := h.companion.SetLanguage(c.Request.Context(), GetSessionToken(c), req.Language)
	if err != nil {
		writeServiceError(c, h.logger, "set language", err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Goals maneja GET /goals.
func (h *ChatHandler) Goals(c *gin.Context) {
	goals, err := h.companion.Goals(c.Request.Context(), GetSessionToken(c))
	if err != nil {
		writeServiceError(c, h.logger, "list goals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}
