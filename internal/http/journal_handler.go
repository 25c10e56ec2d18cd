package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diary-companion/internal/domain"
	"diary-companion/internal/service"
)

// JournalHandler expone el diario secreto de la sesion.
type JournalHandler struct {
	logger    *zap.Logger
	companion *service.Companion
}

func NewJournalHandler(logger *zap.Logger, companion *service.Companion) *JournalHandler {
	return &JournalHandler{logger: logger, companion: companion}
}

// Unlock maneja POST /journal/unlock.
func (h *JournalHandler) Unlock(c *gin.Context) {
	var req struct {
		Secret string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid journal unlock request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.companion.OpenJournal(c.Request.Context(), GetSessionToken(c), req.Secret); err != nil {
		writeServiceError(c, h.logger, "journal unlock", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Close maneja POST /journal/close.
func (h *JournalHandler) Close(c *gin.Context) {
	if err := h.companion.CloseJournal(c.Request.Context(), GetSessionToken(c)); err != nil {
		writeServiceError(c, h.logger, "journal close", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListEntries maneja GET /journal/entries: fechas con entrada, la mas nueva primero.
func (h *JournalHandler) ListEntries(c *gin.Context) {
	view, err := h.companion.Journal(c.Request.Context(), GetSessionToken(c))
	if err != nil {
		writeServiceError(c, h.logger, "journal list", err)
		return
	}
	dates, err := view.ListDatesDescending(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.logger, "journal list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// GetEntry maneja GET /journal/entries/:date.
func (h *JournalHandler) GetEntry(c *gin.Context) {
	date, err := domain.ParseJournalDate(c.Param("date"))
	if err != nil {
		writeServiceError(c, h.logger, "journal get", err)
		return
	}
	view, err := h.companion.Journal(c.Request.Context(), GetSessionToken(c))
	if err != nil {
		writeServiceError(c, h.logger, "journal get", err)
		return
	}
	text, err := view.GetEntry(c.Request.Context(), date)
	if err != nil {
		writeServiceError(c, h.logger, "journal get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "text": text})
}

// PutEntry maneja PUT /journal/entries/:date. Texto vacio borra la entrada.
func (h *JournalHandler) PutEntry(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid journal entry request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	date, err := domain.ParseJournalDate(c.Param("date"))
	if err != nil {
		writeServiceError(c, h.logger, "journal put", err)
		return
	}
	view, err := h.companion.Journal(c.Request.Context(), GetSessionToken(c))
	if err != nil {
		writeServiceError(c, h.logger, "journal put", err)
		return
	}
	if err := view.SetEntry(c.Request.Context(), date, req.Text); err != nil {
		writeServiceError(c, h.logger, "journal put", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "text": req.Text})
}
