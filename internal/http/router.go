package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diary-companion/internal/observe"
	"diary-companion/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	metrics *observe.Metrics,
	tokens *service.SessionTokenService,
	authH *AuthHandler,
	chatH *ChatHandler,
	journalH *JournalHandler,
	healthH *HealthHandler,
	metricsHandler http.Handler,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger, metrics), gin.Recovery())

	r.GET("/healthz", healthH.Healthz)
	r.GET("/readyz", healthH.Readyz)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := r.Group("/", jsonContentTypeMiddleware())
	api.POST("/auth/login", authH.Login)

	private := api.Group("/", SessionAuthMiddleware(tokens))
	private.GET("/session", authH.Session)
	private.POST("/auth/logout", authH.Logout)

	chat := private.Group("/chat")
	chat.POST("/message", chatH.Message)
	chat.POST("/option", chatH.Option)
	chat.POST("/speech", chatH.Speech)
	chat.GET("/history", chatH.History)
	chat.GET("/history/days", chatH.HistoryDays)
	chat.DELETE("/history", chatH.ClearHistory)

	private.PUT("/language", chatH.SetLanguage)
	private.GET("/goals", chatH.Goals)

	journal := private.Group("/journal")
	journal.POST("/unlock", journalH.Unlock)
	journal.POST("/close", journalH.Close)
	journal.GET("/entries", journalH.ListEntries)
	journal.GET("/entries/:date", journalH.GetEntry)
	journal.PUT("/entries/:date", journalH.PutEntry)

	return r
}

// zapLoggerMiddleware registra cada request con zap y su duracion en metricas.
func zapLoggerMiddleware(logger *zap.Logger, metrics *observe.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTP(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), latency)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
