package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"finboard/internal/dashboard"
	"finboard/internal/database"
	"finboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	userHeader = "X-User-ID"
	userKey    = "userID"
)

// Handler serves the dashboard over HTTP.
type Handler struct {
	logger   *slog.Logger
	svc      *dashboard.Service
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(logger *slog.Logger, svc *dashboard.Service) *Handler {
	return &Handler{
		logger: logger,
		svc:    svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// NewRouter builds the gin engine with logging, recovery and every route registered.
func NewRouter(logger *slog.Logger, svc *dashboard.Service) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	NewHandler(logger, svc).RegisterRoutes(router)
	return router
}

// RegisterRoutes binds the handler methods to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	v1 := router.Group("/v1")

	user := v1.Group("", requireUser())
	{
		user.GET("/investments", h.ListInvestments)
		user.POST("/investments", h.CreateInvestment)
		user.GET("/investments/export", h.ExportInvestments)
		user.PATCH("/investments/:id", h.UpdateInvestment)
		user.DELETE("/investments/:id", h.DeleteInvestment)
		user.POST("/investments/:id/favorite", h.ToggleFavorite)
		user.GET("/portfolio/summary", h.Summary)
		user.GET("/feed", h.Feed)
	}

	v1.GET("/quotes/:section", h.Quotes)
	v1.GET("/reference-rate", h.ReferenceRate)
	v1.GET("/prices", h.Prices)
	v1.GET("/rates/:kind", h.Rates)
	v1.GET("/inflation", h.Inflation)
	v1.POST("/simulator/compound", h.Compound)
	v1.POST("/simulator/installments", h.Installments)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "HTTP: request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
		)
	}
}

// requireUser reads the caller's id from the X-User-ID header. WebSocket clients that cannot
// set headers may pass it as the user_id query parameter instead.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(userHeader)
		if raw == "" {
			raw = c.Query("user_id")
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + userHeader})
			return
		}
		c.Set(userKey, id)
		c.Next()
	}
}

func userID(c *gin.Context) uuid.UUID {
	return c.MustGet(userKey).(uuid.UUID)
}

// writeError maps domain errors onto status codes. Store errors are passed through verbatim.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, dashboard.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
