// Package httpapi exposes the review queue workflow over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/ports"
	"ReviewQueue/internal/session"
	"ReviewQueue/internal/usecase"
)

// QueueService is the workflow the handlers drive. *usecase.ReviewQueue implements it.
type QueueService interface {
	ResetQueue(ctx context.Context, user domain.User) (string, error)
	BuildQueueView(ctx context.Context, queueID string, user domain.User, page int) (usecase.QueueView, error)
	UpdateFilters(ctx context.Context, queueID string, user domain.User, upd usecase.FilterUpdate) (string, error)
	ToggleDecision(ctx context.Context, queueID string, user domain.User, key domain.DecisionKey, d domain.Decision) (string, error)
	SubmitDecisions(ctx context.Context, queueID string, user domain.User, submitted map[domain.DecisionKey]domain.Decision, now time.Time) (usecase.SubmitResult, error)
	SaveDefaults(ctx context.Context, queueID string, user domain.User) error
}

var _ QueueService = (*usecase.ReviewQueue)(nil)

// HandlerDeps wires the HTTP layer.
type HandlerDeps struct {
	Queue     QueueService
	Users     ports.UserStore
	JWTSecret []byte
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Handler serves the review queue API.
type Handler struct {
	queue     QueueService
	users     ports.UserStore
	jwtSecret []byte
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler builds the handler set.
func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		queue:     deps.Queue,
		users:     deps.Users,
		jwtSecret: deps.JWTSecret,
		gatherer:  deps.Gatherer,
		logger:    logger.With("component", "httpapi"),
		now:       now,
	}
}

// Router registers every route on a fresh gin engine.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(h.logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1", AuthMiddleware(h.jwtSecret, h.users, h.logger))
	api.POST("/queues", h.resetQueue)
	api.GET("/queues/:id", h.getQueue)
	api.PUT("/queues/:id/filters", h.updateFilters)
	api.PUT("/queues/:id/decisions/:key", h.toggleDecision)
	api.POST("/queues/:id/decisions", h.submitDecisions)
	api.POST("/queues/:id/defaults", h.saveDefaults)

	return router
}

type queueIDResponse struct {
	ID string `json:"id"`
}

func (h *Handler) resetQueue(c *gin.Context) {
	id, err := h.queue.ResetQueue(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, queueIDResponse{ID: id})
}

func (h *Handler) getQueue(c *gin.Context) {
	page := 0
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abort(c, http.StatusBadRequest, "page must be a non-negative integer")
			return
		}
		page = n
	}

	view, err := h.queue.BuildQueueView(c.Request.Context(), c.Param("id"), currentUser(c), page)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) updateFilters(c *gin.Context) {
	var upd usecase.FilterUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := h.queue.UpdateFilters(c.Request.Context(), c.Param("id"), currentUser(c), upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, queueIDResponse{ID: id})
}

type toggleRequest struct {
	Decision domain.Decision `json:"decision"`
}

func (h *Handler) toggleDecision(c *gin.Context) {
	key, err := domain.ParseDecisionKey(c.Param("key"))
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := h.queue.ToggleDecision(c.Request.Context(), c.Param("id"), currentUser(c), key, req.Decision)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, queueIDResponse{ID: id})
}

type submitRequest struct {
	Decisions map[domain.DecisionKey]domain.Decision `json:"decisions"`
}

func (h *Handler) submitDecisions(c *gin.Context) {
	var req submitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	res, err := h.queue.SubmitDecisions(c.Request.Context(), c.Param("id"), currentUser(c), req.Decisions, h.now())
	if err != nil && res.QueueID != "" {
		h.logger.Error("decisions partly applied", "queue_id", res.QueueID, "applied", res.Applied, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"id":      res.QueueID,
			"applied": res.Applied,
		})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) saveDefaults(c *gin.Context) {
	if err := h.queue.SaveDefaults(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps workflow errors to status codes. Unexpected errors are logged and
// reported without detail.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *usecase.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, verr)
	case errors.Is(err, domain.ErrAccessDenied):
		abort(c, http.StatusForbidden, "Not an authorized reviewer")
	case errors.Is(err, session.ErrQueueNotFound), errors.Is(err, session.ErrWrongKind):
		abort(c, http.StatusNotFound, "Review queue not found")
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		abort(c, http.StatusInternalServerError, "Internal server error")
	}
}
