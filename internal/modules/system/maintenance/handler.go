package maintenance

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/himlearning/storyhub/internal/pkg/cron"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

// Handler exposes the scheduler on the admin console.
type Handler struct {
	sched *cron.Scheduler
}

func NewHandler(sched *cron.Scheduler) *Handler {
	return &Handler{sched: sched}
}

// RegisterAdminRoutes mounts job routes on an admin-only group.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	g := admin.Group("/jobs")
	g.GET("", h.list)
	g.GET("/:name", h.get)
	g.POST("/:name/run", h.run)
}

// GET /admin/jobs
func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.sched.List())
}

// GET /admin/jobs/:name
func (h *Handler) get(c *gin.Context) {
	result, err := h.sched.GetTask(c.Param("name"))
	if err != nil {
		response.Error(c, jobError(err))
		return
	}
	response.OK(c, result)
}

// POST /admin/jobs/:name/run
func (h *Handler) run(c *gin.Context) {
	if err := h.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.Error(c, jobError(err))
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}

func jobError(err error) error {
	if errors.Is(err, cron.ErrJobNotFound) {
		return apperr.NotFound("Job not found")
	}
	return apperr.Internal(err)
}
