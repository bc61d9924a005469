package announcement

import (
	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/pkg/pagination"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public listing.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, optionalMW gin.HandlerFunc) {
	rg.GET("/announcements", optionalMW, h.public)
}

// RegisterAdminRoutes mounts management routes on an admin-only group.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	g := admin.Group("/announcements")
	g.GET("", h.adminList)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) public(c *gin.Context) {
	views, err := h.svc.Public(c.Request.Context(), middleware.CurrentViewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"count": len(views), "data": h.responses(views)})
}

func (h *Handler) adminList(c *gin.Context) {
	q := pagination.FromContextWithSize(c, defaultPageSize)
	views, pag, err := h.svc.AdminList(c.Request.Context(), middleware.CurrentViewer(c), ListInput{
		Search: c.Query("search"),
		Status: Status(c.Query("status")),
		Page:   q.Page,
		Size:   q.Size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, h.responses(views), pag)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.CurrentViewer(c), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"message": "Announcement created successfully", "data": h.svc.toResponse(v)})
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	v, err := h.svc.Update(c.Request.Context(), middleware.CurrentViewer(c), c.Param("id"), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Announcement updated successfully", "data": h.svc.toResponse(v)})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentViewer(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Announcement deleted successfully"})
}

func (h *Handler) responses(views []View) []announcementResponse {
	out := make([]announcementResponse, len(views))
	for i := range views {
		out[i] = h.svc.toResponse(&views[i])
	}
	return out
}
