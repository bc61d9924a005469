package comment

import (
	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, optionalMW gin.HandlerFunc) {
	g := rg.Group("/comment")
	g.POST("/:slug/addComment", authMW, h.add)
	g.GET("/:slug/getAllComment", optionalMW, h.list)
	g.DELETE("/:id", authMW, h.delete)
}

func (h *Handler) add(c *gin.Context) {
	var dto AddCommentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Please provide a comment")
		return
	}
	v, err := h.svc.Add(c.Request.Context(), middleware.CurrentViewer(c), c.Param("slug"), dto.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"data": toResponse(v)})
}

func (h *Handler) list(c *gin.Context) {
	views, err := h.svc.List(c.Request.Context(), middleware.CurrentViewer(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"count": len(views), "data": toResponses(views)})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentViewer(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Comment deleted"})
}
