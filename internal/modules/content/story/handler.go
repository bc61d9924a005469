package story

import (
	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/pagination"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

// Handler handles story HTTP requests.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts story routes onto the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, optionalMW gin.HandlerFunc) {
	g := rg.Group("/story")

	g.GET("/getAllStories", optionalMW, h.list)
	g.GET("/editStory/:slug", authMW, h.editPage)
	g.POST("/addstory", authMW, h.create)
	g.GET("/:slug", optionalMW, h.detail)
	g.POST("/:slug", optionalMW, h.detail)
	g.POST("/:slug/like", authMW, h.like)
	g.PUT("/:slug/edit", authMW, h.update)
	g.DELETE("/:slug/delete", authMW, h.delete)
}

// list GET /story/getAllStories
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContextWithSize(c, DefaultListSize)
	views, pag, err := h.svc.List(c.Request.Context(), middleware.CurrentViewer(c), ListInput{
		Search: c.Query("search"),
		Page:   q.Page,
		Size:   q.Size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, toResponses(views), pag)
}

// detail GET|POST /story/:slug
func (h *Handler) detail(c *gin.Context) {
	v, err := h.svc.Detail(c.Request.Context(), middleware.CurrentViewer(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": toResponse(v), "likeStatus": v.LikeStatus})
}

// create POST /story/addstory
func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	up, err := media.FromRequest(c.Request, "image", "story")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer up.Close()

	st, err := h.svc.Create(c.Request.Context(), middleware.CurrentViewer(c), in, up)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"data": toResponse(&View{Story: st})})
}

// editPage GET /story/editStory/:slug
func (h *Handler) editPage(c *gin.Context) {
	st, err := h.svc.EditPage(c.Request.Context(), middleware.CurrentViewer(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": toResponse(&View{Story: st})})
}

// update PUT /story/:slug/edit
func (h *Handler) update(c *gin.Context) {
	var in UpdateInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	up, err := media.FromRequest(c.Request, "image", "story")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer up.Close()

	st, err := h.svc.Update(c.Request.Context(), middleware.CurrentViewer(c), c.Param("slug"), in, up)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": toResponse(&View{Story: st})})
}

// delete DELETE /story/:slug/delete
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentViewer(c), c.Param("slug")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Story deleted successfully"})
}

// like POST /story/:slug/like
func (h *Handler) like(c *gin.Context) {
	v, err := h.svc.ToggleLike(c.Request.Context(), middleware.CurrentViewer(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": toResponse(v), "likeStatus": v.LikeStatus})
}

func toResponses(views []View) []storyResponse {
	out := make([]storyResponse, len(views))
	for i := range views {
		out[i] = toResponse(&views[i])
	}
	return out
}
