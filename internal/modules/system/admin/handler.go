package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/auth/user"
	"github.com/himlearning/storyhub/internal/modules/content/story"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/pagination"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

// Handler serves the administration console.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts /admin behind authentication and the admin check.
// extra receives the same group for routes owned by other modules.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, extra ...func(*gin.RouterGroup)) {
	g := rg.Group("/admin", authMW, middleware.AdminOnly())

	g.GET("/stats", h.stats)

	g.GET("/users", h.listUsers)
	g.POST("/users", h.createUser)
	g.GET("/users/:id", h.getUser)
	g.PUT("/users/:id", h.updateUser)
	g.DELETE("/users/:id", h.deleteUser)

	g.GET("/stories", h.listStories)
	g.GET("/stories/:id", h.getStory)
	g.DELETE("/stories/:id", h.deleteStory)
	g.GET("/editStory/:slug", h.editStoryPage)
	// The segment after /stories is a slug here; gin requires one wildcard name per position.
	g.PUT("/stories/:id/edit", h.updateStory)

	for _, register := range extra {
		register(g)
	}
}

// stats GET /admin/stats
func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context(), middleware.CurrentViewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": st})
}

// listUsers GET /admin/users
func (h *Handler) listUsers(c *gin.Context) {
	q := pagination.FromContextWithSize(c, defaultPageSize)
	users, pag, err := h.svc.ListUsers(c.Request.Context(), middleware.CurrentViewer(c), ListInput{
		Search: c.Query("search"),
		Page:   q.Page,
		Size:   q.Size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]interface{}, len(users))
	for i := range users {
		out[i] = user.ToResponse(&users[i])
	}
	response.Paged(c, out, pag)
}

// getUser GET /admin/users/:id
func (h *Handler) getUser(c *gin.Context) {
	d, err := h.svc.GetUser(c.Request.Context(), middleware.CurrentViewer(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"data":          user.ToResponse(d.User),
		"storiesCount":  d.StoriesCount,
		"commentsCount": d.CommentsCount,
	})
}

// createUser POST /admin/users
func (h *Handler) createUser(c *gin.Context) {
	var dto CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.CreateUser(c.Request.Context(), middleware.CurrentViewer(c), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"data": user.ToResponse(u)})
}

// updateUser PUT /admin/users/:id
func (h *Handler) updateUser(c *gin.Context) {
	var dto UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateUser(c.Request.Context(), middleware.CurrentViewer(c), c.Param("id"), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": user.ToResponse(u)})
}

// deleteUser DELETE /admin/users/:id
func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.svc.DeleteUser(c.Request.Context(), middleware.CurrentViewer(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "User and all associated content deleted"})
}

// listStories GET /admin/stories
func (h *Handler) listStories(c *gin.Context) {
	q := pagination.FromContextWithSize(c, defaultPageSize)
	views, pag, err := h.svc.ListStories(c.Request.Context(), middleware.CurrentViewer(c), ListInput{
		Search: c.Query("search"),
		Page:   q.Page,
		Size:   q.Size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]interface{}, len(views))
	for i := range views {
		out[i] = story.ToResponse(&views[i])
	}
	response.Paged(c, out, pag)
}

// getStory GET /admin/stories/:id
func (h *Handler) getStory(c *gin.Context) {
	v, err := h.svc.GetStory(c.Request.Context(), middleware.CurrentViewer(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": story.ToResponse(v)})
}

// deleteStory DELETE /admin/stories/:id
func (h *Handler) deleteStory(c *gin.Context) {
	if err := h.svc.DeleteStory(c.Request.Context(), middleware.CurrentViewer(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Story deleted successfully"})
}

// editStoryPage GET /admin/editStory/:slug
func (h *Handler) editStoryPage(c *gin.Context) {
	st, err := h.svc.EditStoryPage(c.Request.Context(), middleware.CurrentViewer(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": storyResponse(st)})
}

// updateStory PUT /admin/stories/:slug/edit
func (h *Handler) updateStory(c *gin.Context) {
	var in story.UpdateInput
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

	st, err := h.svc.UpdateStory(c.Request.Context(), middleware.CurrentViewer(c), c.Param("id"), in, up)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": storyResponse(st)})
}

func storyResponse(st *models.Story) interface{} {
	return story.ToResponse(&story.View{Story: st})
}
