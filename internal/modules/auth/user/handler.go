package user

import (
	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/user", authMW)
	g.GET("/profile", h.profile)
	g.POST("/editProfile", h.editProfile)
	g.PUT("/changePassword", h.changePassword)
	g.POST("/:slug/addStoryToReadList", h.toggleReadList)
	g.GET("/readList", h.readList)
}

func (h *Handler) profile(c *gin.Context) {
	u, err := h.svc.Profile(c.Request.Context(), middleware.CurrentViewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": ToResponse(u)})
}

func (h *Handler) editProfile(c *gin.Context) {
	var dto EditProfileDTO
	if err := c.ShouldBind(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	photo, err := media.FromRequest(c.Request, "photo", "user")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer photo.Close()

	u, err := h.svc.EditProfile(c.Request.Context(), middleware.CurrentViewer(c), dto.Username, photo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": ToResponse(u)})
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Please provide your old and new password")
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), middleware.CurrentViewer(c), dto.OldPassword, dto.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Your password has been changed"})
}

func (h *Handler) toggleReadList(c *gin.Context) {
	u, added, err := h.svc.ToggleReadList(c.Request.Context(), middleware.CurrentViewer(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": ToResponse(u), "status": added})
}

func (h *Handler) readList(c *gin.Context) {
	stories, err := h.svc.ReadList(c.Request.Context(), middleware.CurrentViewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"data": stories, "readListLength": len(stories)})
}
