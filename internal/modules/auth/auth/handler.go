package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/modules/auth/user"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.POST("/forgotpassword", h.forgotPassword)
	a.PUT("/resetpassword", h.resetPassword)
	a.GET("/verify-email", h.verifyEmail)
	a.POST("/resend-verification", h.resendVerification)
	a.GET("/private", authMW, h.private)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Please provide a username, email and password")
		return
	}
	res, err := h.svc.Register(c.Request.Context(), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !res.Created {
		response.OK(c, gin.H{"message": "Account already exists but not verified. A new verification email has been sent to your inbox."})
		return
	}
	response.Created(c, gin.H{"message": "Registration successful! Please check your email to verify your account before logging in."})
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Please check your inputs")
		return
	}
	token, err := h.svc.Login(c.Request.Context(), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var dto EmailDTO
	_ = c.ShouldBindJSON(&dto)
	if err := h.svc.ForgotPassword(c.Request.Context(), dto.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "If an account with that email exists, a password reset link has been sent."})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var dto ResetPasswordDTO
	_ = c.ShouldBindJSON(&dto)
	if err := h.svc.ResetPassword(c.Request.Context(), c.Query("resetPasswordToken"), dto); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Password reset successful! You can now log in with your new password."})
}

func (h *Handler) verifyEmail(c *gin.Context) {
	already, err := h.svc.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	msg := "Email verified successfully! You can now log in to your account."
	if already {
		msg = "Email is already verified! You can log in to your account."
	}
	response.OK(c, gin.H{"message": msg})
}

func (h *Handler) resendVerification(c *gin.Context) {
	var dto EmailDTO
	_ = c.ShouldBindJSON(&dto)
	if err := h.svc.ResendVerification(c.Request.Context(), dto.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Verification email sent successfully! Please check your inbox."})
}

func (h *Handler) private(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), middleware.CurrentViewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "You got access to the private data in this route", "user": user.ToResponse(u)})
}
