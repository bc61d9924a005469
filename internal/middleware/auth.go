package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/himlearning/storyhub/internal/pkg/jwt"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyViewer = "viewer"
)

// ErrInvalidToken is returned by ValidateToken for a missing, malformed or
// forged token.
var ErrInvalidToken = errors.New("invalid token")

// IdentityResolver loads the role of a token subject. A subject whose
// account no longer exists yields an apperr Unauthenticated error; any other
// error is treated as a server failure.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID primitive.ObjectID) (models.Viewer, error)
}

// Auth returns a middleware that enforces JWT authentication.
func Auth(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, err := ValidateToken(c.Request.Context(), resolver, extractToken(c))
		switch {
		case err == nil:
			setViewer(c, viewer)
			c.Next()
		case errors.Is(err, jwt.ErrExpired):
			response.Error(c, apperr.Unauthenticated("Your session has expired, please sign in again."))
		case isCredentialError(err):
			response.Unauthorized(c)
		default:
			response.Error(c, apperr.Internal(err))
		}
	}
}

func isCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || apperr.Is(err, apperr.KindUnauthenticated)
}

// OptionalAuth sets the viewer if a valid token is present. Bad or expired
// tokens fall back to anonymous; a failed identity lookup does not.
func OptionalAuth(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			c.Next()
			return
		}
		viewer, err := ValidateToken(c.Request.Context(), resolver, raw)
		switch {
		case err == nil:
			setViewer(c, viewer)
		case errors.Is(err, jwt.ErrExpired), isCredentialError(err):
		default:
			response.Error(c, apperr.Internal(err))
			return
		}
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := CurrentViewer(c)
		if !viewer.IsAuthenticated() {
			response.Unauthorized(c)
			return
		}
		if !viewer.IsAdmin() {
			response.Error(c, apperr.Forbidden("Administrator access required."))
			return
		}
		c.Next()
	}
}

// ValidateToken verifies a bearer token and resolves the identity behind it.
func ValidateToken(ctx context.Context, resolver IdentityResolver, rawToken string) (models.Viewer, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return models.Anonymous(), fmt.Errorf("%w: token is required", ErrInvalidToken)
	}
	claims, err := jwt.Parse(token)
	if errors.Is(err, jwt.ErrExpired) {
		return models.Anonymous(), err
	}
	if err != nil {
		return models.Anonymous(), fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.Anonymous(), fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return resolver.ResolveIdentity(ctx, id)
}

// CurrentViewer returns the request identity, anonymous when unauthenticated.
func CurrentViewer(c *gin.Context) models.Viewer {
	v, ok := c.Get(ContextKeyViewer)
	if !ok {
		return models.Anonymous()
	}
	viewer, _ := v.(models.Viewer)
	return viewer
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentViewer(c).IsAuthenticated()
}

func setViewer(c *gin.Context, viewer models.Viewer) {
	c.Set(ContextKeyViewer, viewer)
	c.Set(ContextKeyUserID, viewer.ID.Hex())
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
