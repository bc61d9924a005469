// Package health reports dependency status and lets administrators check
// the mail pipeline.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	pkgmail "github.com/himlearning/storyhub/internal/pkg/mail"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const checkTimeout = 3 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// Mailer sends a raw message.
type Mailer interface {
	Enabled() bool
	Send(msg pkgmail.Message) error
}

// Accounts finds the administrator a test mail goes to.
type Accounts interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type Handler struct {
	checks   map[string]Check
	mailer   Mailer
	accounts Accounts
	started  time.Time
}

func NewHandler(checks map[string]Check, mailer Mailer, accounts Accounts) *Handler {
	return &Handler{checks: checks, mailer: mailer, accounts: accounts, started: time.Now()}
}

// RegisterRoutes mounts the public probe.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
}

// RegisterAdminRoutes mounts the mail test on an admin-only group.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.POST("/health/email/test", h.emailTest)
}

// GET /health
func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]bool, len(names))
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			ok := check(ctx) == nil
			mu.Lock()
			results[name] = ok
			mu.Unlock()
		}(name, h.checks[name])
	}
	wg.Wait()

	status, code := "ok", http.StatusOK
	for _, ok := range results {
		if !ok {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": results,
		"uptime": int64(time.Since(h.started).Seconds()),
	})
}

// POST /admin/health/email/test
func (h *Handler) emailTest(c *gin.Context) {
	if h.mailer == nil || !h.mailer.Enabled() {
		response.Error(c, apperr.Validation("Mail is not enabled"))
		return
	}
	viewer := middleware.CurrentViewer(c)
	u, err := h.accounts.FindByID(c.Request.Context(), viewer.ID)
	if err != nil {
		response.Error(c, apperr.Internal(err))
		return
	}
	if u == nil || u.Email == "" {
		response.Error(c, apperr.Validation("Your account has no email address"))
		return
	}
	if err := h.mailer.Send(pkgmail.Message{
		To:      []string{u.Email},
		Subject: "Mail configuration test",
		HTML:    "<h1>Mail is configured correctly.</h1><p>If you can read this, outgoing mail works.</p>",
	}); err != nil {
		response.Error(c, apperr.Wrap(apperr.KindInternal, "Mail could not be sent: "+err.Error(), err))
		return
	}
	response.OK(c, gin.H{"message": "Test email sent to " + u.Email})
}
