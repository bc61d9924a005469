package response

import (
	"math/rand"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
)

var notFoundMessages = []string{
	"This story wandered off somewhere.",
	"Nothing here but blank pages.",
	"We looked everywhere, even under the bookshelf.",
	"This page is still being written.",
	"The chapter you want does not exist yet.",
}

var exposeInternal bool

// genericInternal is the message of apperr.Internal; it carries no detail.
const genericInternal = "internal error"

// SetDebug controls whether internal error details are sent to clients.
func SetDebug(enabled bool) { exposeInternal = enabled }

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

// pagedResponse is the envelope for paginated list responses.
type pagedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// Paged sends a paginated response.
func Paged(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, pagedResponse{
		Data:       data,
		Pagination: pagination,
	})
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, apperr.KindValidation, message)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	abort(c, http.StatusUnauthorized, apperr.KindUnauthenticated, "Please sign in first.")
}

// Forbidden sends a 403 error response.
func Forbidden(c *gin.Context) {
	abort(c, http.StatusForbidden, apperr.KindForbidden, "You are not allowed to do that.")
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	msg := "Not Found"
	if len(notFoundMessages) > 0 {
		msg = notFoundMessages[rand.Intn(len(notFoundMessages))]
	}
	abort(c, http.StatusNotFound, apperr.KindNotFound, msg)
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	abort(c, http.StatusMethodNotAllowed, apperr.KindValidation, "Method not allowed")
}

// Error maps an application error onto the JSON error envelope.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)

	body := gin.H{"ok": 0, "code": status, "category": kind.String()}
	e, ok := apperr.As(err)
	switch {
	case kind == apperr.KindInternal && !exposeInternal && ok && e.Message != genericInternal:
		body["message"] = e.Message
	case kind == apperr.KindInternal && !exposeInternal:
		body["message"] = "Something went wrong on our side."
	case kind == apperr.KindInternal:
		body["message"] = err.Error()
	case ok:
		body["message"] = e.Message
	default:
		body["message"] = err.Error()
	}
	if ok {
		if e.Step != "" {
			body["step"] = e.Step
		}
		if e.Retryable {
			body["retryable"] = true
		}
		if e.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(e.RetryAfter.Seconds()+0.5)))
		}
	}
	c.AbortWithStatusJSON(status, body)
}

// StatusFor returns the HTTP status used for an error kind.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation, apperr.KindUploadRejected:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, kind apperr.Kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": 0, "code": status, "category": kind.String(), "message": message})
}
