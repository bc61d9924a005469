package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	redispkg "github.com/himlearning/storyhub/internal/pkg/redis"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

const (
	idempotenceHeader = "X-Idempotence"
	idempotenceTTL    = 60 * time.Second
	idempotencePrefix = "storyhub:idempotence:"
)

// Idempotence rejects a repeated POST or PUT while the first one is in
// flight and for a minute after it succeeded. Requests are keyed by the
// X-Idempotence header or, failing that, by a hash of the request.
// Routes whose pattern (as registered, e.g. "/api/v1/story/:slug") is in
// skip are never deduplicated: reads served over POST, toggles and logins.
func Idempotence(rdb *redispkg.Client, skip ...string) gin.HandlerFunc {
	exempt := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		exempt[normalizePath(p)] = struct{}{}
	}
	return func(c *gin.Context) {
		if m := c.Request.Method; m != http.MethodPost && m != http.MethodPut {
			c.Next()
			return
		}
		if _, ok := exempt[normalizePath(c.FullPath())]; ok {
			c.Next()
			return
		}

		key, err := resolveIdempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		redisKey := idempotencePrefix + key
		ctx := c.Request.Context()
		claimed, err := rdb.Claim(ctx, redisKey, "0", idempotenceTTL)
		if err != nil {
			c.Next()
			return
		}
		if !claimed {
			msg := "The same request can only be sent once within 60 seconds of succeeding"
			if val, _ := rdb.Get(ctx, redisKey); val == "0" {
				msg = "The same request is still being processed"
			}
			response.Error(c, apperr.Conflict(msg))
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			_ = rdb.Replace(ctx, redisKey, "1")
		} else {
			_ = rdb.Del(ctx, redisKey)
		}
	}
}

func normalizePath(p string) string {
	return strings.TrimRight(strings.TrimSpace(p), "/")
}

// resolveIdempotenceKey returns the idempotence key for the current request.
// Multipart bodies are not hashed; they need an explicit header.
func resolveIdempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return hdr, nil
	}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return "", nil
	}

	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			return "", err
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	}

	token := NormalizeToken(c.GetHeader("Authorization"))
	if token == "" {
		token = NormalizeToken(c.Query("token"))
	}
	ua := c.Request.UserAgent()
	ip := c.ClientIP()
	if len(body) == 0 && ua == "" && ip == "" && token == "" {
		return "", nil
	}

	raw := fmt.Sprintf("%s|%s|%s|%s|%s|%s", c.Request.Method, c.Request.URL.String(), body, ua, ip, token)
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}
