package rest

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/server/auth"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDMaxLen = 64

	ctxKeyRequestID = "request_id"
	ctxKeyUser      = "user"
)

func (s *HTTPServer) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error(c.Request.Context(), "panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		abortMessage(c, http.StatusInternalServerError, "Internal Server Error")
	})
}

// requestID propagates the caller's X-Request-ID or assigns a new one.
func (s *HTTPServer) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > requestIDMaxLen {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
			"request_id", c.GetString(ctxKeyRequestID),
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error(ctx, "request", args...)
		case status >= http.StatusBadRequest:
			s.logger.Warn(ctx, "request", args...)
		default:
			s.logger.Info(ctx, "request", args...)
		}
	}
}

func (s *HTTPServer) originAllowed(origin string) bool {
	origin = strings.TrimRight(origin, "/")
	return slices.ContainsFunc(s.corsOrigins, func(o string) bool {
		return o == "*" || strings.TrimRight(o, "/") == origin
	})
}

func (s *HTTPServer) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && s.originAllowed(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+requestIDHeader)
			h.Set("Access-Control-Expose-Headers", requestIDHeader)
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// bodyLimit caps the request body at the configured upload size.
func (s *HTTPServer) bodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.maxUploadSize > 0 {
			if c.Request.ContentLength > s.maxUploadSize {
				abortMessage(c, http.StatusRequestEntityTooLarge, "File is too large")
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(common.AuthorizationHeaderName)
	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// authGuard resolves the bearer token to a user and stores it in the context.
func (s *HTTPServer) authGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortMessage(c, http.StatusUnauthorized, "Missing Authorization Header")
			return
		}

		username, err := auth.GetUsernameFromToken(token, s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				abortMessage(c, http.StatusUnauthorized, "Token has expired")
				return
			}
			abortMessage(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := s.users.Resolve(c.Request.Context(), username)
		if err != nil {
			s.writeError(c, err)
			return
		}

		c.Set(ctxKeyUser, user)
		c.Next()
	}
}

func (s *HTTPServer) adminGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin() {
			abortMessage(c, http.StatusForbidden, "Admins only!")
			return
		}
		c.Next()
	}
}

// currentUser returns the user set by authGuard, or nil.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
