package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	sentinel error
	status   int
}

// errorMappings is checked in order; the first sentinel found in the chain wins.
var errorMappings = []errorMapping{
	{common.ErrorValidation, http.StatusBadRequest},
	{common.ErrTokenExpired, http.StatusUnauthorized},
	{common.ErrRefreshTokenExpired, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrorForbidden, http.StatusForbidden},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrorConflict, http.StatusConflict},
}

// statusFor maps an error to its HTTP status and client-facing message.
// Unknown errors become 500 with a generic message.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.status, detail(err, m.sentinel)
		}
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// detail strips the sentinel prefix added by fmt.Errorf("%w: ...").
func detail(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok && rest != "" {
		return rest
	}
	return msg
}

func (s *HTTPServer) writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

func abortMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
