package util

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the shape of every error body returned by the HTTP surface.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is the shape of trivial success bodies.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrInvalidInput is returned for malformed request input.
type ErrInvalidInput struct {
	Reason string
}

func (e ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// ErrResponse aborts the request with the given status and error body. The
// error is also attached to the context so logging middleware sees it.
func ErrResponse(c *gin.Context, status int, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

// HealthCheckHandler responds to liveness probes.
func HealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, SuccessResponse{Success: true})
	}
}

// TruncateWithEllipsis cuts s down to length i, appending "..." when truncated.
func TruncateWithEllipsis(s string, i int) string {
	asRunes := []rune(s)
	if len(asRunes) <= i {
		return s
	}
	return string(asRunes[:i]) + "..."
}
