package server

import (
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pasaporte-animal/go-pasaporte/service/logger"
)

func sentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
	})
}

// requestLogger binds request fields onto the context so every log line
// emitted while handling the request carries them.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.NewContextWithFields(c.Request.Context(), logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// errLogger logs every error attached to the gin context after the handler
// chain has run.
func errLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.For(c.Request.Context()).Errorf("%s %s: %s", c.Request.Method, c.Request.URL.Path, c.Errors.String())
			if hub := sentry.GetHubFromContext(c.Request.Context()); hub != nil {
				for _, err := range c.Errors {
					hub.CaptureException(err.Err)
				}
			}
		}
	}
}
