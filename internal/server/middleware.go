package server

import (
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/vibecook/internal/config"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// setupSecurityMiddleware configures and applies security middleware to the router.
func setupSecurityMiddleware(router *gin.Engine, cfg *config.Config, log *logger.Logger) {
	// HSTS only makes sense behind TLS in production.
	stsSeconds := int64(0)
	if cfg.Production() {
		stsSeconds = int64(cfg.HSTSMaxAge)
	}

	router.Use(secure.New(secure.Config{
		STSSeconds:            stsSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: config.BuildCSP(cfg.CSPMode),
	}))

	log.Debug("server: security middleware (hsts=%t, csp=%s)", cfg.Production(), cfg.CSPMode)
}

// requestLogger writes one line per request at debug level, and at warn
// level for server errors.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start).Round(time.Microsecond)
		if status >= 500 {
			log.Warn("server: %s %s -> %d (%s) %s", c.Request.Method, c.Request.URL.Path, status, elapsed, c.Errors.String())
			return
		}
		log.Debug("server: %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, elapsed)
	}
}
