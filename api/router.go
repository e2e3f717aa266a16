package api

import (
	"fmt"
	"log/slog"
	"mailbox/api/server"
	"mailbox/auth"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Ingestion *server.IngestionServer
	Delivery  *server.DeliveryServer
	Relay     *server.RelayServer
	Health    *server.HealthServer
}

// RemoteIPHeaders carry the client address, honoured only from trusted proxies.
var RemoteIPHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For"}

// NewRouter mounts the public API. Delivery and direct relay sit behind the access key.
// trustedProxies lists the IPs or CIDRs allowed to report the client address,
// with none every caller is identified by its TCP peer.
func NewRouter(handlers Handlers, accessKey auth.EncodedHash, trustedProxies []string, log *slog.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.ForwardedByClientIP = true
	router.RemoteIPHeaders = RemoteIPHeaders
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(requestLogger(log), recovery(log))

	router.GET("/health", handlers.Health.Health)
	apiGroup := router.Group("/api")
	apiGroup.POST("/submit", handlers.Ingestion.Submit)

	protected := apiGroup.Group("", auth.RequireAccessKey(accessKey, log))
	protected.GET("/message", handlers.Delivery.TakeNext)
	protected.POST("/relay", handlers.Relay.Send)

	allowed := allowedMethods(router.Routes())
	router.NoMethod(func(c *gin.Context) {
		c.Header("Allow", allowed[c.Request.URL.Path])
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "message": "method not allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "not found"})
	})
	return router, nil
}

func allowedMethods(routes gin.RoutesInfo) map[string]string {
	byPath := map[string][]string{}
	for _, route := range routes {
		byPath[route.Path] = append(byPath[route.Path], route.Method)
	}
	allowed := make(map[string]string, len(byPath))
	for path, methods := range byPath {
		sort.Strings(methods)
		allowed[path] = strings.Join(methods, ", ")
	}
	return allowed
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Handler panic", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
	})
}
