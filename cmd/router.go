package cmd

import (
	"net/http"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luma/amictl/client"
	"github.com/luma/amictl/storage"
)

const jsonContentType = "application/json; charset=utf-8"

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logs all requests, like a combined access and error log, in UTC
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping", "/metrics"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

// stateSource is the part of a connection the monitor API reports on.
type stateSource interface {
	State() client.State
}

// registerMonitorRoutes exposes the channel store, the connection state and
// metrics gathered by gatherer.
func registerMonitorRoutes(r gin.IRouter, store storage.Store, conn stateSource, gatherer prometheus.Gatherer) {
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"connection": conn.State().String(),
		})
	})

	r.GET("/channels", func(c *gin.Context) {
		value, err := store.Get(c.Request.Context(), []byte(storage.ChannelsKey))
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		if value == nil {
			value = []byte("{}")
		}

		c.Data(http.StatusOK, jsonContentType, value)
	})

	// channel names contain slashes, e.g. PJSIP/alice-00000001
	r.GET("/channel/*name", func(c *gin.Context) {
		name := strings.TrimPrefix(c.Param("name"), "/")

		value, err := store.Get(c.Request.Context(), storage.ChannelKey(name))
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		if value == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such channel"})
			return
		}

		c.Data(http.StatusOK, jsonContentType, value)
	})

	r.GET("/store", func(c *gin.Context) {
		value, err := store.Backup()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		c.Data(http.StatusOK, jsonContentType, value)
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
