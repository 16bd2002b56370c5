// Package boardserver exposes the lobby queue board over HTTP so a screen
// in the hall can render it.
package boardserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"regportal/internal/httpmiddleware"
	"regportal/internal/queueboard"
)

// Source is the board being served.
type Source interface {
	State() queueboard.State
}

// Options configures the router.
type Options struct {
	RateLimitPerMin int
	Gatherer        prometheus.Gatherer
}

// Router builds the board's HTTP handler.
func Router(src Source, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Accept"},
		MaxAge:       24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	if opts.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin).GinMiddleware())
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", func(c *gin.Context) {
		st := src.State()
		if st.ConnectionError() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "backend unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/queue", func(c *gin.Context) {
		c.JSON(http.StatusOK, snapshot(src.State()))
	})
	return r
}

// Snapshot is the /queue payload.
type Snapshot struct {
	Loaded          bool                        `json:"loaded"`
	Stale           bool                        `json:"stale"`
	ConnectionError bool                        `json:"connectionError"`
	Error           string                      `json:"error,omitempty"`
	UpdatedAt       *time.Time                  `json:"updatedAt,omitempty"`
	Waiting         int                         `json:"waiting"`
	Departments     []queueboard.DepartmentView `json:"departments"`
}

func snapshot(st queueboard.State) Snapshot {
	out := Snapshot{
		Loaded:          st.Loaded,
		Stale:           st.Stale(),
		ConnectionError: st.ConnectionError(),
		Waiting:         st.Waiting(),
		Departments:     st.View(),
	}
	if st.Err != nil {
		out.Error = "Unable to reach the registration server"
	}
	if !st.UpdatedAt.IsZero() {
		at := st.UpdatedAt.UTC()
		out.UpdatedAt = &at
	}
	return out
}
