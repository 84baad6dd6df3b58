package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector manages metrics collection
type Collector struct {
	handler http.Handler
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		handler: promhttp.Handler(),
	}
}

// Handler returns the HTTP handler for the metrics endpoint
func (c *Collector) Handler() http.Handler {
	return c.handler
}

// Start starts background metrics collection
func (c *Collector) Start() {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			UptimeSeconds.Set(time.Since(startTime).Seconds())
		}
	}()
}
