package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// maxConcurrentScrapes caps parallel scrapes; extra ones get 503.
	maxConcurrentScrapes = 4

	scrapeTimeout = 10 * time.Second
)

// Handler serves the collector's registry, admission metrics from
// pkg/limits included. Scrapes are themselves counted as
// promhttp_metric_handler_requests_total, and gather errors are logged
// while the remaining metrics are still served.
func (c *Collector) Handler() http.Handler {
	opts := promhttp.HandlerOpts{
		ErrorLog:            slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		ErrorHandling:       promhttp.ContinueOnError,
		Registry:            c.registry,
		MaxRequestsInFlight: maxConcurrentScrapes,
		Timeout:             scrapeTimeout,
		EnableOpenMetrics:   true,
	}
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(c.registry, opts))
}
