package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// HTTP metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daygauge_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daygauge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Display metrics
	RendersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daygauge_renders_total",
			Help: "Structural gauge renders triggered by a new start time",
		},
	)

	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daygauge_ticks_total",
			Help: "Imperative gauge updates",
		},
	)

	StateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daygauge_display_state_transitions_total",
			Help: "Display state transitions by target state",
		},
		[]string{"state"},
	)

	ActiveSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "daygauge_display_sessions_active",
			Help: "Number of running display synchronizers",
		},
		[]string{"surface"},
	)

	TickersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "daygauge_tickers_active",
			Help: "Number of running tick schedulers",
		},
	)

	// Storage metrics
	SubscriptionErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daygauge_subscription_errors_total",
			Help: "Start-time subscription failures",
		},
	)

	StartWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daygauge_start_writes_total",
			Help: "Start-time submissions by result",
		},
		[]string{"result"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RendersTotal,
		TicksTotal,
		StateTransitions,
		ActiveSessions,
		TickersActive,
		SubscriptionErrors,
		StartWritesTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			// Use systemd socket-activated listener
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			// Create and bind listener ourselves
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
