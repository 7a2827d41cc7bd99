package pkg

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"ris_live/pkg/rislive"
)

// Metrics counts decoded messages by outcome and emitted elements by type
type Metrics struct {
	registry *prometheus.Registry
	messages *prometheus.CounterVec
	elements *prometheus.CounterVec
	rib      *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rislive",
			Name:      "messages_total",
			Help:      "Messages received, by decode outcome",
		}, []string{"outcome"}),
		elements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rislive",
			Name:      "elements_total",
			Help:      "Routing elements decoded, by type",
		}, []string{"type"}),
		rib: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rislive",
			Subsystem: "rib",
			Name:      "updates_total",
			Help:      "Paths written to the local RIB, by result",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.messages, m.elements, m.rib)
	return m
}

// ObserveMessage records the outcome of one decode
func (m *Metrics) ObserveMessage(class rislive.ErrorClass, elems []rislive.RoutingElement) {
	m.messages.WithLabelValues(class.String()).Inc()
	for _, e := range elems {
		m.elements.WithLabelValues(e.Type.String()).Inc()
	}
}

// ObserveRIB records one RIB write
func (m *Metrics) ObserveRIB(err error) {
	if err != nil {
		m.rib.WithLabelValues("error").Inc()
		return
	}
	m.rib.WithLabelValues("ok").Inc()
}

// Handler serves /metrics and /healthz
func (m *Metrics) Handler() http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return router
}

// Serve runs the metrics endpoint until ctx is done
func (m *Metrics) Serve(ctx context.Context, listen string) error {
	server := &http.Server{
		Addr:              listen,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("listen", listen).Info("Serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
