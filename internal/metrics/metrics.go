package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "tickerwatch"
	subsystem = "watcher"
)

// Poll error kinds used as the "kind" label of PollErrors.
const (
	KindFetch     = "fetch"
	KindMalformed = "malformed"
	KindNoPrice   = "no_price"
	KindAlert     = "alert"
)

var (
	CyclesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "cycles_completed",
		Help:      "The total number of completed polling cycles",
	})
	PricesPolled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "prices_polled",
		Help:      "The total number of prices read per ticker",
	}, []string{"ticker"})
	AlertsTriggered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "alerts_triggered",
		Help:      "The total number of delivered alerts per ticker",
	}, []string{"ticker"})
	PollErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "poll_errors",
		Help:      "Polling failures per ticker and kind",
	}, []string{"ticker", "kind"})
	WatchedTickers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "watched_tickers",
		Help:      "The current number of watch entries",
	})
	LastPrice = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "last_price",
		Help:      "The last price read per ticker",
	}, []string{"ticker"})
)

func init() {
	prometheus.MustRegister(CyclesCompleted)
	prometheus.MustRegister(PricesPolled)
	prometheus.MustRegister(AlertsTriggered)
	prometheus.MustRegister(PollErrors)
	prometheus.MustRegister(WatchedTickers)
	prometheus.MustRegister(LastPrice)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Handler serves /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthCheckHandler)
	return mux
}

// Serve runs the metrics and health endpoint until ctx is cancelled.
func Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Launching metrics and health endpoint on :%d", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
