package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var defaultHistogramBucketsSeconds = []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10}

// Collectors are created eagerly so recording before Init is a no-op for the
// scrape endpoint instead of a nil dereference.
var (
	once          sync.Once
	metricsRouter *chi.Mux

	// client requests are the ones sending to other service
	clientRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Histogram of outgoing client request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"baseurl", "method", "path", "status"},
	)

	instructionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "instruction_latency_seconds",
			Help:    "Histogram of program instruction durations in seconds, by instruction and result code.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"instruction", "result"},
	)

	rewardPaidCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_points_paid_total",
			Help: "Total reward points credited to users, by instruction",
		},
		[]string{"instruction"},
	)

	activeStakesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_stakes_count",
			Help: "Number of assets currently held in the vault",
		},
	)

	unclaimedRewardGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "unclaimed_reward_points",
			Help: "Reward accrued up to the last checkpoint of every active stake and not yet claimed",
		},
	)

	// add a counter for the number of errors from the fail to push message into queue
	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when sending messages to the queue",
		},
	)

	statsRefreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stats_refresh_duration_seconds",
			Help:    "Histogram of stats refresh durations in seconds, by job and status.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"job", "status"},
	)

	statsLastRefreshGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stats_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful stats refresh, by job",
		},
		[]string{"job"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics registers the Prometheus metrics.
func registerMetrics() {
	prometheus.MustRegister(
		clientRequestDurationHistogram,
		instructionLatency,
		rewardPaidCounter,
		activeStakesGauge,
		unclaimedRewardGauge,
		queueSendErrorCounter,
		statsRefreshDuration,
		statsLastRefreshGauge,
		dbLatency,
	)
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

// RecordInstructionLatency records an executed instruction. result is either
// "success" or the error code the instruction failed with.
func RecordInstructionLatency(d time.Duration, instruction, result string) {
	instructionLatency.WithLabelValues(instruction, result).Observe(d.Seconds())
}

func RecordRewardPaid(instruction string, amount uint64) {
	rewardPaidCounter.WithLabelValues(instruction).Add(float64(amount))
}

func RecordActiveStakes(count uint64) {
	activeStakesGauge.Set(float64(count))
}

func RecordUnclaimedReward(amount uint64) {
	unclaimedRewardGauge.Set(float64(amount))
}

// StartClientRequestDurationTimer starts a timer to measure outgoing client request duration.
func StartClientRequestDurationTimer(baseUrl, method, path string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		clientRequestDurationHistogram.WithLabelValues(
			baseUrl,
			method,
			path,
			fmt.Sprintf("%d", statusCode),
		).Observe(duration)
	}
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}
