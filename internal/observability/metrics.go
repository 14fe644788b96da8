package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	webhookEvents   *CounterVec
	reconcileResult *CounterVec
	lockAcquire     *CounterVec
	aggregations    *CounterVec
	aggregateSize   *HistogramVec
	aggregateTime   *HistogramVec
	jobScheduled    *CounterVec
	jobRuns         *CounterVec
	jobLatency      *HistogramVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	scrapeInterval time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current is nil until Init ran with metrics enabled. Every method is nil-safe.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger, enabled bool, scrapeInterval time.Duration) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New(scrapeInterval)
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func New(scrapeInterval time.Duration) *Metrics {
	if scrapeInterval <= 0 {
		scrapeInterval = 10 * time.Second
	}
	fast := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	return &Metrics{
		apiRequests: NewCounterVec("br_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"br_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			fast,
		),
		apiInflight:     NewGauge("br_api_inflight_requests", "In-flight API requests."),
		webhookEvents:   NewCounterVec("br_webhook_events_total", "Webhook events by type/outcome.", []string{"type", "outcome"}),
		reconcileResult: NewCounterVec("br_buffer_reconcile_total", "Buffered messages handled on reconcile by result.", []string{"result"}),
		lockAcquire:     NewCounterVec("br_group_lock_acquire_total", "Schedule lock attempts by result.", []string{"result"}),
		aggregations:    NewCounterVec("br_aggregations_total", "Aggregation job runs by status.", []string{"status"}),
		aggregateSize: NewHistogramVec(
			"br_aggregation_messages",
			"Messages folded into one outbound reply.",
			[]string{},
			[]float64{1, 2, 3, 5, 8, 13, 21, 34},
		),
		aggregateTime: NewHistogramVec(
			"br_aggregation_duration_seconds",
			"Aggregation job duration in seconds by status.",
			[]string{"status"},
			fast,
		),
		jobScheduled: NewCounterVec("br_jobs_scheduled_total", "Delayed jobs handed to a scheduler.", []string{"scheduler", "job_type", "status"}),
		jobRuns:      NewCounterVec("br_job_runs_total", "Delayed job executions.", []string{"scheduler", "job_type", "status"}),
		jobLatency: NewHistogramVec(
			"br_job_run_duration_seconds",
			"Delayed job execution time in seconds.",
			[]string{"scheduler", "job_type", "status"},
			fast,
		),
		dbStats:        NewGaugeVec("br_db_stats", "Database connection pool stats.", []string{"metric"}),
		redisUp:        NewGauge("br_redis_up", "Ephemeral store connectivity (1=up, 0=down)."),
		redisPing:      NewGauge("br_redis_ping_seconds", "Ephemeral store ping latency in seconds."),
		scrapeInterval: scrapeInterval,
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	collectors := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.webhookEvents, m.reconcileResult, m.lockAcquire,
		m.aggregations, m.aggregateSize, m.aggregateTime,
		m.jobScheduled, m.jobRuns, m.jobLatency,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, c := range collectors {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	code := strconv.Itoa(status)
	m.apiRequests.Inc(method, route, code)
	m.apiLatency.Observe(dur.Seconds(), method, route, code)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEvents.Inc(eventType, outcome)
}

// IncReconcile records one scanned buffer entry: promoted, stale, or failed.
func (m *Metrics) IncReconcile(result string) {
	if m == nil {
		return
	}
	m.reconcileResult.Inc(result)
}

func (m *Metrics) IncLockAcquire(acquired bool) {
	if m == nil {
		return
	}
	if acquired {
		m.lockAcquire.Inc("acquired")
		return
	}
	m.lockAcquire.Inc("held")
}

func (m *Metrics) ObserveAggregation(status string, messages int, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregations.Inc(status)
	m.aggregateTime.Observe(dur.Seconds(), status)
	if messages > 0 {
		m.aggregateSize.Observe(float64(messages))
	}
}

func (m *Metrics) IncJobScheduled(scheduler, jobType, status string) {
	if m == nil {
		return
	}
	m.jobScheduled.Inc(scheduler, jobType, status)
}

func (m *Metrics) ObserveJobRun(scheduler, jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(scheduler, jobType, status)
	m.jobLatency.Observe(dur.Seconds(), scheduler, jobType, status)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// StartRedisCollector samples the ephemeral store's connectivity on the scrape interval.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, p Pinger) {
	if m == nil || p == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := p.Ping(ctx); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: ephemeral store ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
