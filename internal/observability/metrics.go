package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/actionsummary-backend/internal/platform/envutil"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

// Metrics is the process-wide registry exposed in Prometheus text format.
// Every method is a no-op on a nil receiver.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	runs          *CounterVec
	workerLatency *HistogramVec

	cleanupTasks   *CounterVec
	cleanupReports *Counter

	searchOps *HistogramVec

	dbStats *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled", "addr", envutil.String("METRICS_ADDR", ""))
		}
	})
	return instance
}

// NewMetrics builds an unregistered registry; Init is the process entry point.
func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("as_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"as_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("as_api_inflight_requests", "In-flight API requests."),
		runs:        NewCounterVec("as_action_summary_runs_total", "Action summary run attempts by outcome.", []string{"outcome"}),
		workerLatency: NewHistogramVec(
			"as_analysis_worker_duration_seconds",
			"Analysis worker call latency in seconds by outcome.",
			[]string{"outcome"},
			[]float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		),
		cleanupTasks:   NewCounterVec("as_cleanup_tasks_total", "Cleanup deletions by target and result.", []string{"target", "result"}),
		cleanupReports: NewCounter("as_cleanup_reports_total", "Cleanup plans executed."),
		searchOps: NewHistogramVec(
			"as_search_index_operation_duration_seconds",
			"Search index operation latency by provider/operation/status.",
			[]string{"provider", "operation", "status"},
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		dbStats: NewGaugeVec("as_db_pool", "Database pool stats.", []string{"stat"}),
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
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.runs,
		m.workerLatency,
		m.cleanupTasks,
		m.cleanupReports,
		m.searchOps,
		m.dbStats,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
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

// ObserveRun records one worker call. outcome is "completed" or the apierr code of the failure.
func (m *Metrics) ObserveRun(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.runs.Inc(outcome)
	m.workerLatency.Observe(dur.Seconds(), outcome)
}

// ObserveCleanup records per-target deletion results of one executed plan.
func (m *Metrics) ObserveCleanup(target string, succeeded, failed, skipped int) {
	if m == nil {
		return
	}
	if succeeded > 0 {
		m.cleanupTasks.Add(float64(succeeded), target, "succeeded")
	}
	if failed > 0 {
		m.cleanupTasks.Add(float64(failed), target, "failed")
	}
	if skipped > 0 {
		m.cleanupTasks.Add(float64(skipped), target, "skipped")
	}
}

func (m *Metrics) ObserveCleanupReport() {
	if m == nil {
		return
	}
	m.cleanupReports.Inc()
}

func (m *Metrics) ObserveSearchOperation(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.searchOps.Observe(dur.Seconds(), provider, operation, status)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: database stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}
