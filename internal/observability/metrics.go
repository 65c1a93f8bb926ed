package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type Metrics struct {
	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	ledgerAttempted *CounterVec
	ledgerWritten   *CounterVec
	ledgerFailed    *CounterVec

	sideEffectFailed *CounterVec
	revertChecks     *CounterVec
	eventsPublished  *CounterVec

	openReleases *GaugeVec
	openTriage   *Gauge

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init builds the process-wide registry once when enabled is true.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// NewMetrics returns an unregistered metric set. Tests use it directly.
func NewMetrics() *Metrics {
	return &Metrics{
		aggregateOps: NewCounterVec("fleet_aggregate_operations_total", "Aggregate writes by operation/status.", []string{"op", "status"}),
		aggregateLatency: NewHistogramVec(
			"fleet_aggregate_operation_duration_seconds",
			"Aggregate write latency in seconds by operation/status.",
			[]string{"op", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		aggregateConflicts: NewCounterVec("fleet_aggregate_conflicts_total", "Aggregate writes rejected as conflicts.", []string{"op"}),
		aggregateRetries:   NewCounterVec("fleet_aggregate_retryable_total", "Aggregate writes failed with retryable errors.", []string{"op"}),
		ledgerAttempted:    NewCounterVec("fleet_ledger_writes_attempted_total", "Transition ledger writes attempted by process.", []string{"process"}),
		ledgerWritten:      NewCounterVec("fleet_ledger_writes_total", "Transition ledger writes persisted by process.", []string{"process"}),
		ledgerFailed:       NewCounterVec("fleet_ledger_writes_failed_total", "Transition ledger writes failed by process.", []string{"process"}),
		sideEffectFailed:   NewCounterVec("fleet_side_effect_failures_total", "Best-effort side effects that failed by kind.", []string{"kind"}),
		revertChecks:       NewCounterVec("fleet_revert_checks_total", "Revert eligibility checks by process/outcome.", []string{"process", "outcome"}),
		eventsPublished:    NewCounterVec("fleet_events_published_total", "Domain events published by type/status.", []string{"type", "status"}),
		openReleases:       NewGaugeVec("fleet_open_releases", "Open car releases by status.", []string{"status"}),
		openTriage:         NewGauge("fleet_open_triage_entries", "Unresolved triage entries."),
		pgStats:            NewGaugeVec("fleet_db_stats", "Database connection stats.", []string{"metric"}),
		redisUp:            NewGauge("fleet_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:          NewGauge("fleet_redis_ping_seconds", "Redis ping latency in seconds."),
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

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.aggregateOps,
		m.aggregateLatency,
		m.aggregateConflicts,
		m.aggregateRetries,
		m.ledgerAttempted,
		m.ledgerWritten,
		m.ledgerFailed,
		m.sideEffectFailed,
		m.revertChecks,
		m.eventsPublished,
		m.openReleases,
		m.openTriage,
		m.pgStats,
		m.redisUp,
		m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	op = labelOrUnknown(op)
	status = labelOrUnknown(status)
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op, status)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(labelOrUnknown(op))
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(labelOrUnknown(op))
}

func (m *Metrics) IncLedgerAttempted(process string) {
	if m == nil {
		return
	}
	m.ledgerAttempted.Inc(labelOrUnknown(process))
}

func (m *Metrics) IncLedgerWritten(process string) {
	if m == nil {
		return
	}
	m.ledgerWritten.Inc(labelOrUnknown(process))
}

func (m *Metrics) IncLedgerFailed(process string) {
	if m == nil {
		return
	}
	m.ledgerFailed.Inc(labelOrUnknown(process))
}

func (m *Metrics) IncSideEffectFailure(kind string) {
	if m == nil {
		return
	}
	m.sideEffectFailed.Inc(labelOrUnknown(kind))
}

func (m *Metrics) IncRevertCheck(process string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "blocked"
	if allowed {
		outcome = "allowed"
	}
	m.revertChecks.Inc(labelOrUnknown(process), outcome)
}

func (m *Metrics) IncEventPublished(eventType, status string) {
	if m == nil {
		return
	}
	m.eventsPublished.Inc(labelOrUnknown(eventType), labelOrUnknown(status))
}

func (m *Metrics) SideEffectFailures(kind string) float64 {
	if m == nil {
		return 0
	}
	return m.sideEffectFailed.Value(labelOrUnknown(kind))
}

func (m *Metrics) LedgerFailures(process string) float64 {
	if m == nil {
		return 0
	}
	return m.ledgerFailed.Value(labelOrUnknown(process))
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
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
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// StartWorkflowCollector samples open releases and unresolved triage entries.
func (m *Metrics) StartWorkflowCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectWorkflow(ctx, log, db)
			}
		}
	}()
}

func (m *Metrics) collectWorkflow(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	for _, s := range fleet.OpenReleaseStatuses {
		m.openReleases.Set(0, s)
	}
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&fleet.CarRelease{}).
		Select("status, count(*) as count").
		Where("status IN ?", fleet.OpenReleaseStatuses).
		Group("status").
		Scan(&rows).Error; err != nil {
		if log != nil {
			log.Warn("metrics: open release query failed", "error", err)
		}
		return
	}
	for _, row := range rows {
		m.openReleases.Set(float64(row.Count), labelOrUnknown(row.Status))
	}

	var open int64
	if err := db.WithContext(ctx).
		Model(&fleet.TriageEntry{}).
		Where("resolved_at IS NULL").
		Count(&open).Error; err != nil {
		if log != nil {
			log.Warn("metrics: open triage query failed", "error", err)
		}
		return
	}
	m.openTriage.Set(float64(open))
}

func labelOrUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
