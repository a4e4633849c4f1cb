package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 应用自定义指标
// 使用独立 Registry，便于测试中重复创建
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	RoutineConflicts  prometheus.Counter
	MarksSubmitted    prometheus.Counter
	ResultCacheLookup *prometheus.CounterVec
	OverdueSwept      prometheus.Counter
}

// New 创建并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "school",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "school",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RoutineConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "school",
			Name:      "routine_teacher_conflicts_total",
			Help:      "Routine assignments rejected because the teacher was already booked.",
		}),
		MarksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "school",
			Name:      "marks_submitted_total",
			Help:      "Mark rows written through batch submission.",
		}),
		ResultCacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "school",
			Name:      "result_cache_lookups_total",
			Help:      "Result totals cache lookups by outcome.",
		}, []string{"outcome"}),
		OverdueSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "school",
			Name:      "fees_marked_overdue_total",
			Help:      "Student fees moved from PENDING to OVERDUE by the sweep job.",
		}),
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.RoutineConflicts,
		m.MarksSubmitted,
		m.ResultCacheLookup,
		m.OverdueSwept,
	)
	return m
}
