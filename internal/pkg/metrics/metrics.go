package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classjournal"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	JournalOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "journal_operations_total", Help: "Journal mutations by outcome",
	}, []string{"op", "result"})
	FeedReads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "feed_reads_total", Help: "Feed and single journal reads by requester role",
	}, []string{"role"})
	NotificationsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "notifications_dispatched_total", Help: "Notification deliveries by channel",
	}, []string{"channel", "result"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, JournalOperations, FeedReads, NotificationsDispatched, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// ObserveJournalOp counts a journal mutation as "ok" or "error"
func ObserveJournalOp(op string, err error) {
	JournalOperations.WithLabelValues(op, result(err)).Inc()
}

// ObserveDispatch counts one delivery attempt on a channel
func ObserveDispatch(channel string, err error) {
	NotificationsDispatched.WithLabelValues(channel, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
