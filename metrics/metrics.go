// Package metrics exposes Prometheus counters for the bridge:
//
//	dwx_poll_changes_total{stream}        file content changed and was handled
//	dwx_parse_errors_total{stream}        content changed but did not decode
//	dwx_events_total{kind}                events handed to the sink
//	dwx_commands_total{command,result}    sends by outcome (ok|timeout|canceled|error)
//	dwx_command_send_seconds{command}     time from send to slot claimed
//	dwx_command_slot_attempts             full slot scans needed per send
//	dwx_watermark_millis                  newest delivered message timestamp
//	dwx_account_equity                    equity from the latest orders file
//
// Everything registers with the default registry in init; the HTTP server
// serves it at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pollChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwx_poll_changes_total",
			Help: "File changes picked up and handled by the polling loops",
		},
		[]string{"stream"},
	)

	parseErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwx_parse_errors_total",
			Help: "Changed file contents that failed to decode",
		},
		[]string{"stream"},
	)

	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwx_events_total",
			Help: "Events delivered to the sink",
		},
		[]string{"kind"},
	)

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwx_commands_total",
			Help: "Commands sent, by result",
		},
		[]string{"command", "result"},
	)

	commandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dwx_command_send_seconds",
			Help:    "Time to claim a command slot",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"command"},
	)

	slotAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dwx_command_slot_attempts",
			Help:    "Slot scans per successful send",
			Buckets: []float64{1, 2, 5, 10, 100, 1000},
		},
	)

	watermark = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dwx_watermark_millis",
			Help: "Timestamp of the newest delivered message",
		},
	)

	equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dwx_account_equity",
			Help: "Account equity from the latest orders file",
		},
	)
)

func init() {
	prometheus.MustRegister(pollChanges, parseErrors, events)
	prometheus.MustRegister(commands, commandLatency, slotAttempts)
	prometheus.MustRegister(watermark, equity)
}

// Command results.
const (
	ResultOK       = "ok"
	ResultTimeout  = "timeout"
	ResultCanceled = "canceled"
	ResultError    = "error"
)

func IncPollChange(stream string) { pollChanges.WithLabelValues(stream).Inc() }
func IncParseError(stream string) { parseErrors.WithLabelValues(stream).Inc() }
func IncEvent(kind string)        { events.WithLabelValues(kind).Inc() }

// ObserveCommand records one send. Latency and attempts only count for
// successful sends.
func ObserveCommand(name, result string, elapsed time.Duration, attempts int) {
	commands.WithLabelValues(name, result).Inc()
	if result != ResultOK {
		return
	}
	commandLatency.WithLabelValues(name).Observe(elapsed.Seconds())
	slotAttempts.Observe(float64(attempts))
}

func SetWatermark(millis int64) { watermark.Set(float64(millis)) }
func SetEquity(v float64)       { equity.Set(v) }
