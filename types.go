package adminsession

import (
	"io"

	internalaudit "github.com/honjaopseoye/adminsession/internal/audit"
	internalmetrics "github.com/honjaopseoye/adminsession/internal/metrics"
)

// AuditEvent is one session lifecycle record delivered to an [AuditSink].
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink returns a [ChannelSink] with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a counter or histogram in a [MetricsSnapshot].
type MetricID = internalmetrics.ID

// MetricsSnapshot is a point-in-time copy of all metric values.
type MetricsSnapshot = internalmetrics.Snapshot

// Metric identifiers.
const (
	MetricBootstrapRestored   = internalmetrics.BootstrapRestored
	MetricBootstrapEmpty      = internalmetrics.BootstrapEmpty
	MetricBootstrapPurged     = internalmetrics.BootstrapPurged
	MetricBootstrapReadError  = internalmetrics.BootstrapReadError
	MetricLoginSuccess        = internalmetrics.LoginSuccess
	MetricLoginFailure        = internalmetrics.LoginFailure
	MetricLogout              = internalmetrics.Logout
	MetricInvalidated         = internalmetrics.Invalidated
	MetricExpiredOnAccess     = internalmetrics.ExpiredOnAccess
	MetricStorageWriteLatency = internalmetrics.StorageWriteLatency
)
