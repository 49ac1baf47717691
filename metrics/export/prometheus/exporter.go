package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/honjaopseoye/adminsession"
	"github.com/honjaopseoye/adminsession/metrics/export/internaldefs"
)

// Source provides the values to export.  [*adminsession.Manager] implements
// it.
type Source interface {
	MetricsSnapshot() adminsession.MetricsSnapshot
	AuditDropped() uint64
	AuditFailed() uint64
}

// PrometheusExporter renders a [Source] as Prometheus text.
type PrometheusExporter struct {
	source Source
}

// NewPrometheusExporter returns an exporter reading from m.
func NewPrometheusExporter(m *adminsession.Manager) *PrometheusExporter {
	return &PrometheusExporter{source: m}
}

// NewPrometheusExporterFromSource returns an exporter reading from source.
func NewPrometheusExporterFromSource(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the rendered metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render returns the current metrics.  It returns an empty string when metrics
// are disabled and the audit dispatcher has lost nothing.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped, failed := p.source.AuditDropped(), p.source.AuditFailed()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 && failed == 0 {
		return ""
	}

	b := &strings.Builder{}
	b.Grow(2048)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(b, def.Name, def.Help, snap.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID]))
		writeHistogram(b, def.Name, def.Help, buckets)
	}

	writeCounter(b, internaldefs.AuditDropped.Name, internaldefs.AuditDropped.Help, dropped)
	writeCounter(b, internaldefs.AuditFailed.Name, internaldefs.AuditFailed.Help, failed)

	return b.String()
}

func writeHeader(w io.Writer, name, help, typ string) {
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, typ)
}

func writeCounter(w io.Writer, name, help string, value uint64) {
	writeHeader(w, name, help, "counter")
	_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
}

func writeHistogram(w io.Writer, name, help string, cumulative [8]uint64) {
	writeHeader(w, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		_, _ = fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", name, le, cumulative[i])
	}

	// Snapshots carry bucket counts only, so the sum is always zero.
	_, _ = fmt.Fprintf(w, "%s_count %d\n%s_sum 0\n", name, cumulative[len(cumulative)-1], name)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string {
	return helpEscaper.Replace(help)
}
