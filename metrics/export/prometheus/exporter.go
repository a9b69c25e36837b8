package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() loginguard.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition
// format without touching any registry.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates an exporter that reads from engine.
func NewPrometheusExporter(engine *loginguard.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates an exporter from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves the rendered metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It is empty when metrics are disabled
// and nothing was dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	fams := p.families()
	if len(fams) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)
	for _, f := range fams {
		writeFamily(&b, f)
	}
	return b.String()
}

// sample is one exposition line. le is set only for histogram buckets.
type sample struct {
	suffix string
	le     string
	value  uint64
}

type family struct {
	name    string
	help    string
	kind    string
	samples []sample
}

// families collects the snapshot in exposition order: counters, histograms,
// then the audit drop counter.
func (p *PrometheusExporter) families() []family {
	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return nil
	}

	out := make([]family, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)+1)
	for _, def := range internaldefs.CounterDefs {
		out = append(out, counterFamily(def.Name, def.Help, snapshot.Counters[def.ID]))
	}
	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		out = append(out, histogramFamily(def.Name, def.Help,
			internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))))
	}
	return append(out, counterFamily(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, dropped))
}

func counterFamily(name, help string, value uint64) family {
	return family{name: name, help: help, kind: "counter", samples: []sample{{value: value}}}
}

func histogramFamily(name, help string, cumulative [internaldefs.BucketCount]uint64) family {
	samples := make([]sample, 0, len(cumulative)+2)
	for i, le := range internaldefs.HistogramBoundLabels {
		samples = append(samples, sample{suffix: "_bucket", le: le, value: cumulative[i]})
	}
	// Snapshots carry bucket counts only, so the sum is always zero.
	samples = append(samples,
		sample{suffix: "_count", value: cumulative[len(cumulative)-1]},
		sample{suffix: "_sum"},
	)
	return family{name: name, help: help, kind: "histogram", samples: samples}
}

func writeFamily(b *strings.Builder, f family) {
	b.WriteString("# HELP " + f.name + " " + escapeHelp(f.help) + "\n")
	b.WriteString("# TYPE " + f.name + " " + f.kind + "\n")
	for _, s := range f.samples {
		b.WriteString(f.name)
		b.WriteString(s.suffix)
		if s.le != "" {
			b.WriteString(`{le="` + s.le + `"}`)
		}
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(s.value, 10))
		b.WriteByte('\n')
	}
}

func escapeHelp(help string) string {
	return helpEscaper.Replace(help)
}

var helpEscaper = strings.NewReplacer("\\", "\\\\", "\n", "\\n")
