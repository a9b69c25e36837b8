package prometheus

import (
	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/metrics/export/internaldefs"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Collector adapts engine snapshots to a client_golang registry. Each scrape
// takes one snapshot; values are emitted as const metrics.
type Collector struct {
	source     metricsSource
	counters   []collectedCounter
	histograms []collectedHistogram
	dropped    *prom.Desc
}

type collectedCounter struct {
	id   loginguard.MetricID
	desc *prom.Desc
}

type collectedHistogram struct {
	id   loginguard.MetricID
	desc *prom.Desc
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector creates a Collector reading from engine.
func NewCollector(engine *loginguard.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource creates a Collector from any snapshot source.
func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]collectedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]collectedHistogram, 0, len(internaldefs.HistogramDefs)),
		dropped:    prom.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, collectedCounter{
			id:   def.ID,
			desc: prom.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, collectedHistogram{
			id:   def.ID,
			desc: prom.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, cc := range c.counters {
		ch <- cc.desc
	}
	for _, h := range c.histograms {
		ch <- h.desc
	}
	ch <- c.dropped
}

func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	for _, cc := range c.counters {
		ch <- prom.MustNewConstMetric(cc.desc, prom.CounterValue, float64(snapshot.Counters[cc.id]))
	}

	for _, h := range c.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramBounds))
		for i, bound := range internaldefs.HistogramBounds {
			buckets[bound] = cumulative[i]
		}
		ch <- prom.MustNewConstHistogram(h.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prom.MustNewConstMetric(c.dropped, prom.CounterValue, float64(c.source.AuditDropped()))
}
