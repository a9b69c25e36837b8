// Package prometheus exports loginguard engine metrics to Prometheus.
//
// [PrometheusExporter] renders the text exposition format directly and
// never touches a registry. [Collector] implements the client_golang
// Collector interface for services that already serve promhttp.
//
// Counter names are loginguard_*_total; the only histogram is
// loginguard_login_latency_seconds.
package prometheus
