// Package otel publishes loginguard engine metrics through an OpenTelemetry
// Meter supplied by the caller.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and one cumulative Int64ObservableGauge per latency bucket. A single
// callback reads [loginguard.Engine.MetricsSnapshot] on each collection.
package otel
