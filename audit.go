package loginguard

import (
	"io"

	internalaudit "github.com/MrEthical07/loginguard/internal/audit"
	"github.com/rs/zerolog"
)

// AuditEvent is a structured security event emitted by the Engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the asynchronous dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per audit event.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZerologSink writes audit events through a zerolog logger.
type ZerologSink = internalaudit.ZerologSink

// NewChannelSink returns a [ChannelSink] with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZerologSink returns a [ZerologSink] logging through logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return internalaudit.NewZerologSink(logger)
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *internalaudit.Dispatcher {
	return internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:     cfg.Enabled,
		BufferSize:  cfg.BufferSize,
		DropIfFull:  cfg.DropIfFull,
		SinkTimeout: cfg.SinkTimeout,
	}, sink)
}
