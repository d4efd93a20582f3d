package event

import (
	"go.uber.org/zap"
)

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink backed by the given logger. A nil logger
// disables output.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) RecordOrigination(e Origination) {
	s.logger.Info("message originated",
		zap.String("process", e.Process),
		zap.Stringer("msg_id", e.ID),
		zap.String("content", e.Content),
		zap.Int64("clock", e.Clock),
	)
}

func (s *LogSink) RecordDelivery(e Delivery) {
	s.logger.Info("message delivered",
		zap.String("process", e.Process),
		zap.Stringer("msg_id", e.ID),
		zap.String("content", e.Content),
		zap.String("origin", e.Origin),
		zap.Int64("msg_timestamp", e.Timestamp),
		zap.Int64("clock", e.Clock),
	)
}
