package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type hubSender interface {
	SendTo(subscriber string, message []byte) bool
}

// HubSink pushes events to websocket subscribers. An offline subscriber is
// not an error.
type HubSink struct {
	hub hubSender
}

func NewHubSink(hub hubSender) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Send(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	if !s.hub.SendTo(ev.Subscriber, b) {
		return fmt.Errorf("hub rejected %s event for %s", ev.Type, ev.Subscriber)
	}
	return nil
}

type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Send(ctx context.Context, ev Event) error {
	s.log.Info("[Notify] event",
		zap.String("type", ev.Type),
		zap.String("subscriber", ev.Subscriber),
		zap.String("match_id", ev.MatchID),
		zap.String("job_id", ev.JobID),
		zap.Float64("match_score", ev.Score),
	)
	return nil
}

// MultiSink sends to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
