package pipeline

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MacroScout/macroscout/pkg/natsutil"
)

// SubjectRecommendation is the NATS subject completed recommendations are
// published on.
const SubjectRecommendation = "engine.recommendation"

// Event summarizes one completed recommendation for downstream consumers.
type Event struct {
	Food               string    `json:"food"`
	Recommended        bool      `json:"recommended"`
	Confidence         float64   `json:"confidence"`
	VerificationStatus string    `json:"verification_status,omitempty"`
	DurationSeconds    float64   `json:"duration_seconds"`
	At                 time.Time `json:"at"`
}

// EventPublisher delivers a recommendation event.
type EventPublisher func(ctx context.Context, ev Event) error

// NATSPublisher publishes events over the given connection.
func NATSPublisher(nc *nats.Conn) EventPublisher {
	return func(ctx context.Context, ev Event) error {
		return natsutil.Publish(ctx, nc, SubjectRecommendation, ev)
	}
}

// publishEvent emits an event for resp; failures are logged, never surfaced.
func (s *Service) publishEvent(ctx context.Context, resp Response) {
	if s.publish == nil {
		return
	}
	ev := Event{
		Food:            resp.Food,
		Recommended:     resp.Classification.Recommended,
		Confidence:      resp.Classification.Confidence,
		DurationSeconds: resp.Timings["total"],
		At:              s.now(),
	}
	if resp.Verification != nil {
		ev.VerificationStatus = string(resp.Verification.Status)
	}
	if err := s.publish(ctx, ev); err != nil {
		s.logger.Warn("pipeline: event publish failed", "error", err)
	}
}
