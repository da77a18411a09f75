// Package eventstreamutils constructs eventstream publishers from
// configuration.
package eventstreamutils

import (
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/eventstream"
	"github.com/webtechie/docschat/pkg/eventstream/kafka"
	"github.com/webtechie/docschat/pkg/eventstream/nop"
)

// NewPublisherOpts configures publisher construction.
type NewPublisherOpts struct {
	// Provider selects the backend: "nop" (default) or "kafka".
	Provider string

	// Brokers lists Kafka bootstrap addresses. Kafka only.
	Brokers []string

	// Topic is the Kafka topic answer events are written to.
	Topic string

	Logger *zap.Logger
}

// NewPublisher creates a publisher for the configured backend. An empty or
// unknown provider, or a kafka provider without brokers, falls back to the
// no-op publisher: event emission is advisory and must never block answers.
func NewPublisher(opts NewPublisherOpts) eventstream.Publisher {
	switch opts.Provider {
	case "kafka":
		if len(opts.Brokers) == 0 {
			return nop.NewPublisher()
		}
		return kafka.NewPublisher(opts.Brokers, opts.Topic, opts.Logger)
	default:
		return nop.NewPublisher()
	}
}
