package nop

import (
	"context"

	"github.com/papercomputeco/scholar/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishCorpus validates input and otherwise does nothing.
func (p *Publisher) PublishCorpus(_ context.Context, event *eventstream.CorpusIngestedEvent) error {
	if event == nil {
		return eventstream.ErrNilCorpusEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
