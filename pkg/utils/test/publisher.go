package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/scholar/pkg/eventstream"
)

// RecordingPublisher captures published corpus events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.CorpusIngestedEvent

	// Err causes PublishCorpus to fail after recording the event.
	Err error
}

func (p *RecordingPublisher) PublishCorpus(_ context.Context, event *eventstream.CorpusIngestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

func (p *RecordingPublisher) Close() error {
	return nil
}

// Events returns a copy of the recorded events.
func (p *RecordingPublisher) Events() []*eventstream.CorpusIngestedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.CorpusIngestedEvent(nil), p.events...)
}
