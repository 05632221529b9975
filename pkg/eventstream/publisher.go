package eventstream

import "context"

// Publisher publishes corpus events to an event stream backend.
type Publisher interface {
	PublishCorpus(ctx context.Context, event *CorpusIngestedEvent) error
	Close() error
}
