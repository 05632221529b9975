package eventstream

import "errors"

// ErrNilCorpusEvent indicates a nil corpus event payload was provided to a publisher.
var ErrNilCorpusEvent = errors.New("nil corpus event")
