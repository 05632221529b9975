// Package inmemory is a process-local session store backed by go-cache.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/session"
)

const (
	DefaultTTL             = 24 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// Config configures the store. A negative TTL keeps sessions forever.
type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Store is an in-memory session.Store.
type Store struct {
	// mu serializes read-modify-write cycles; the cache itself only
	// guards single operations.
	mu     sync.Mutex
	cache  *cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

var _ session.Store = (*Store)(nil)

// NewStore creates an in-memory store.
func NewStore(cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	ttl := cfg.TTL
	switch {
	case ttl == 0:
		ttl = DefaultTTL
	case ttl < 0:
		ttl = cache.NoExpiration
	}

	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = DefaultCleanupInterval
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Store{
		cache:  cache.New(ttl, cleanup),
		logger: logger,
		now:    now,
	}
}

func (s *Store) Create(_ context.Context) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.newSession(uuid.NewString())
	s.save(sess)
	s.logger.Debug("created session", zap.String("session_id", sess.ID))
	return sess.Clone(), nil
}

func (s *Store) Open(_ context.Context, id, question string) (*session.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty id", session.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var sess *session.Session
	if stored, ok := s.load(id); ok {
		sess = stored.Clone()
	} else {
		sess = s.newSession(id)
	}
	if len(sess.Turns) == 0 {
		sess.Title = session.TitleFrom(question)
	}
	sess.UpdatedAt = s.now()
	s.save(sess)
	return sess.Clone(), nil
}

func (s *Store) Get(_ context.Context, id string) (*session.Session, error) {
	sess, ok := s.load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	return sess.Clone(), nil
}

func (s *Store) AppendTurn(_ context.Context, id string, turn session.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.load(id)
	if !ok {
		return fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}

	next := sess.Clone()
	next.Turns = append(next.Turns, turn)
	next.UpdatedAt = s.now()
	s.save(next)
	return nil
}

func (s *Store) List(_ context.Context) ([]session.Summary, error) {
	items := s.cache.Items()
	all := make([]*session.Session, 0, len(items))
	for _, item := range items {
		if sess, ok := item.Object.(*session.Session); ok {
			all = append(all, sess)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	out := make([]session.Summary, len(all))
	for i, sess := range all {
		out[i] = session.Summary{ID: sess.ID, Title: sess.Title}
	}
	return out, nil
}

func (s *Store) Rename(_ context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return session.ErrInvalidTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.load(id)
	if !ok {
		return fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}

	next := sess.Clone()
	next.Title = title
	next.UpdatedAt = s.now()
	s.save(next)
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.cache.ItemCount()
	s.cache.Flush()
	s.logger.Debug("cleared sessions", zap.Int("count", n))
	return nil
}

func (s *Store) newSession(id string) *session.Session {
	now := s.now()
	return &session.Session{
		ID:        id,
		Title:     session.DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Store) load(id string) (*session.Session, bool) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	sess, ok := x.(*session.Session)
	return sess, ok
}

// save stores sess under its ID. Stored values are never mutated in place.
func (s *Store) save(sess *session.Session) {
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
}
