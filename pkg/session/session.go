// Package session defines the chat session store used by the chat endpoint.
package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultTitle is the title of a session that has not been asked anything yet.
const DefaultTitle = "New Chat"

// titleWords is how many words of the first question become the title.
const titleWords = 4

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidTitle = errors.New("invalid session title")
)

// Role is who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a session.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Source is set on assistant turns: "corpus" or "open-domain".
	Source string `json:"source,omitempty"`
}

// Session is a titled conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the listing form of a session.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Store persists sessions. Implementations must be safe for concurrent use
// and return copies that callers may modify.
type Store interface {
	// Create starts an empty session with a fresh ID.
	Create(ctx context.Context) (*Session, error)

	// Open returns the session with id, creating it when absent. When the
	// session has no turns yet its title is derived from question.
	Open(ctx context.Context, id, question string) (*Session, error)

	Get(ctx context.Context, id string) (*Session, error)
	AppendTurn(ctx context.Context, id string, turn Turn) error

	// List returns summaries, most recently created first.
	List(ctx context.Context) ([]Summary, error)

	Rename(ctx context.Context, id, title string) error
	Clear(ctx context.Context) error
}

// TitleFrom returns the first four words of question, or DefaultTitle when
// it has none.
func TitleFrom(question string) string {
	words := strings.Fields(question)
	if len(words) == 0 {
		return DefaultTitle
	}
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	return strings.Join(words, " ")
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	return &c
}
