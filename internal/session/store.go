package session

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CookieName carries the session ID.
const CookieName = "ckdrisk_session"

// Store keeps the view of each browser session in a bounded LRU cache.
// Unknown or evicted sessions read as CollectingInput.
type Store struct {
	views *lru.Cache[string, View]
}

func NewStore(capacity int) (*Store, error) {
	cache, err := lru.New[string, View](capacity)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Store{views: cache}, nil
}

// NewID returns a fresh random session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an ID issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Store) Get(id string) View {
	if v, ok := s.views.Get(id); ok {
		return v
	}
	return CollectingInput{}
}

func (s *Store) Set(id string, v View) {
	if _, ok := v.(CollectingInput); ok {
		s.views.Remove(id)
		return
	}
	s.views.Add(id, v)
}

func (s *Store) Len() int {
	return s.views.Len()
}
