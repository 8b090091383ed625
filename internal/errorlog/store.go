package errorlog

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// KeyProcessForm is the only key the webhook writes to.
const KeyProcessForm = "processFormData"

// Sink receives a copy of every recorded message.
type Sink interface {
	Record(ctx context.Context, key, message string) error
}

// Store keeps the most recent error message per key for the lifetime of
// the process. Entries are overwritten, never evicted.
type Store struct {
	mu      sync.Mutex
	entries map[string]string
	sinks   []Sink
	logger  *zap.Logger
}

func NewStore(logger *zap.Logger, sinks ...Sink) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries: make(map[string]string),
		sinks:   sinks,
		logger:  logger,
	}
}

// Record inserts or overwrites the message stored under key.
func (s *Store) Record(ctx context.Context, key, message string) {
	s.mu.Lock()
	s.entries[key] = message
	s.mu.Unlock()

	s.logger.Error("errorHandler",
		zap.String("key", key),
		zap.String("message", message))

	for _, sink := range s.sinks {
		if err := sink.Record(ctx, key, message); err != nil {
			s.logger.Warn("Failed to mirror error log entry",
				zap.String("key", key),
				zap.Error(err))
		}
	}
}

// Get returns the stored message for key. It is not exposed over HTTP.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.entries[key]
	return msg, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
