package jobqueue

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and local development.
// Lists are slices with the head at index 0.
type MemoryStore struct {
	mu      sync.Mutex
	keys    map[string]time.Time
	lists   map[string][][]byte
	notify  chan struct{}
	closed  bool
	closeCh chan struct{}
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:    make(map[string]time.Time),
		lists:   make(map[string][][]byte),
		notify:  make(chan struct{}),
		closeCh: make(chan struct{}),
		now:     time.Now,
	}
}

// SetClock overrides the clock used for TTL expiry
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	now := s.now()
	if exp, ok := s.keys[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}

	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	s.keys[key] = exp
	return true, nil
}

func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	delete(s.keys, key)
	return nil
}

func (s *MemoryStore) Push(_ context.Context, list string, value []byte) error {
	return s.insert(list, value, false)
}

func (s *MemoryStore) PushHead(_ context.Context, list string, value []byte) error {
	return s.insert(list, value, true)
}

func (s *MemoryStore) insert(list string, value []byte, head bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	item := append([]byte(nil), value...)
	if head {
		s.lists[list] = append([][]byte{item}, s.lists[list]...)
	} else {
		s.lists[list] = append(s.lists[list], item)
	}

	// wake every waiter; each re-checks its list
	close(s.notify)
	s.notify = make(chan struct{})
	return nil
}

func (s *MemoryStore) BlockingPop(ctx context.Context, list string) ([]byte, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrStoreClosed
		}
		if item, ok := s.popLocked(list); ok {
			s.mu.Unlock()
			return item, nil
		}
		wait := s.notify
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closeCh:
			return nil, ErrStoreClosed
		case <-wait:
		}
	}
}

func (s *MemoryStore) TryPop(_ context.Context, list string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrStoreClosed
	}
	item, ok := s.popLocked(list)
	return item, ok, nil
}

func (s *MemoryStore) popLocked(list string) ([]byte, bool) {
	items := s.lists[list]
	if len(items) == 0 {
		return nil, false
	}
	item := items[0]
	s.lists[list] = items[1:]
	return item, true
}

func (s *MemoryStore) Len(_ context.Context, list string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	return int64(len(s.lists[list])), nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close wakes all blocked pops with ErrStoreClosed. Closing twice is a no-op.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.closeCh)
	return nil
}

// Items returns a copy of a list from head to tail
func (s *MemoryStore) Items(list string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.lists[list]))
	copy(out, s.lists[list])
	return out
}
