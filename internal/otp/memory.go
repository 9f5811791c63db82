package otp

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. Each key has its own lock,
// so operations on different keys never wait on each other.
type MemoryStore struct {
	opts  Options
	slots sync.Map // key -> *slot
}

type slot struct {
	mu    sync.Mutex
	entry *Entry
	// dead slots have been unlinked from the map by a reaper and must not
	// receive new entries.
	dead bool
}

// NewMemoryStore builds an in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{opts: opts.withDefaults()}
}

// lockSlot returns the live slot for key, locked, creating it if needed.
func (s *MemoryStore) lockSlot(key string) *slot {
	for {
		v, _ := s.slots.LoadOrStore(key, &slot{})
		sl := v.(*slot)
		sl.mu.Lock()
		if !sl.dead {
			return sl
		}
		sl.mu.Unlock()
	}
}

// lockExisting is lockSlot without creation; it returns nil when the key
// has no slot.
func (s *MemoryStore) lockExisting(key string) *slot {
	for {
		v, ok := s.slots.Load(key)
		if !ok {
			return nil
		}
		sl := v.(*slot)
		sl.mu.Lock()
		if !sl.dead {
			return sl
		}
		sl.mu.Unlock()
	}
}

// reap unlinks a locked slot; the caller still holds sl.mu.
func (s *MemoryStore) reap(key string, sl *slot) {
	sl.dead = true
	sl.entry = nil
	s.slots.CompareAndDelete(key, sl)
}

// Issue generates a fresh code for key, replacing any previous entry.
func (s *MemoryStore) Issue(ctx context.Context, key string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	code, err := s.opts.Generate(s.opts.Length)
	if err != nil {
		return Entry{}, err
	}

	sl := s.lockSlot(key)
	defer sl.mu.Unlock()

	now := s.opts.Now()
	entry := Entry{
		Key:       key,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.TTL),
	}
	sl.entry = &entry
	return entry, nil
}

// Verify checks code against the live entry for key and consumes it on a
// match. Expired entries are reaped on access.
func (s *MemoryStore) Verify(ctx context.Context, key, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sl := s.lockExisting(key)
	if sl == nil {
		return ErrNotFound
	}
	defer sl.mu.Unlock()

	e := sl.entry
	if e == nil {
		return ErrNotFound
	}
	if s.opts.Now().After(e.ExpiresAt) {
		s.reap(key, sl)
		return ErrExpired
	}
	if e.Consumed {
		return ErrAlreadyConsumed
	}
	if s.opts.MaxAttempts > 0 && e.Attempts >= s.opts.MaxAttempts {
		return ErrAttemptsExceeded
	}
	if !codesEqual(e.Code, code) {
		e.Attempts++
		return ErrMismatch
	}
	e.Consumed = true
	return nil
}

// Sweep removes expired entries and returns how many were reaped.
func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.opts.Now()
	reaped := 0
	var err error
	s.slots.Range(func(k, v any) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		sl := v.(*slot)
		sl.mu.Lock()
		if !sl.dead && (sl.entry == nil || now.After(sl.entry.ExpiresAt)) {
			s.reap(k.(string), sl)
			reaped++
		}
		sl.mu.Unlock()
		return true
	})
	return reaped, err
}

// Len returns the number of keys currently held.
func (s *MemoryStore) Len() int {
	n := 0
	s.slots.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
