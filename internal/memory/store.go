package memory

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/unitgrid/internal/tensor"
)

var (
	// ErrMissing is returned when a key has no stored value, either because it
	// was never stored or because it has already been released.
	ErrMissing = errors.New("no stored output")
	// ErrExists is returned when a key is stored twice.
	ErrExists = errors.New("output already stored")
)

type entry struct {
	value     *tensor.Tensor
	remaining atomic.Int64
	pinned    atomic.Bool
}

// Store holds unit outputs for one execution.
type Store struct {
	entries  sync.Map // Key: unit name, Value: *entry
	pins     sync.Map // Key: unit name, Value: struct{}
	size     atomic.Int64
	released atomic.Int64
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Pin marks name as a graph output that is never released. Pins may be set
// before the value is stored.
func (s *Store) Pin(name string) {
	s.pins.Store(name, struct{}{})
	if v, ok := s.entries.Load(name); ok {
		v.(*entry).pinned.Store(true)
	}
}

// Put stores the output of name, to be read consumers times.
func (s *Store) Put(name string, value *tensor.Tensor, consumers int) error {
	e := &entry{value: value}
	e.remaining.Store(int64(consumers))
	if _, ok := s.pins.Load(name); ok {
		e.pinned.Store(true)
	}
	if _, loaded := s.entries.LoadOrStore(name, e); loaded {
		return fmt.Errorf("%q: %w", name, ErrExists)
	}
	s.size.Add(1)
	return nil
}

// Get returns the stored value without consuming it.
func (s *Store) Get(name string) (*tensor.Tensor, error) {
	v, ok := s.entries.Load(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrMissing)
	}
	return v.(*entry).value, nil
}

// Consume returns the stored value and records one read. After the last
// expected read the value is released unless pinned.
func (s *Store) Consume(name string) (*tensor.Tensor, error) {
	v, ok := s.entries.Load(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrMissing)
	}
	e := v.(*entry)
	if e.remaining.Add(-1) == 0 && !e.pinned.Load() {
		if s.entries.CompareAndDelete(name, e) {
			s.size.Add(-1)
			s.released.Add(1)
		}
	}
	return e.value, nil
}

// Has reports whether name currently has a stored value.
func (s *Store) Has(name string) bool {
	_, ok := s.entries.Load(name)
	return ok
}

// Len returns the number of values currently held.
func (s *Store) Len() int { return int(s.size.Load()) }

// Released returns how many values have been dropped after their last read.
func (s *Store) Released() int { return int(s.released.Load()) }
