package market

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of closed candles kept per symbol and timeframe.
const DefaultCapacity = 500

// book holds the candle history for one (symbol, timeframe) pair.
// Closed candles are append-only; the forming candle is replaced in place
// until a record flagged closed arrives for its window.
type book struct {
	mu       sync.Mutex
	closed   []Candle
	forming  *Candle
	capacity int
}

// Store keeps bounded candle buffers per symbol and timeframe.
// Locking is sharded per (symbol, timeframe) so concurrent evaluations of
// distinct symbols never contend.
type Store struct {
	mu       sync.RWMutex
	books    map[string]*book
	capacity int
}

// NewStore creates a candle store. capacity <= 0 selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		books:    make(map[string]*book),
		capacity: capacity,
	}
}

func bookKey(symbol, timeframe string) string {
	return symbol + "|" + timeframe
}

func (s *Store) book(symbol, timeframe string) *book {
	key := bookKey(symbol, timeframe)

	s.mu.RLock()
	b, ok := s.books[key]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.books[key]; ok {
		return b
	}
	b = &book{capacity: s.capacity}
	s.books[key] = b
	return b
}

// Apply ingests a candle record. Records sharing an open time with a stored
// candle replace it (last-write-wins); records older than the retained window
// are dropped. A record flagged closed seals its window; an open record
// becomes or updates the forming candle.
func (s *Store) Apply(c Candle) {
	b := s.book(c.Symbol, c.Timeframe)
	b.mu.Lock()
	defer b.mu.Unlock()

	if !c.Closed {
		// Ignore stale forming updates from out-of-order delivery.
		if n := len(b.closed); n > 0 && !c.OpenTime.After(b.closed[n-1].OpenTime) {
			return
		}
		cc := c
		b.forming = &cc
		return
	}

	// Replace in place when the open time is already stored.
	for i := len(b.closed) - 1; i >= 0; i-- {
		if b.closed[i].OpenTime.Equal(c.OpenTime) {
			b.closed[i] = c
			return
		}
		if b.closed[i].OpenTime.Before(c.OpenTime) {
			break
		}
	}

	n := len(b.closed)
	switch {
	case n == 0 || c.OpenTime.After(b.closed[n-1].OpenTime):
		b.closed = append(b.closed, c)
	case c.OpenTime.Before(b.closed[0].OpenTime):
		// Older than everything retained.
		return
	default:
		// Small out-of-order gap: insert at the right position.
		i := n - 1
		for i > 0 && b.closed[i-1].OpenTime.After(c.OpenTime) {
			i--
		}
		b.closed = append(b.closed, Candle{})
		copy(b.closed[i+1:], b.closed[i:])
		b.closed[i] = c
	}

	if b.forming != nil && !b.forming.OpenTime.After(c.OpenTime) {
		b.forming = nil
	}

	if len(b.closed) > b.capacity {
		over := len(b.closed) - b.capacity
		b.closed = append(b.closed[:0], b.closed[over:]...)
	}
}

// Closed returns a copy of the closed candles for a symbol and timeframe,
// oldest first.
func (s *Store) Closed(symbol, timeframe string) []Candle {
	b := s.book(symbol, timeframe)
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Candle, len(b.closed))
	copy(out, b.closed)
	return out
}

// Forming returns the current forming candle, if any.
func (s *Store) Forming(symbol, timeframe string) (Candle, bool) {
	b := s.book(symbol, timeframe)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.forming == nil {
		return Candle{}, false
	}
	return *b.forming, true
}

// LastPrice returns the most recent price: the forming candle's close when
// present, otherwise the last closed candle's close.
func (s *Store) LastPrice(symbol, timeframe string) (float64, bool) {
	b := s.book(symbol, timeframe)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.forming != nil {
		return b.forming.Close, true
	}
	if n := len(b.closed); n > 0 {
		return b.closed[n-1].Close, true
	}
	return 0, false
}

// Window returns the open time of the current candle window: the forming
// candle's open time when present, otherwise the last closed candle's.
func (s *Store) Window(symbol, timeframe string) (time.Time, bool) {
	b := s.book(symbol, timeframe)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.forming != nil {
		return b.forming.OpenTime, true
	}
	if n := len(b.closed); n > 0 {
		return b.closed[n-1].OpenTime, true
	}
	return time.Time{}, false
}

// Len returns the number of closed candles stored.
func (s *Store) Len(symbol, timeframe string) int {
	b := s.book(symbol, timeframe)
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.closed)
}

// HasSufficientData reports whether at least min closed candles are stored.
func (s *Store) HasSufficientData(symbol, timeframe string, min int) bool {
	return s.Len(symbol, timeframe) >= min
}

// Drop removes all candle history for a symbol across every timeframe.
func (s *Store) Drop(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.books {
		if len(key) > len(symbol) && key[:len(symbol)] == symbol && key[len(symbol)] == '|' {
			delete(s.books, key)
		}
	}
}
