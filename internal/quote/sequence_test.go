package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memSequenceStore struct {
	mu       sync.Mutex
	counters map[string]int
	err      error
}

func newMemSequenceStore() *memSequenceStore {
	return &memSequenceStore{counters: map[string]int{}}
}

func (m *memSequenceStore) NextCounter(ctx context.Context, dateKey string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counters[dateKey]++
	return m.counters[dateKey], nil
}

// seedingStore is a memSequenceStore that also carries legacy quote numbers
// predating the counter table.
type seedingStore struct {
	*memSequenceStore
	legacyMax map[string]int
	seedErr   error
	seeds     int
}

func (s *seedingStore) SeedFromExisting(ctx context.Context, dateKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds++
	if s.seedErr != nil {
		return s.seedErr
	}
	if _, ok := s.counters[dateKey]; !ok {
		if max, ok := s.legacyMax[dateKey]; ok {
			s.counters[dateKey] = max
		}
	}
	return nil
}

func TestAllocatorSeedsFromLegacyData(t *testing.T) {
	ctx := context.Background()
	store := &seedingStore{
		memSequenceStore: newMemSequenceStore(),
		legacyMax:        map[string]int{"20250115": 7},
	}
	alloc := NewAllocator(store)
	date := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	no, err := alloc.Next(ctx, date)
	if err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	if no != "20250115-008" {
		t.Fatalf("allocation must continue past legacy numbers, got %s", no)
	}

	no, err = alloc.Next(ctx, date)
	if err != nil {
		t.Fatalf("second allocation: %v", err)
	}
	if no != "20250115-009" {
		t.Fatalf("expected 20250115-009, got %s", no)
	}
	if store.seeds != 1 {
		t.Fatalf("date must be seeded exactly once, got %d", store.seeds)
	}
}

func TestAllocatorFailsOnMalformedLegacyNumber(t *testing.T) {
	ctx := context.Background()
	store := &seedingStore{memSequenceStore: newMemSequenceStore()}
	store.seedErr = ErrFormat
	alloc := NewAllocator(store)
	date := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	if _, err := alloc.Next(ctx, date); !errors.Is(err, ErrFormat) {
		t.Fatalf("malformed legacy data must fail allocation, got %v", err)
	}

	// the failed seed is not cached; a later attempt tries again
	if _, err := alloc.Next(ctx, date); !errors.Is(err, ErrFormat) {
		t.Fatal("seed failure must persist until the store is repaired")
	}
	if store.seeds != 2 {
		t.Fatalf("expected a seed attempt per allocation, got %d", store.seeds)
	}
}

func TestAllocatorSequential(t *testing.T) {
	ctx := context.Background()
	alloc := NewAllocator(newMemSequenceStore())
	date := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	first, err := alloc.Next(ctx, date)
	if err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	if first != "20250115-001" {
		t.Fatalf("fresh date should start at 001, got %s", first)
	}
	second, err := alloc.Next(ctx, date)
	if err != nil {
		t.Fatalf("second allocation: %v", err)
	}
	if second != "20250115-002" {
		t.Fatalf("expected 20250115-002, got %s", second)
	}

	// a different date starts its own namespace
	other, _ := alloc.Next(ctx, date.AddDate(0, 0, 1))
	if other != "20250116-001" {
		t.Fatalf("expected 20250116-001, got %s", other)
	}
}

func TestAllocatorConcurrentDistinct(t *testing.T) {
	ctx := context.Background()
	alloc := NewAllocator(newMemSequenceStore())
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	const n = 100
	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			no, err := alloc.Next(ctx, date)
			if err != nil {
				t.Errorf("allocation failed: %v", err)
				return
			}
			results <- no
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for no := range results {
		if seen[no] {
			t.Fatalf("duplicate quote number allocated: %s", no)
		}
		seen[no] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct numbers, got %d", n, len(seen))
	}
}

func TestAllocatorLookupFailure(t *testing.T) {
	store := newMemSequenceStore()
	store.err = ErrLookup
	alloc := NewAllocator(store)
	if _, err := alloc.Next(context.Background(), time.Now()); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected ErrLookup, got %v", err)
	}
}

func TestParseSuffix(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"20250115-001", 1, false},
		{"20250115-999", 999, false},
		{"20250115-1000", 1000, false},
		{"20250115-", 0, true},
		{"20250115-abc", 0, true},
		{"garbage", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSuffix(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrFormat) {
				t.Errorf("ParseSuffix(%q): expected ErrFormat, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSuffix(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSuffix(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatQuoteNoWidens(t *testing.T) {
	if got := FormatQuoteNo("20250115", 7); got != "20250115-007" {
		t.Errorf("got %s", got)
	}
	if got := FormatQuoteNo("20250115", 1234); got != "20250115-1234" {
		t.Errorf("counter past 999 should widen, got %s", got)
	}
}
