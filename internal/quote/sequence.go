package quote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/quotedesk/quotedesk/internal/database"
)

// DateKeyLayout is the quote number date prefix (e.g. 20250115).
const DateKeyLayout = "20060102"

var (
	// ErrLookup reports that the backing store was unreachable.
	ErrLookup = errors.New("sequence lookup failed")
	// ErrFormat reports an existing quote number whose numeric suffix does
	// not parse. Allocation must fail rather than restart at 1, which would
	// mint a duplicate.
	ErrFormat = errors.New("malformed quote number in store")
)

// SequenceStore hands out the next counter value for a date namespace.
// Implementations must be safe under concurrent invocations sharing a store.
type SequenceStore interface {
	NextCounter(ctx context.Context, dateKey string) (int, error)
}

// SequenceSeeder initializes a date's counter from quote numbers that predate
// the counter table. Optional; stores without legacy data skip it.
type SequenceSeeder interface {
	SeedFromExisting(ctx context.Context, dateKey string) error
}

// PgSequenceStore allocates counters with a single atomic upsert, so two
// concurrent callers can never observe the same value.
type PgSequenceStore struct {
	DB *database.Database
}

func NewPgSequenceStore(db *database.Database) *PgSequenceStore {
	return &PgSequenceStore{DB: db}
}

func (s *PgSequenceStore) NextCounter(ctx context.Context, dateKey string) (int, error) {
	const q = `
	INSERT INTO quote_sequences (date_key, counter)
	VALUES ($1, 1)
	ON CONFLICT (date_key) DO UPDATE SET counter = quote_sequences.counter + 1
	RETURNING counter`
	var n int
	if err := s.DB.QueryRowContext(ctx, q, dateKey).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	return n, nil
}

// SeedFromExisting initializes a date's counter from the highest quote number
// already present, so the allocator can take over a store populated by the
// old scan-and-increment scheme. No-op when the counter row already exists.
func (s *PgSequenceStore) SeedFromExisting(ctx context.Context, dateKey string) error {
	const q = `SELECT quote_no FROM quotes WHERE quote_no LIKE $1 ORDER BY quote_no DESC LIMIT 1`
	var latest string
	err := s.DB.QueryRowContext(ctx, q, dateKey+"-%").Scan(&latest)
	if err != nil {
		// No rows means a fresh date; allocation starts at 1 naturally.
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrLookup, err)
	}
	max, err := ParseSuffix(latest)
	if err != nil {
		return err
	}
	const up = `
	INSERT INTO quote_sequences (date_key, counter)
	VALUES ($1, $2)
	ON CONFLICT (date_key) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, up, dateKey, max); err != nil {
		return fmt.Errorf("%w: %v", ErrLookup, err)
	}
	return nil
}

// ParseSuffix extracts the numeric suffix of a quote number.
func ParseSuffix(quoteNo string) (int, error) {
	idx := strings.LastIndex(quoteNo, "-")
	if idx < 0 || idx == len(quoteNo)-1 {
		return 0, fmt.Errorf("%w: %q", ErrFormat, quoteNo)
	}
	n, err := strconv.Atoi(quoteNo[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrFormat, quoteNo)
	}
	return n, nil
}

// FormatQuoteNo renders DATE-NNN, widening past 999 instead of truncating.
func FormatQuoteNo(dateKey string, counter int) string {
	return fmt.Sprintf("%s-%03d", dateKey, counter)
}

// Allocator produces unique, human-readable quote numbers scoped to a date.
// The clock is caller-supplied to keep allocation testable.
type Allocator struct {
	store  SequenceStore
	seeded sync.Map
}

func NewAllocator(store SequenceStore) *Allocator {
	return &Allocator{store: store}
}

// Next returns the next quote number for the given date. Before the first
// allocation of a date, a seeding store is given the chance to pick up quote
// numbers written before the counter table existed; a seed failure (including
// ErrFormat on a malformed legacy number) fails allocation rather than
// restarting the sequence at 1.
func (a *Allocator) Next(ctx context.Context, date time.Time) (string, error) {
	key := date.Format(DateKeyLayout)
	if seeder, ok := a.store.(SequenceSeeder); ok {
		if _, done := a.seeded.Load(key); !done {
			if err := seeder.SeedFromExisting(ctx, key); err != nil {
				return "", err
			}
			a.seeded.Store(key, struct{}{})
		}
	}
	n, err := a.store.NextCounter(ctx, key)
	if err != nil {
		return "", err
	}
	return FormatQuoteNo(key, n), nil
}
