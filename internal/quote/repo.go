package quote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/quotedesk/quotedesk/internal/apierr"
	"github.com/quotedesk/quotedesk/internal/database"
)

// Repo persists quotes and their line items.
type Repo struct {
	db    *database.Database
	alloc *Allocator
	now   func() time.Time
}

func NewRepo(db *database.Database, alloc *Allocator) *Repo {
	return &Repo{db: db, alloc: alloc, now: time.Now}
}

// CreateInput is what callers supply; number, total and timestamps are
// derived here.
type CreateInput struct {
	CustomerName string
	Status       string
	Items        []QuoteItem
}

// Create allocates a quote number, computes the total and stores the quote
// with its items in one transaction. A quote_no collision with rows written
// outside the allocator gets a fresh number and a bounded retry.
func (r *Repo) Create(ctx context.Context, in *CreateInput) (*Quote, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		q, err := r.createOnce(ctx, in)
		if err == nil {
			return q, nil
		}
		lastErr = err
		ae := apierr.From(err)
		if ae.Code != apierr.CodeDuplicate {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *Repo) createOnce(ctx context.Context, in *CreateInput) (*Quote, error) {
	if in.Status == "" {
		in.Status = StatusDraft
	}
	now := r.now().UTC()

	quoteNo, err := r.alloc.Next(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("allocate quote number: %w", err)
	}

	lines := make([]LineItem, len(in.Items))
	for i, it := range in.Items {
		lines[i] = LineItem{UnitPrice: it.UnitPrice, Quantity: float64(it.Quantity)}
	}
	total, _, err := Total(lines)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInvalidInput, err.Error(), err)
	}

	q := &Quote{
		ID:           uuid.New(),
		QuoteNo:      quoteNo,
		CustomerName: in.CustomerName,
		Status:       in.Status,
		TotalPrice:   total,
		Items:        in.Items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insQuote = `
	INSERT INTO quotes (id, quote_no, customer_name, status, total_price, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insQuote, q.ID, q.QuoteNo, q.CustomerName, q.Status, q.TotalPrice, q.CreatedAt, q.UpdatedAt); err != nil {
		return nil, mapPgError("insert quote", err)
	}

	const insItem = `
	INSERT INTO quote_items (id, quote_id, name, unit_price, quantity, position)
	VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range q.Items {
		it := &q.Items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.Position = i
		if _, err := tx.ExecContext(ctx, insItem, it.ID, q.ID, it.Name, it.UnitPrice, it.Quantity, it.Position); err != nil {
			return nil, mapPgError("insert quote item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit quote: %w", err)
	}
	return q, nil
}

// Get loads a quote with its items.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*Quote, error) {
	const q = `
	SELECT id, quote_no, customer_name, status, total_price, created_at, updated_at
	FROM quotes WHERE id = $1`
	var out Quote
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&out.ID, &out.QuoteNo, &out.CustomerName, &out.Status, &out.TotalPrice, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.New(apierr.CodeNotFound, "quote not found")
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}

	const qi = `
	SELECT id, name, unit_price, quantity, position
	FROM quote_items WHERE quote_id = $1 ORDER BY position ASC`
	rows, err := r.db.QueryContext(ctx, qi, id)
	if err != nil {
		return nil, fmt.Errorf("get quote items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it QuoteItem
		if err := rows.Scan(&it.ID, &it.Name, &it.UnitPrice, &it.Quantity, &it.Position); err != nil {
			return nil, fmt.Errorf("scan quote item: %w", err)
		}
		out.Items = append(out.Items, it)
	}
	return &out, rows.Err()
}

// List returns quotes matching the filter, newest first, without items.
func (r *Repo) List(ctx context.Context, filter *ListFilter) ([]Quote, error) {
	q := `SELECT id, quote_no, customer_name, status, total_price, created_at, updated_at
	      FROM quotes WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		q += " AND status = $" + strconv.Itoa(len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.StartDate != nil {
		q += " AND created_at >= $" + strconv.Itoa(len(args)+1)
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		q += " AND created_at < $" + strconv.Itoa(len(args)+1)
		args = append(args, *filter.EndDate)
	}

	q += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		q += " LIMIT $" + strconv.Itoa(len(args)+1)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var out Quote
		if err := rows.Scan(&out.ID, &out.QuoteNo, &out.CustomerName, &out.Status, &out.TotalPrice, &out.CreatedAt, &out.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, out)
	}
	return quotes, rows.Err()
}

// UpdateStatus moves a quote through its lifecycle.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE quotes SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, q, status, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.New(apierr.CodeNotFound, "quote not found")
	}
	return nil
}

// mapPgError translates unique violations into the taxonomy so callers see
// DUPLICATE_ENTRY instead of a bare driver error.
func mapPgError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return apierr.Wrap(apierr.CodeDuplicate, "quote number already exists", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
