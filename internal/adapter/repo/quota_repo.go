package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaume768/splashmy/internal/domain"
)

// QuotaRepositoryPG implements domain.QuotaRepository. Every operation runs
// inside a transaction holding the user's ledger row lock, so the lazy daily
// reset and the counter checks cannot race across concurrent submissions.
type QuotaRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewQuotaRepository creates a new QuotaRepositoryPG.
func NewQuotaRepository(pool *pgxpool.Pool) *QuotaRepositoryPG {
	return &QuotaRepositoryPG{pool: pool}
}

const quotaColumns = `user_id, daily_generations, daily_edits, daily_style_transfers,
total_generations, total_edits, total_style_transfers, last_reset_date, monthly_cost, updated_at`

// Get returns the user's ledger with the daily reset applied, creating an
// empty ledger on first access.
func (r *QuotaRepositoryPG) Get(ctx context.Context, userID string) (*domain.QuotaLedger, error) {
	var ledger *domain.QuotaLedger
	err := r.withLedger(ctx, userID, func(ctx context.Context, tx pgx.Tx, q *domain.QuotaLedger) error {
		ledger = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

// CanSubmit reports whether the user may submit another job of the given kind
// today. Premium users are never limited.
func (r *QuotaRepositoryPG) CanSubmit(ctx context.Context, userID string, kind domain.JobKind, premium bool, dailyLimit int) (bool, error) {
	var allowed bool
	err := r.withLedger(ctx, userID, func(ctx context.Context, tx pgx.Tx, q *domain.QuotaLedger) error {
		allowed = q.CanSubmit(kind, premium, dailyLimit)
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// RecordUsage increments the kind's daily and lifetime counters.
func (r *QuotaRepositoryPG) RecordUsage(ctx context.Context, userID string, kind domain.JobKind) error {
	return r.withLedger(ctx, userID, func(ctx context.Context, tx pgx.Tx, q *domain.QuotaLedger) error {
		q.Record(kind)
		return saveLedger(ctx, tx, q)
	})
}

// withLedger runs fn inside a transaction with the ledger row locked and the
// lazy reset already applied and persisted.
func (r *QuotaRepositoryPG) withLedger(ctx context.Context, userID string, fn func(context.Context, pgx.Tx, *domain.QuotaLedger) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ledger, err := lockLedger(ctx, tx, userID)
	if err != nil {
		return err
	}
	if ledger.ResetIfStale(time.Now()) {
		if err := saveLedger(ctx, tx, ledger); err != nil {
			return err
		}
	}
	if err := fn(ctx, tx, ledger); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockLedger(ctx context.Context, tx pgx.Tx, userID string) (*domain.QuotaLedger, error) {
	row := tx.QueryRow(ctx, `SELECT `+quotaColumns+` FROM user_processing_quotas WHERE user_id = $1 FOR UPDATE`, userID)
	ledger, err := scanLedger(row)
	if err == nil {
		return ledger, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// First access. Another submission may create the row between our probe
	// and the insert, so take the existing row on conflict.
	query := `
INSERT INTO user_processing_quotas (user_id, last_reset_date)
VALUES ($1, CURRENT_DATE)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING ` + quotaColumns + `;
`
	return scanLedger(tx.QueryRow(ctx, query, userID))
}

func saveLedger(ctx context.Context, tx pgx.Tx, q *domain.QuotaLedger) error {
	query := `
UPDATE user_processing_quotas
SET daily_generations = $2,
    daily_edits = $3,
    daily_style_transfers = $4,
    total_generations = $5,
    total_edits = $6,
    total_style_transfers = $7,
    last_reset_date = $8,
    updated_at = NOW()
WHERE user_id = $1;
`
	_, err := tx.Exec(ctx, query,
		q.UserID,
		q.DailyGenerations,
		q.DailyEdits,
		q.DailyStyleTransfers,
		q.TotalGenerations,
		q.TotalEdits,
		q.TotalStyleTransfers,
		q.LastResetDate,
	)
	return err
}

func scanLedger(row pgx.Row) (*domain.QuotaLedger, error) {
	var q domain.QuotaLedger
	if err := row.Scan(
		&q.UserID,
		&q.DailyGenerations,
		&q.DailyEdits,
		&q.DailyStyleTransfers,
		&q.TotalGenerations,
		&q.TotalEdits,
		&q.TotalStyleTransfers,
		&q.LastResetDate,
		&q.MonthlyCost,
		&q.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

var _ domain.QuotaRepository = (*QuotaRepositoryPG)(nil)
