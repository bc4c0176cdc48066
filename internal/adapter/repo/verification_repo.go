package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaume768/splashmy/internal/domain"
)

// VerificationRepositoryPG implements domain.VerificationRepository.
// Each user holds at most one live verification code and one live reset code;
// replacing a code discards the previous one.
type VerificationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewVerificationRepository creates a new VerificationRepositoryPG.
func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepositoryPG {
	return &VerificationRepositoryPG{pool: pool}
}

// ReplaceVerification discards any existing verification for the user and
// stores the new one, carrying the resend counter forward.
func (r *VerificationRepositoryPG) ReplaceVerification(ctx context.Context, v *domain.EmailVerification) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM email_verifications WHERE user_id = $1`, v.UserID); err != nil {
		return err
	}
	query := `
INSERT INTO email_verifications (id, user_id, code_hash, expires_at, attempts, last_sent_at, resend_count)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	if _, err := tx.Exec(ctx, query, v.ID, v.UserID, v.CodeHash, v.ExpiresAt, v.Attempts, v.LastSentAt, v.ResendCount); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LatestVerification returns the user's live verification code.
func (r *VerificationRepositoryPG) LatestVerification(ctx context.Context, userID string) (*domain.EmailVerification, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, code_hash, expires_at, attempts, last_sent_at, resend_count, created_at
FROM email_verifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1;
`, userID)

	var v domain.EmailVerification
	if err := row.Scan(&v.ID, &v.UserID, &v.CodeHash, &v.ExpiresAt, &v.Attempts, &v.LastSentAt, &v.ResendCount, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// IncrementVerificationAttempts bumps the failed-attempt counter.
func (r *VerificationRepositoryPG) IncrementVerificationAttempts(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE email_verifications SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}

// DeleteVerifications removes all verification codes for the user.
func (r *VerificationRepositoryPG) DeleteVerifications(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM email_verifications WHERE user_id = $1`, userID)
	return err
}

// ReplaceReset discards any existing password reset for the user and stores
// the new one.
func (r *VerificationRepositoryPG) ReplaceReset(ctx context.Context, reset *domain.PasswordReset) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, reset.UserID); err != nil {
		return err
	}
	query := `
INSERT INTO password_resets (id, user_id, code_hash, expires_at, attempts)
VALUES ($1, $2, $3, $4, $5);
`
	if _, err := tx.Exec(ctx, query, reset.ID, reset.UserID, reset.CodeHash, reset.ExpiresAt, reset.Attempts); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LatestReset returns the user's live password reset code.
func (r *VerificationRepositoryPG) LatestReset(ctx context.Context, userID string) (*domain.PasswordReset, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, code_hash, expires_at, attempts, used_at, created_at
FROM password_resets
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1;
`, userID)

	var reset domain.PasswordReset
	if err := row.Scan(&reset.ID, &reset.UserID, &reset.CodeHash, &reset.ExpiresAt, &reset.Attempts, &reset.UsedAt, &reset.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &reset, nil
}

// IncrementResetAttempts bumps the failed-attempt counter.
func (r *VerificationRepositoryPG) IncrementResetAttempts(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE password_resets SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}

// MarkResetUsed stamps the reset code as consumed.
func (r *VerificationRepositoryPG) MarkResetUsed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE password_resets SET used_at = NOW() WHERE id = $1`, id)
	return err
}

var _ domain.VerificationRepository = (*VerificationRepositoryPG)(nil)
