package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
)

type revocationsRepo struct {
	q dbtx
}

func (r *revocationsRepo) InsertRevocation(ctx context.Context, e domain.Revocation) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO revocations (jti, reason, revoked_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (jti) DO NOTHING`,
		e.JTI, string(e.Reason), toMillis(e.RevokedAt), toMillis(e.ExpiresAt))
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

func (r *revocationsRepo) GetRevocation(ctx context.Context, jti string) (domain.Revocation, error) {
	var (
		e                domain.Revocation
		reason           string
		revoked, expires int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT jti, reason, revoked_at, expires_at FROM revocations WHERE jti = ?`, jti,
	).Scan(&e.JTI, &reason, &revoked, &expires)
	if err != nil {
		return domain.Revocation{}, mapNotFound(err)
	}
	e.Reason = domain.RevocationReason(reason)
	e.RevokedAt = fromMillis(revoked)
	e.ExpiresAt = fromMillis(expires)
	return e, nil
}

func (r *revocationsRepo) DeleteExpiredRevocations(ctx context.Context, now time.Time) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM revocations WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
