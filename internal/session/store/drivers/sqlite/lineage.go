package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
)

type lineageRepo struct {
	q dbtx
}

func (r *lineageRepo) MarkUsed(ctx context.Context, jti string, usedAt, expiresAt time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO lineage_uses (jti, used_at, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (jti) DO NOTHING`,
		jti, toMillis(usedAt), toMillis(expiresAt))
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (r *lineageRepo) InsertLink(ctx context.Context, parent, child domain.TokenRef) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO lineage_links (parent_jti, child_jti, parent_expires_at, child_expires_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT (parent_jti, child_jti) DO NOTHING`,
		parent.JTI, child.JTI, toMillis(parent.ExpiresAt), toMillis(child.ExpiresAt))
	return err
}

func (r *lineageRepo) ListChildren(ctx context.Context, parentJTI string) ([]domain.TokenRef, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT child_jti, child_expires_at FROM lineage_links WHERE parent_jti = ? ORDER BY child_jti`,
		parentJTI)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TokenRef
	for rows.Next() {
		var (
			ref domain.TokenRef
			exp int64
		)
		if err := rows.Scan(&ref.JTI, &exp); err != nil {
			return nil, err
		}
		ref.ExpiresAt = fromMillis(exp)
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *lineageRepo) DeleteExpiredUses(ctx context.Context, now time.Time) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM lineage_uses WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

func (r *lineageRepo) DeleteExpiredLinks(ctx context.Context, now time.Time) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM lineage_links WHERE parent_expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
