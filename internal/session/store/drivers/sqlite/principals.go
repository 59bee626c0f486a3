package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/internal/session/store"
)

type principalsRepo struct {
	q dbtx
}

const principalColumns = `id, username, email, password_hash, disabled, created_at, updated_at`

func scanPrincipal(row *sql.Row) (domain.Principal, error) {
	var p domain.Principal
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.Disabled, &created, &updated); err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func (r *principalsRepo) GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error) {
	return scanPrincipal(r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = ?`, id))
}

func (r *principalsRepo) GetPrincipalByLogin(ctx context.Context, login string) (domain.Principal, error) {
	return scanPrincipal(r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE username = ? OR email = ? LIMIT 1`, login, login))
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO principals (`+principalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Username, p.Email, p.PasswordHash, p.Disabled, toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	return mapUnique(err)
}

func (r *principalsRepo) SetDisabled(ctx context.Context, id string, disabled bool, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE principals SET disabled = ?, updated_at = ? WHERE id = ?`, disabled, toMillis(at), id)
	return requireRow(res, err)
}

func (r *principalsRepo) UpdatePasswordHash(ctx context.Context, id string, newHash string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE principals SET password_hash = ?, updated_at = ? WHERE id = ?`, newHash, toMillis(at), id)
	return requireRow(res, err)
}

func (r *principalsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM principals`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
