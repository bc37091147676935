package positions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-authz/aegis/internal/platform/db"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository provides PostgreSQL backed persistence. Mutations run inside a
// transaction holding a per-position advisory lock, so concurrent update and
// delete of the same position serialize while different positions proceed
// independently.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all positions ordered by level descending then name.
func (r *Repository) List(ctx context.Context) ([]Position, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, name_localized, description, level, full_catalog_grant, created_at, updated_at
		FROM positions ORDER BY level DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.Name, &p.NameLocalized, &p.Description, &p.Level, &p.FullCatalogGrant, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		perms, err := r.permissionsOf(ctx, r.pool, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Permissions = perms
	}
	return out, nil
}

// Get fetches a position with its permission snapshot.
func (r *Repository) Get(ctx context.Context, id int64) (Position, error) {
	return r.get(ctx, r.pool, id)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) get(ctx context.Context, q queryer, id int64) (Position, error) {
	var p Position
	err := q.QueryRow(ctx, `
		SELECT id, name, name_localized, description, level, full_catalog_grant, created_at, updated_at
		FROM positions WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.NameLocalized, &p.Description, &p.Level, &p.FullCatalogGrant, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Position{}, ErrUnknownPosition
		}
		return Position{}, err
	}
	perms, err := r.permissionsOf(ctx, q, id)
	if err != nil {
		return Position{}, err
	}
	p.Permissions = perms
	return p, nil
}

func (r *Repository) permissionsOf(ctx context.Context, q queryer, id int64) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT permission_code FROM position_permissions WHERE position_id = $1 ORDER BY permission_code`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		perms = append(perms, code)
	}
	return perms, rows.Err()
}

// Create inserts a new position and its permission snapshot.
func (r *Repository) Create(ctx context.Context, p Position) (Position, error) {
	var created Position
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO positions (name, name_fold, name_localized, description, level, full_catalog_grant)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`,
			p.Name, FoldName(p.Name), p.NameLocalized, p.Description, p.Level, p.FullCatalogGrant).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return mapPgError(err)
		}
		if err := r.replacePermissions(ctx, tx, p.ID, p.Permissions); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return Position{}, err
	}
	return created, nil
}

// Update rewrites the position row and its permission snapshot atomically.
func (r *Repository) Update(ctx context.Context, p Position) (Position, error) {
	var updated Position
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := db.LockEntity(ctx, tx, db.LockClassPosition, p.ID); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `
			UPDATE positions
			SET name = $2, name_fold = $3, name_localized = $4, description = $5, level = $6, updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at`,
			p.ID, p.Name, FoldName(p.Name), p.NameLocalized, p.Description, p.Level).
			Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUnknownPosition
			}
			return mapPgError(err)
		}
		if err := r.replacePermissions(ctx, tx, p.ID, p.Permissions); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return Position{}, err
	}
	return updated, nil
}

// Delete removes a position. Fails with ErrPositionInUse while any user is
// still bound, checked under the same lock that serializes bindings.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := db.LockEntity(ctx, tx, db.LockClassPosition, id); err != nil {
			return err
		}
		var bound int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE position_id = $1`, id).Scan(&bound); err != nil {
			return err
		}
		if bound > 0 {
			return ErrPositionInUse
		}
		if _, err := tx.Exec(ctx, `DELETE FROM position_permissions WHERE position_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
		if err != nil {
			return mapPgError(err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUnknownPosition
		}
		return nil
	})
}

// BoundUsers counts users currently bound to the position.
func (r *Repository) BoundUsers(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE position_id = $1`, id).Scan(&n)
	return n, err
}

func (r *Repository) replacePermissions(ctx context.Context, tx pgx.Tx, id int64, perms []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM position_permissions WHERE position_id = $1`, id); err != nil {
		return err
	}
	for _, code := range perms {
		if _, err := tx.Exec(ctx, `
			INSERT INTO position_permissions (position_id, permission_code) VALUES ($1, $2)`, id, code); err != nil {
			return fmt.Errorf("insert permission %s: %w", code, err)
		}
	}
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicateName, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return ErrPositionInUse
		}
	}
	return err
}
