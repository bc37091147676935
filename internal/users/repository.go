package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-authz/aegis/internal/platform/db"
)

const pgForeignKeyViolation = "23503"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches a user by ID.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	var positionID *int64
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, position_id, is_active, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &positionID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUnknownUser
		}
		return User{}, err
	}
	if positionID != nil {
		u.PositionID = *positionID
	}
	return u, nil
}

// CurrentPosition returns the bound position id for the user.
func (r *Repository) CurrentPosition(ctx context.Context, userID int64) (int64, error) {
	var positionID *int64
	err := r.pool.QueryRow(ctx, `SELECT position_id FROM users WHERE id = $1`, userID).Scan(&positionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownUser
		}
		return 0, err
	}
	if positionID == nil || *positionID == 0 {
		return 0, ErrNoPosition
	}
	return *positionID, nil
}

// SetPosition rewrites the binding. The update runs under the same advisory
// lock class the position registry uses for deletes, so a bind cannot race a
// delete of its target position.
func (r *Repository) SetPosition(ctx context.Context, userID, positionID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := db.LockEntity(ctx, tx, db.LockClassPosition, positionID); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM positions WHERE id = $1)`, positionID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrUnknownPosition
		}
		tag, err := tx.Exec(ctx, `UPDATE users SET position_id = $2, updated_at = NOW() WHERE id = $1`, userID, positionID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				return ErrUnknownPosition
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrUnknownUser
		}
		return nil
	})
}
