package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TimelineFilters narrows the decision timeline query.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	UserID   int64
	Outcome  string
	Page     int
	PageSize int
}

// PagingInfo describes the timeline page window.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result wraps timeline rows together with paging information.
type Result struct {
	Rows   []DecisionRecord
	Paging PagingInfo
}

// TimelineRepository reads persisted decision records.
type TimelineRepository interface {
	DecisionWindow(ctx context.Context, f TimelineFilters, offset, limit int) ([]DecisionRecord, error)
}

// Service coordinates audit timeline reads.
type Service struct {
	repo TimelineRepository
}

// NewService constructs a timeline service.
func NewService(repo TimelineRepository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of decision records, newest first. It fetches
// one row beyond the page size to detect whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s == nil || s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.DecisionWindow(ctx, filters, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Repository provides PostgreSQL backed timeline reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// DecisionWindow returns decision records matching the filters, newest first.
func (r *Repository) DecisionWindow(ctx context.Context, f TimelineFilters, offset, limit int) ([]DecisionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, required, effective, outcome, COALESCE(reason, ''), checked_at
		FROM audit_decisions
		WHERE ($1::timestamptz IS NULL OR checked_at >= $1)
		  AND ($2::timestamptz IS NULL OR checked_at < $2)
		  AND ($3::bigint = 0 OR user_id = $3)
		  AND ($4::text = '' OR outcome = $4)
		ORDER BY checked_at DESC
		OFFSET $5 LIMIT $6`,
		nullableTime(f.From), nullableTime(f.To), f.UserID, f.Outcome, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Required, &rec.Effective, &rec.Outcome, &rec.Reason, &rec.CheckedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
