package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
)

type Repository interface {
	// Create inserts the review. A second review for the same request yields booking.ErrDuplicateReview.
	Create(ctx context.Context, rv *Review) error
	Delete(ctx context.Context, id string) error
	GetByRequest(ctx context.Context, requestID string) (*Review, error)
	List(ctx context.Context, filter Filter) ([]*Review, int, error)
	Summary(ctx context.Context, guideID string) (*Summary, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var reviewColumns = []string{
	"id", "request_id", "agency_id", "guide_id", "ratings", "overall", "comment", "highlights", "created_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner, extra ...any) (*Review, error) {
	var rv Review
	dest := []any{
		&rv.ID, &rv.RequestID, &rv.AgencyID, &rv.GuideID, &rv.Ratings, &rv.Overall,
		&rv.Comment, &rv.Highlights, &rv.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *pgxRepository) Create(ctx context.Context, rv *Review) error {
	highlights := rv.Highlights
	if highlights == nil {
		highlights = []string{}
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.reviews").
		Columns("request_id", "agency_id", "guide_id", "ratings", "overall", "comment", "highlights").
		Values(rv.RequestID, rv.AgencyID, rv.GuideID, rv.Ratings, rv.Overall, rv.Comment, highlights).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create review query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rv.ID, &rv.CreatedAt); err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return booking.ErrDuplicateReview
		}
		return fmt.Errorf("create review failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.reviews").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete review query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete review failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) GetByRequest(ctx context.Context, requestID string) (*Review, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(reviewColumns...).
		From("public.reviews").
		Where(squirrel.Eq{"request_id": requestID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get review query failed: %w", err)
	}

	rv, err := scanReview(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get review failed: %w", err)
	}
	return rv, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Review, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(reviewColumns, "count(*) OVER() AS total_count")...).
		From("public.reviews")

	if filter.GuideID != "" {
		query = query.Where(squirrel.Eq{"guide_id": filter.GuideID})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("created_at DESC", "id ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reviews query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews failed: %w", err)
	}
	defer rows.Close()

	var reviews []*Review
	var total int
	for rows.Next() {
		rv, err := scanReview(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review failed: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reviews failed: %w", err)
	}
	return reviews, total, nil
}

func (r *pgxRepository) Summary(ctx context.Context, guideID string) (*Summary, error) {
	columns := []string{"count(*)", "COALESCE(avg(overall), 0)::float8"}
	for _, c := range Categories {
		columns = append(columns, fmt.Sprintf("COALESCE(avg((ratings->>'%s')::numeric), 0)::float8", c))
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(columns...).
		From("public.reviews").
		Where(squirrel.Eq{"guide_id": guideID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build review summary query failed: %w", err)
	}

	s := &Summary{GuideID: guideID, Categories: make(map[Category]float64, len(Categories))}
	averages := make([]float64, len(Categories))
	dest := []any{&s.Count, &s.Overall}
	for i := range averages {
		dest = append(dest, &averages[i])
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("review summary failed: %w", err)
	}

	s.Overall = round1(s.Overall)
	for i, c := range Categories {
		s.Categories[c] = round1(averages[i])
	}
	return s, nil
}
