package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
)

// errStale means the row no longer had the status a write was conditioned on.
var errStale = errors.New("booking request changed concurrently")

type Repository interface {
	GetByID(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, filter Filter) ([]*Request, int, error)

	// ListForGuide returns the guide's slot-holding requests with a service date in [from, to].
	// Messages are not loaded.
	ListForGuide(ctx context.Context, guideID string, from, to civil.Date) ([]*Request, error)

	// Create inserts the request together with its pending messages.
	Create(ctx context.Context, r *Request) error

	// SaveTransition persists status, timeline and pending messages, provided the
	// stored status is still from. Otherwise it returns errStale.
	SaveTransition(ctx context.Context, r *Request, from Status) error

	AppendMessage(ctx context.Context, requestID string, m *Message) error

	// MarkHasReview flips has_review on a completed request that has none yet, or returns errStale.
	MarkHasReview(ctx context.Context, id string) error

	// WithGuideLock runs fn inside a transaction holding the guide's calendar lock.
	// Submissions for the same guide are serialised through it.
	WithGuideLock(ctx context.Context, guideID string, fn func(ctx context.Context, repo Repository) error) error
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxRepository struct {
	db dbtx
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{db: pool}
}

var requestColumns = []string{
	"id", "request_code", "agency_id", "guide_id",
	"service_type", "service_date", "start_minute", "end_minute", "duration_hours",
	"location", "group_size", "group_type", "languages", "special_requirements",
	"proposed_rate", "final_rate", "deposit_amount", "payment_terms", "currency",
	"status", "requested_at", "responded_at", "accepted_at", "completed_at", "cancelled_at",
	"has_review", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner, extra ...any) (*Request, error) {
	var r Request
	var date time.Time
	var start, end int16

	dest := []any{
		&r.ID, &r.RequestCode, &r.AgencyID, &r.GuideID,
		&r.Details.Type, &date, &start, &end, &r.Details.DurationHours,
		&r.Details.Location, &r.Details.GroupSize, &r.Details.GroupType, &r.Details.Languages, &r.Details.SpecialRequirements,
		&r.Pricing.ProposedRate, &r.Pricing.FinalRate, &r.Pricing.DepositAmount, &r.Pricing.PaymentTerms, &r.Pricing.Currency,
		&r.Status, &r.Timeline.RequestedAt, &r.Timeline.RespondedAt, &r.Timeline.AcceptedAt, &r.Timeline.CompletedAt, &r.Timeline.CancelledAt,
		&r.HasReview, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	r.Details.Date = civil.DateOf(date)
	r.Details.Window = civil.TimeRange{Start: civil.TimeOfDay(start), End: civil.TimeOfDay(end)}
	return &r, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(requestColumns...).
		From("public.booking_requests").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking request query failed: %w", err)
	}

	req, err := scanRequest(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking request failed: %w", err)
	}

	req.Messages, err = r.listMessages(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *pgxRepository) listMessages(ctx context.Context, requestID string) ([]Message, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("seq", "sender", "body", "created_at").
		From("public.booking_messages").
		Where(squirrel.Eq{"request_id": requestID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list messages query failed: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Seq, &m.From, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message failed: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages failed: %w", err)
	}
	return messages, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Request, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(requestColumns, "count(*) OVER() AS total_count")...).
		From("public.booking_requests")

	if filter.AgencyID != "" {
		query = query.Where(squirrel.Eq{"agency_id": filter.AgencyID})
	}
	if filter.GuideID != "" {
		query = query.Where(squirrel.Eq{"guide_id": filter.GuideID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"service_date": filter.From.In(time.UTC)})
	}
	if filter.To != nil {
		query = query.Where(squirrel.LtOrEq{"service_date": filter.To.In(time.UTC)})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("service_date DESC", "start_minute DESC", "id ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list booking requests query failed: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list booking requests failed: %w", err)
	}
	defer rows.Close()

	var requests []*Request
	var total int
	for rows.Next() {
		req, err := scanRequest(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking request failed: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate booking requests failed: %w", err)
	}

	return requests, total, nil
}

func (r *pgxRepository) ListForGuide(ctx context.Context, guideID string, from, to civil.Date) ([]*Request, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(requestColumns...).
		From("public.booking_requests").
		Where(squirrel.Eq{"guide_id": guideID}).
		Where(squirrel.Eq{"status": []Status{StatusPending, StatusAccepted, StatusCompleted}}).
		Where(squirrel.GtOrEq{"service_date": from.In(time.UTC)}).
		Where(squirrel.LtOrEq{"service_date": to.In(time.UTC)}).
		OrderBy("service_date ASC", "start_minute ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list guide requests query failed: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list guide requests failed: %w", err)
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guide request failed: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guide requests failed: %w", err)
	}
	return requests, nil
}

func (r *pgxRepository) Create(ctx context.Context, req *Request) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
		d := req.Details
		query, args, err := psql.Insert("public.booking_requests").
			Columns(
				"request_code", "agency_id", "guide_id",
				"service_type", "service_date", "start_minute", "end_minute", "duration_hours",
				"location", "group_size", "group_type", "languages", "special_requirements",
				"proposed_rate", "final_rate", "deposit_amount", "payment_terms", "currency",
				"status", "requested_at",
			).
			Values(
				req.RequestCode, req.AgencyID, req.GuideID,
				d.Type, d.Date.In(time.UTC), int16(d.Window.Start), int16(d.Window.End), d.DurationHours,
				d.Location, d.GroupSize, d.GroupType, d.Languages, d.SpecialRequirements,
				req.Pricing.ProposedRate, req.Pricing.FinalRate, req.Pricing.DepositAmount, req.Pricing.PaymentTerms, req.Pricing.Currency,
				req.Status, req.Timeline.RequestedAt,
			).
			Suffix("RETURNING id, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build create booking request query failed: %w", err)
		}

		if err := tx.QueryRow(ctx, query, args...).Scan(&req.ID, &req.UpdatedAt); err != nil {
			return fmt.Errorf("create booking request failed: %w", err)
		}
		return insertPending(ctx, tx, req)
	})
}

func (r *pgxRepository) SaveTransition(ctx context.Context, req *Request, from Status) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
		query, args, err := psql.Update("public.booking_requests").
			Set("status", req.Status).
			Set("responded_at", req.Timeline.RespondedAt).
			Set("accepted_at", req.Timeline.AcceptedAt).
			Set("completed_at", req.Timeline.CompletedAt).
			Set("cancelled_at", req.Timeline.CancelledAt).
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"id": req.ID, "status": from}).
			Suffix("RETURNING updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build save transition query failed: %w", err)
		}

		if err := tx.QueryRow(ctx, query, args...).Scan(&req.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errStale
			}
			return fmt.Errorf("save transition failed: %w", err)
		}
		return insertPending(ctx, tx, req)
	})
}

// insertPending stores messages that have no sequence number yet and assigns one.
func insertPending(ctx context.Context, db dbtx, req *Request) error {
	for i := range req.Messages {
		if req.Messages[i].Seq != 0 {
			continue
		}
		if err := insertMessage(ctx, db, req.ID, &req.Messages[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertMessage(ctx context.Context, db dbtx, requestID string, m *Message) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.booking_messages").
		Columns("request_id", "sender", "body", "created_at").
		Values(requestID, m.From, m.Body, m.CreatedAt).
		Suffix("RETURNING seq").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert message query failed: %w", err)
	}

	if err := db.QueryRow(ctx, query, args...).Scan(&m.Seq); err != nil {
		return fmt.Errorf("insert message failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) AppendMessage(ctx context.Context, requestID string, m *Message) error {
	return insertMessage(ctx, r.db, requestID, m)
}

func (r *pgxRepository) MarkHasReview(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.booking_requests").
		Set("has_review", true).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": StatusCompleted, "has_review": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark has review query failed: %w", err)
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark has review failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errStale
	}
	return nil
}

func (r *pgxRepository) WithGuideLock(ctx context.Context, guideID string, fn func(ctx context.Context, repo Repository) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", guideID); err != nil {
			return fmt.Errorf("lock guide calendar failed: %w", err)
		}
		return fn(ctx, &pgxRepository{db: tx})
	})
}
