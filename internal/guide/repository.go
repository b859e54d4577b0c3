package guide

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	List(ctx context.Context, filter Filter) ([]*Profile, int, error)
	// Upsert creates the profile or replaces every editable field of an existing one.
	Upsert(ctx context.Context, p *Profile) error
	SetPhoto(ctx context.Context, id string, photoID string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var profileColumns = []string{
	"id", "display_name", "bio", "languages", "working_days", "working_blocks",
	"advance_booking_days", "hourly_rate", "half_day_rate", "full_day_rate", "currency",
	"max_group_size", "min_booking_hours", "requires_deposit", "deposit_percentage",
	"cancellation_policy", "group_surcharges", "photo_id", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner, extra ...any) (*Profile, error) {
	var p Profile
	var days []int16
	var blocks []civil.TimeRange

	dest := []any{
		&p.ID, &p.DisplayName, &p.Bio, &p.Languages, &days, &blocks,
		&p.AdvanceBookingDays, &p.HourlyRate, &p.HalfDayRate, &p.FullDayRate, &p.Currency,
		&p.MaxGroupSize, &p.MinBookingHours, &p.RequiresDeposit, &p.DepositPercentage,
		&p.CancellationPolicy, &p.GroupSurcharges, &p.PhotoID, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	p.WorkingDays = make([]time.Weekday, len(days))
	for i, d := range days {
		p.WorkingDays[i] = time.Weekday(d)
	}
	p.WorkingBlocks = blocks
	return &p, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(profileColumns...).
		From("public.guide_profiles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get guide query failed: %w", err)
	}

	p, err := scanProfile(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get guide failed: %w", err)
	}
	return p, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Profile, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(profileColumns, "count(*) OVER() AS total_count")...).
		From("public.guide_profiles")

	if filter.Language != "" {
		query = query.Where("? = ANY(languages)", filter.Language)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("display_name ASC", "id ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list guides query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list guides failed: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	var total int
	for rows.Next() {
		p, err := scanProfile(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan guide failed: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate guides failed: %w", err)
	}

	return profiles, total, nil
}

func (r *pgxRepository) Upsert(ctx context.Context, p *Profile) error {
	days := make([]int16, len(p.WorkingDays))
	for i, d := range p.WorkingDays {
		days[i] = int16(d)
	}
	blocks := p.WorkingBlocks
	if blocks == nil {
		blocks = []civil.TimeRange{}
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.guide_profiles").
		Columns(
			"id", "display_name", "bio", "languages", "working_days", "working_blocks",
			"advance_booking_days", "hourly_rate", "half_day_rate", "full_day_rate", "currency",
			"max_group_size", "min_booking_hours", "requires_deposit", "deposit_percentage",
			"cancellation_policy", "group_surcharges",
		).
		Values(
			p.ID, p.DisplayName, p.Bio, p.Languages, days, blocks,
			p.AdvanceBookingDays, p.HourlyRate, p.HalfDayRate, p.FullDayRate, p.Currency,
			p.MaxGroupSize, p.MinBookingHours, p.RequiresDeposit, p.DepositPercentage,
			p.CancellationPolicy, p.GroupSurcharges,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			languages = EXCLUDED.languages,
			working_days = EXCLUDED.working_days,
			working_blocks = EXCLUDED.working_blocks,
			advance_booking_days = EXCLUDED.advance_booking_days,
			hourly_rate = EXCLUDED.hourly_rate,
			half_day_rate = EXCLUDED.half_day_rate,
			full_day_rate = EXCLUDED.full_day_rate,
			currency = EXCLUDED.currency,
			max_group_size = EXCLUDED.max_group_size,
			min_booking_hours = EXCLUDED.min_booking_hours,
			requires_deposit = EXCLUDED.requires_deposit,
			deposit_percentage = EXCLUDED.deposit_percentage,
			cancellation_policy = EXCLUDED.cancellation_policy,
			group_surcharges = EXCLUDED.group_surcharges,
			updated_at = now()
		RETURNING photo_id, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert guide query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&p.PhotoID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("upsert guide failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) SetPhoto(ctx context.Context, id string, photoID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.guide_profiles").
		Set("photo_id", photoID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set guide photo query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set guide photo failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
