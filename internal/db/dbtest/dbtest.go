// Package dbtest connects repository tests to a real PostgreSQL database.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/guide-booking-backend/internal/db"
)

// Pool returns a migrated, empty database. The test is skipped when TEST_DB_DSN is not set.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	// Attempt to load .env from the repository root
	_ = godotenv.Load("../../.env", "../../../.env")

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err, "connect test database")
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	Truncate(t, pool)

	return pool
}

// Truncate empties every application table.
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		TRUNCATE TABLE public.reviews, public.booking_messages, public.booking_requests,
			public.guide_profiles, public.photos, public.accounts CASCADE`)
	require.NoError(t, err, "truncate tables")
}

// InsertAccount creates a bare account row and returns its id.
func InsertAccount(t *testing.T, pool *pgxpool.Pool, email, role string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO public.accounts (email, password_hash, display_name, role)
		 VALUES ($1, 'x', $1, $2) RETURNING id`, email, role).Scan(&id)
	require.NoError(t, err, "insert account")
	return id
}
