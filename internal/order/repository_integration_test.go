package order

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/service/internal/db"
)

// openPostgresForIntegrationTest connects to ORDERS_POSTGRES_TEST_DSN, migrates
// and truncates. The test is skipped when the variable is unset or the
// database is unreachable.
func openPostgresForIntegrationTest(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("ORDERS_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("ORDERS_POSTGRES_TEST_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(dsn))
	_, err = pool.Exec(ctx, `TRUNCATE TABLE orders RESTART IDENTITY`)
	require.NoError(t, err)

	return pool
}

func TestPostgresRepository_SaveFindAndDelete(t *testing.T) {
	pool := openPostgresForIntegrationTest(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	created, err := repo.Save(ctx, Order{
		CustomerName: "Alice",
		Amount:       decimal.RequireFromString("100.50"),
		FileURL:      "https://orders.s3.amazonaws.com/orders/a-invoice.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.True(t, created.Amount.Equal(decimal.RequireFromString("100.5")))
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.CustomerName)
	assert.Equal(t, created.FileURL, got.FileURL)

	got.CustomerName = "Alice B"
	got.Amount = decimal.RequireFromString("42")
	updated, err := repo.Save(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.CustomerName)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(42)))
	assert.Equal(t, created.FileURL, updated.FileURL)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	exists, err := repo.ExistsByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.DeleteByID(ctx, created.ID))

	_, err = repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	exists, err = repo.ExistsByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPostgresRepository_SaveMissingOrder(t *testing.T) {
	pool := openPostgresForIntegrationTest(t)
	repo := NewPostgresRepository(pool)

	_, err := repo.Save(context.Background(), Order{ID: 999, CustomerName: "Ghost", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
