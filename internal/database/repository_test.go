package database

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"finboard/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	pool *pgxpool.Pool
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	// Define the PostgreSQL container request
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpassword",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("could not stop postgres container: %s", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %s", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("could not get mapped port: %s", err)
	}

	connStr := "postgres://testuser:testpassword@" + host + ":" + port.Port() + "/testdb"

	// The port can be open before postgres accepts connections.
	for i := 0; i < 20; i++ {
		pool, err = pgxpool.New(ctx, connStr)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		log.Fatalf("could not connect to database: %s", err)
	}
	defer pool.Close()

	repo := &PostgresRepository{Pool: pool}
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("could not create table: %s", err)
	}

	return m.Run()
}

func newInvestment(userID uuid.UUID, ticker string, t model.AssetType) model.Investment {
	return model.Investment{
		UserID:        userID,
		Ticker:        ticker,
		Name:          ticker + " name",
		Type:          t,
		Quantity:      decimal.RequireFromString("1.5"),
		PurchasePrice: decimal.RequireFromString("20000.25"),
		PurchaseDate:  time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Currency:      model.USD,
	}
}

func TestPostgresRepository_InsertAndList(t *testing.T) {
	ctx := context.Background()
	repo := &PostgresRepository{Pool: pool}
	userID := uuid.New()

	first, err := repo.Insert(ctx, newInvestment(userID, "BTC", model.Crypto))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := repo.Insert(ctx, newInvestment(userID, "AAPL", model.DepositaryReceipt))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, newInvestment(uuid.New(), "ETH", model.Crypto))
	require.NoError(t, err)

	list, err := repo.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Newest first.
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	got := list[1]
	assert.Equal(t, "BTC", got.Ticker)
	assert.Equal(t, model.Crypto, got.Type)
	assert.Equal(t, model.USD, got.Currency)
	assert.True(t, got.Quantity.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, got.PurchasePrice.Equal(decimal.RequireFromString("20000.25")))
	assert.Equal(t, "2024-05-10", got.PurchaseDate.Format(model.DateLayout))
	assert.Equal(t, model.DepositaryReceipt, list[0].Type)
}

func TestPostgresRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := &PostgresRepository{Pool: pool}
	userID := uuid.New()

	inv, err := repo.Insert(ctx, newInvestment(userID, "GGAL", model.Equity))
	require.NoError(t, err)

	fav := true
	qty := decimal.NewFromInt(10)
	currency := model.ARS
	err = repo.Update(ctx, inv.ID, userID, model.InvestmentPatch{IsFavorite: &fav, Quantity: &qty, Currency: &currency})
	require.NoError(t, err)

	list, err := repo.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsFavorite)
	assert.True(t, list[0].Quantity.Equal(qty))
	assert.Equal(t, model.ARS, list[0].Currency)
	assert.Equal(t, "GGAL", list[0].Ticker)

	t.Run("other user", func(t *testing.T) {
		err := repo.Update(ctx, inv.ID, uuid.New(), model.InvestmentPatch{IsFavorite: &fav})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := &PostgresRepository{Pool: pool}
	userID := uuid.New()

	inv, err := repo.Insert(ctx, newInvestment(userID, "SOL", model.Crypto))
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(ctx, inv.ID, uuid.New()), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, inv.ID, userID))
	assert.ErrorIs(t, repo.Delete(ctx, inv.ID, userID), ErrNotFound)

	list, err := repo.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
