package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finboard/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const createInvestmentsSQL = `
CREATE TABLE IF NOT EXISTS investments (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	ticker VARCHAR(32) NOT NULL,
	name VARCHAR(200) NOT NULL,
	type VARCHAR(32) NOT NULL,
	quantity NUMERIC(30, 10) NOT NULL CHECK (quantity > 0),
	purchase_price NUMERIC(30, 10) NOT NULL CHECK (purchase_price > 0),
	purchase_date DATE NOT NULL,
	currency VARCHAR(3) NOT NULL,
	is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS investments_user_id_idx ON investments (user_id, created_at DESC);`

const selectInvestmentColumns = `id, user_id, ticker, name, type, quantity::text, purchase_price::text, purchase_date, currency, is_favorite, created_at`

// PostgresRepository stores investments in PostgreSQL.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// NewPostgresRepository opens a connection pool and verifies it.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresRepository{Pool: pool}, nil
}

// Close releases the pool.
func (r *PostgresRepository) Close() {
	r.Pool.Close()
}

// Migrate creates the investments table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, createInvestmentsSQL); err != nil {
		return fmt.Errorf("failed to migrate investments table: %w", err)
	}
	return nil
}

// List returns the user's investments, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID uuid.UUID) ([]model.Investment, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT `+selectInvestmentColumns+` FROM investments WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	var out []model.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read investments: %w", err)
	}
	return out, nil
}

// Insert stores a new investment and returns it as persisted.
func (r *PostgresRepository) Insert(ctx context.Context, inv model.Investment) (model.Investment, error) {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO investments (id, user_id, ticker, name, type, quantity, purchase_price, purchase_date, currency, is_favorite)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10)
		RETURNING `+selectInvestmentColumns,
		inv.ID,
		inv.UserID,
		inv.Ticker,
		inv.Name,
		inv.Type.Label(),
		inv.Quantity.String(),
		inv.PurchasePrice.String(),
		dateOnly(inv.PurchaseDate),
		string(inv.Currency),
		inv.IsFavorite,
	)
	saved, err := scanInvestment(row)
	if err != nil {
		return model.Investment{}, fmt.Errorf("failed to insert investment: %w", err)
	}
	return saved, nil
}

// Update applies the non-nil fields of patch to the user's investment.
func (r *PostgresRepository) Update(ctx context.Context, id, userID uuid.UUID, patch model.InvestmentPatch) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Ticker != nil {
		add("ticker", *patch.Ticker)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Type != nil {
		add("type", patch.Type.Label())
	}
	if patch.Quantity != nil {
		args = append(args, patch.Quantity.String())
		sets = append(sets, fmt.Sprintf("quantity = $%d::numeric", len(args)))
	}
	if patch.PurchasePrice != nil {
		args = append(args, patch.PurchasePrice.String())
		sets = append(sets, fmt.Sprintf("purchase_price = $%d::numeric", len(args)))
	}
	if patch.PurchaseDate != nil {
		add("purchase_date", dateOnly(*patch.PurchaseDate))
	}
	if patch.Currency != nil {
		add("currency", string(*patch.Currency))
	}
	if patch.IsFavorite != nil {
		add("is_favorite", *patch.IsFavorite)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, userID)
	query := fmt.Sprintf("UPDATE investments SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))
	tag, err := r.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update investment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user's investment.
func (r *PostgresRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM investments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInvestment(row pgx.Row) (model.Investment, error) {
	var (
		inv                     model.Investment
		assetType, currency     string
		quantity, purchasePrice string
	)
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.Ticker,
		&inv.Name,
		&assetType,
		&quantity,
		&purchasePrice,
		&inv.PurchaseDate,
		&currency,
		&inv.IsFavorite,
		&inv.CreatedAt,
	)
	if err != nil {
		return model.Investment{}, fmt.Errorf("failed to scan investment: %w", err)
	}

	if inv.Type, err = model.ParseAssetType(assetType); err != nil {
		return model.Investment{}, fmt.Errorf("investment %s: %w", inv.ID, err)
	}
	if inv.Currency, err = model.ParseCurrency(currency); err != nil {
		return model.Investment{}, fmt.Errorf("investment %s: %w", inv.ID, err)
	}
	if inv.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return model.Investment{}, fmt.Errorf("failed to parse quantity: %w", err)
	}
	if inv.PurchasePrice, err = decimal.NewFromString(purchasePrice); err != nil {
		return model.Investment{}, fmt.Errorf("failed to parse purchase_price: %w", err)
	}
	return inv, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
