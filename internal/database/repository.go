package database

import (
	"context"
	"errors"

	"finboard/internal/model"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("investment not found")

// Repository defines the standard interface for database operations.
type Repository interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.Investment, error)
	Insert(ctx context.Context, inv model.Investment) (model.Investment, error)
	Update(ctx context.Context, id, userID uuid.UUID, patch model.InvestmentPatch) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Migrate(ctx context.Context) error
}
