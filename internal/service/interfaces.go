package service

//go:generate mockgen -source=interfaces.go -destination=../mocks/mock_service.go -package=mocks

import (
	"context"

	"github.com/solvys/predictipulse/internal/models"
)

// Cache is an interface that abstracts modeled probability storage
// This allows for easier testing and mocking
type Cache interface {
	Set(ctx context.Context, prob *models.ModeledProbability) error
	Get(ctx context.Context, sport, selection string) (*models.ModeledProbability, error)
	SetBatch(ctx context.Context, probs []*models.ModeledProbability) error
	GetBySport(ctx context.Context, sport string) ([]*models.ModeledProbability, error)
	Ping(ctx context.Context) error
	Close() error
}

// Modeler is an interface that abstracts the sharp consensus model
type Modeler interface {
	Model(odds []*models.SharpOdds) ([]*models.ModeledProbability, error)
}
