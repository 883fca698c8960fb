package port

import (
	"context"

	"github.com/olyamironova/txbuilder/internal/domain"
)

// Cache stores the latest polled market snapshot per key. A missing key is (nil, nil).
type Cache interface {
	SetSnapshot(ctx context.Context, snap *domain.MarketSnapshot) error
	GetSnapshot(ctx context.Context, key string) (*domain.MarketSnapshot, error)
}
