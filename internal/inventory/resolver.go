// Package inventory reads the coins an owner holds for one asset type.
package inventory

import (
	"context"
	"errors"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
	"go.uber.org/zap"
)

// maxPages stops a ledger that keeps returning the same cursor.
const maxPages = 1000

type Resolver struct {
	reader port.LedgerReader
	logger *zap.Logger
}

func NewResolver(reader port.LedgerReader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{reader: reader, logger: logger}
}

// Resolve returns every coin of asset currently owned by owner. An empty
// result is a success; only an unreachable read channel is an error.
func (r *Resolver) Resolve(ctx context.Context, owner string, asset domain.AssetType) ([]domain.Coin, error) {
	if owner == "" {
		return nil, domain.NewValidationError("owner", "is required")
	}
	if asset.Type == "" {
		return nil, domain.NewValidationError("asset", "is required")
	}

	coins := []domain.Coin{}
	cursor := ""
	for page := 0; ; page++ {
		if page == maxPages {
			return nil, &domain.NetworkError{Op: "getCoins", Err: errors.New("pagination did not terminate")}
		}
		res, err := r.reader.GetCoins(ctx, owner, asset.Type, cursor)
		if err != nil {
			var netErr *domain.NetworkError
			if errors.As(err, &netErr) {
				return nil, err
			}
			return nil, &domain.NetworkError{Op: "getCoins", Err: err}
		}
		if res == nil {
			break
		}
		for _, c := range res.Coins {
			if c.Asset.Type != asset.Type {
				continue
			}
			c.Asset = asset
			if c.Owner == "" {
				c.Owner = owner
			}
			coins = append(coins, c)
		}
		if !res.HasNextPage || res.NextCursor == "" || res.NextCursor == cursor {
			break
		}
		cursor = res.NextCursor
	}
	return coins, nil
}

// ResolveOrEmpty is Resolve for callers that tolerate stale or missing data.
func (r *Resolver) ResolveOrEmpty(ctx context.Context, owner string, asset domain.AssetType) []domain.Coin {
	coins, err := r.Resolve(ctx, owner, asset)
	if err != nil {
		r.logger.Warn("inventory read degraded to empty",
			zap.String("owner", owner), zap.String("asset", asset.Type), zap.Error(err))
		return []domain.Coin{}
	}
	return coins
}

// ResolveMany resolves several asset types for one owner, keyed by type.
func (r *Resolver) ResolveMany(ctx context.Context, owner string, assets ...domain.AssetType) (map[string][]domain.Coin, error) {
	out := make(map[string][]domain.Coin, len(assets))
	for _, a := range assets {
		if _, done := out[a.Type]; done {
			continue
		}
		coins, err := r.Resolve(ctx, owner, a)
		if err != nil {
			return nil, err
		}
		out[a.Type] = coins
	}
	return out, nil
}
