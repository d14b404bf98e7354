package cards

import (
	"context"
	"errors"
	"sync"

	"github.com/lutefd/tabletop-api/internal/domain/decks"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Fetcher interface {
	Card(ctx context.Context, id int) (decks.CardMetadata, error)
}

type Cache interface {
	Cards(ctx context.Context, ids []int) (map[int]decks.CardMetadata, error)
	Put(ctx context.Context, cards []decks.CardMetadata) error
}

// Resolver serves card metadata from the cache and fetches the rest.
type Resolver struct {
	fetcher Fetcher
	cache   Cache
	limit   int
	logger  *zap.Logger
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(fetcher Fetcher, cache Cache, concurrency int, logger *zap.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, cache: cache, limit: concurrency, logger: logger}
}

// Resolve returns metadata for every id the card database knows. Unknown
// cards are skipped; any other fetch error fails the call.
func (r *Resolver) Resolve(ctx context.Context, ids []int) (map[int]decks.CardMetadata, error) {
	out := make(map[int]decks.CardMetadata, len(ids))
	if r.cache != nil {
		cached, err := r.cache.Cards(ctx, ids)
		if err != nil {
			r.logger.Warn("card cache read failed", zap.Error(err))
		} else {
			for id, card := range cached {
				out[id] = card
			}
		}
	}

	missing := make([]int, 0)
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	fetched := make([]decks.CardMetadata, 0, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for _, id := range missing {
		id := id
		g.Go(func() error {
			card, err := r.fetcher.Card(gctx, id)
			if errors.Is(err, ErrCardNotFound) {
				r.logger.Warn("card not found", zap.Int("cardId", id))
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = card
			fetched = append(fetched, card)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, fetched); err != nil {
			r.logger.Warn("card cache write failed", zap.Error(err))
		}
	}
	r.logger.Debug("resolved cards", zap.Int("requested", len(ids)), zap.Int("fetched", len(fetched)))
	return out, nil
}
