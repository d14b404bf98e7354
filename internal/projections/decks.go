package projections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/decks"
	"github.com/lutefd/tabletop-api/internal/events"
	"go.uber.org/zap"
)

type DeckTags struct {
	DeckID uuid.UUID `json:"deckId"`
	Tags   []string  `json:"tags"`
}

func (s *Service) SaveDeck(ctx context.Context, d decks.Deck) (decks.Deck, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return decks.Deck{}, fmt.Errorf("%w: name is required", ErrInvalidDeck)
	}
	for _, c := range d.Cards {
		if c.CardID <= 0 {
			return decks.Deck{}, fmt.Errorf("%w: card id %d", ErrInvalidDeck, c.CardID)
		}
		if c.Quantity <= 0 {
			return decks.Deck{}, fmt.Errorf("%w: card %d has quantity %d", ErrInvalidDeck, c.CardID, c.Quantity)
		}
	}

	now := s.now().UTC()
	d.CreatedAt = now
	d.DeletedAt = nil
	d.Tags = []string{}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	} else {
		// an update keeps identity and tags; tags change only through RetagDeck
		existing, err := s.store.GetDeck(ctx, d.ID)
		switch {
		case err == nil:
			d.CreatedAt = existing.CreatedAt
			if existing.OwnerID != nil {
				d.OwnerID = existing.OwnerID
			}
			if existing.Tags != nil {
				d.Tags = existing.Tags
			}
		case !errors.Is(err, decks.ErrNotFound):
			return decks.Deck{}, fmt.Errorf("get deck: %w", err)
		}
	}
	d.UpdatedAt = now

	if err := s.store.SaveDeck(ctx, d); err != nil {
		return decks.Deck{}, fmt.Errorf("save deck: %w", err)
	}
	if err := s.bus.Publish(ctx, events.Event{Name: events.DeckSaved, Payload: d}); err != nil {
		s.logger.Error("publish deck saved", zap.String("deck_id", d.ID.String()), zap.Error(err))
	}
	return d, nil
}

// RetagDeck recomputes and stores the archetype tags of a stored deck.
func (s *Service) RetagDeck(ctx context.Context, deckID uuid.UUID) (DeckTags, error) {
	d, err := s.store.GetDeck(ctx, deckID)
	if err != nil {
		if errors.Is(err, decks.ErrNotFound) {
			return DeckTags{}, ErrNotFound
		}
		return DeckTags{}, fmt.Errorf("get deck: %w", err)
	}

	tags, err := s.TagCards(ctx, d.Cards)
	if err != nil {
		return DeckTags{}, err
	}
	if err := s.store.UpdateDeckTags(ctx, deckID, tags, s.now().UTC()); err != nil {
		if errors.Is(err, decks.ErrNotFound) {
			return DeckTags{}, ErrNotFound
		}
		return DeckTags{}, fmt.Errorf("update tags: %w", err)
	}

	out := DeckTags{DeckID: deckID, Tags: tags}
	if err := s.bus.Publish(ctx, events.Event{Name: events.DeckTagged, Payload: out}); err != nil {
		s.logger.Error("publish deck tagged", zap.String("deck_id", deckID.String()), zap.Error(err))
	}
	return out, nil
}

// TagCards resolves metadata for cards and runs the archetype tagger.
// Cards the catalogue does not know are left out of the composition.
func (s *Service) TagCards(ctx context.Context, cards []decks.DeckCard) ([]string, error) {
	ids := decks.CardIDs(cards)
	if len(ids) == 0 {
		return []string{}, nil
	}
	meta, err := s.cards.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cards: %w", err)
	}
	if missing := len(ids) - len(meta); missing > 0 {
		s.logger.Warn("cards without metadata left out of tagging", zap.Int("missing", missing))
	}
	return decks.TagArchetypes(decks.Entries(cards, meta)), nil
}

func (s *Service) Deck(ctx context.Context, id uuid.UUID) (decks.Deck, error) {
	d, err := s.store.GetDeck(ctx, id)
	if errors.Is(err, decks.ErrNotFound) {
		return decks.Deck{}, ErrNotFound
	}
	return d, err
}
