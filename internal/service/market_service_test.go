package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// fakeMarketSource serves canned markets and counts API hits.
type fakeMarketSource struct {
	markets map[string]domain.Market
	calls   int
	lastMax int
}

func (f *fakeMarketSource) GetMarket(_ context.Context, id string) (domain.Market, error) {
	f.calls++
	m, ok := f.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarketSource) GetMarketBySlug(_ context.Context, slug string) (domain.Market, error) {
	f.calls++
	for _, m := range f.markets {
		if m.Slug == slug {
			return m, nil
		}
	}
	return domain.Market{}, domain.ErrNotFound
}

func (f *fakeMarketSource) GetAllMarkets(_ context.Context, _ MarketQuery, _, max int) ([]domain.Market, error) {
	f.calls++
	f.lastMax = max
	var all []domain.Market
	for _, m := range f.markets {
		if max > 0 && len(all) == max {
			break
		}
		all = append(all, m)
	}
	return all, nil
}

// memMarketStore is an in-memory domain.MarketStore.
type memMarketStore struct {
	markets map[string]domain.Market
}

func newMemMarketStore() *memMarketStore {
	return &memMarketStore{markets: map[string]domain.Market{}}
}

func (s *memMarketStore) Upsert(_ context.Context, m domain.Market) error {
	s.markets[m.ID] = m
	return nil
}

func (s *memMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memMarketStore) GetByTokenID(_ context.Context, tokenID string) (domain.Market, error) {
	for _, m := range s.markets {
		if m.TokenIDs[0] == tokenID || m.TokenIDs[1] == tokenID {
			return m, nil
		}
	}
	return domain.Market{}, domain.ErrNotFound
}

func (s *memMarketStore) ListActive(_ context.Context, limit int) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		if m.Active && !m.Closed {
			out = append(out, m)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func testMarket() domain.Market {
	return domain.Market{
		ID:       "512329",
		Question: "Will it happen?",
		Slug:     "will-it-happen",
		TokenIDs: [2]string{"111", "222"},
		Outcomes: [2]string{"Yes", "No"},
		Active:   true,
	}
}

func TestGetMarketReadThrough(t *testing.T) {
	source := &fakeMarketSource{markets: map[string]domain.Market{"512329": testMarket()}}
	store := newMemMarketStore()
	svc := NewMarketService(source, store, testLogger())

	m, err := svc.GetMarket(context.Background(), "512329")
	require.NoError(t, err)
	assert.Equal(t, testMarket(), m)
	assert.Equal(t, 1, source.calls)

	// Second read is answered by the store.
	m2, err := svc.GetMarket(context.Background(), "512329")
	require.NoError(t, err)
	assert.Equal(t, m, m2)
	assert.Equal(t, 1, source.calls)
}

func TestGetMarketWithoutStore(t *testing.T) {
	source := &fakeMarketSource{markets: map[string]domain.Market{"512329": testMarket()}}
	svc := NewMarketService(source, nil, testLogger())

	_, err := svc.GetMarket(context.Background(), "512329")
	require.NoError(t, err)
	_, err = svc.GetMarket(context.Background(), "512329")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls, "no store means every read hits the API")
}

func TestGetMarketNotFound(t *testing.T) {
	svc := NewMarketService(&fakeMarketSource{markets: map[string]domain.Market{}}, nil, testLogger())
	_, err := svc.GetMarket(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveToken(t *testing.T) {
	store := newMemMarketStore()
	require.NoError(t, store.Upsert(context.Background(), testMarket()))
	svc := NewMarketService(&fakeMarketSource{}, store, testLogger())

	m, err := svc.ResolveToken(context.Background(), "222")
	require.NoError(t, err)
	assert.Equal(t, "512329", m.ID)

	_, err = svc.ResolveToken(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveTokenWithoutStore(t *testing.T) {
	svc := NewMarketService(&fakeMarketSource{}, nil, testLogger())
	_, err := svc.ResolveToken(context.Background(), "111")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestListMarketsPersists(t *testing.T) {
	source := &fakeMarketSource{markets: map[string]domain.Market{"512329": testMarket()}}
	store := newMemMarketStore()
	svc := NewMarketService(source, store, testLogger())

	markets, err := svc.ListMarkets(context.Background(), MarketQuery{}, 100)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, 100, source.lastMax, "display limit reaches the source")

	stored, err := store.GetByID(context.Background(), "512329")
	require.NoError(t, err)
	assert.Equal(t, testMarket(), stored)
}
