package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"hfbridge/internal/domain"
)

type memoryCache struct {
	mu    sync.Mutex
	nicks map[string]string
	hits  int
}

func (c *memoryCache) Get(ctx context.Context, agentID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nick, ok := c.nicks[agentID]
	if ok {
		c.hits++
	}
	return nick, ok
}

func (c *memoryCache) Set(ctx context.Context, agentID, nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nicks == nil {
		c.nicks = make(map[string]string)
	}
	c.nicks[agentID] = nickname
}

func newTestResolver(t *testing.T, gw *stubGateway, cache NicknameCache) *Resolver {
	t.Helper()
	resolver, err := NewResolver(gw, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return resolver
}

func TestGetCounterpartyUnresolvableNeverThrows(t *testing.T) {
	gw := &stubGateway{whoisErr: errors.New("agent offline")}
	resolver := newTestResolver(t, gw, nil)

	peer := resolver.GetCounterparty(context.Background(), "unknown-agent")
	if peer.ID != "unknown-agent" || !peer.NotFound {
		t.Fatalf("peer = %+v, want id preserved with NotFound", peer)
	}
}

func TestGetCounterpartyCachesNickname(t *testing.T) {
	gw := &stubGateway{
		whoisByID: map[string]domain.Counterparty{
			"peer-a": {ID: "peer-a", Nickname: "Alice"},
		},
	}
	cache := &memoryCache{}
	resolver := newTestResolver(t, gw, cache)

	first := resolver.GetCounterparty(context.Background(), "peer-a")
	if first.Nickname != "Alice" {
		t.Fatalf("first = %+v", first)
	}
	second := resolver.GetCounterparty(context.Background(), "peer-a")
	if second.Nickname != "Alice" {
		t.Fatalf("second = %+v", second)
	}
	if cache.hits != 1 {
		t.Fatalf("cache hits = %d, want 1", cache.hits)
	}
}

func TestGetTxCounterpartiesDedupesAndTolerates(t *testing.T) {
	gw := &stubGateway{
		whoisByID: map[string]domain.Counterparty{
			"peer-a": {ID: "peer-a", Nickname: "Alice"},
		},
	}
	resolver := newTestResolver(t, gw, nil)

	txs := []domain.Transaction{
		{ID: "t1", Counterparty: domain.Counterparty{ID: "peer-a"}},
		{ID: "t2", Counterparty: domain.Counterparty{ID: "peer-a"}},
		{ID: "t3", Counterparty: domain.Counterparty{ID: "peer-gone"}},
	}
	resolved := resolver.GetTxCounterparties(context.Background(), txs)
	if len(resolved) != 2 {
		t.Fatalf("resolved %d peers, want 2 distinct", len(resolved))
	}
	byID := make(map[string]domain.Counterparty)
	for _, peer := range resolved {
		byID[peer.ID] = peer
	}
	if byID["peer-a"].Nickname != "Alice" {
		t.Fatalf("peer-a = %+v", byID["peer-a"])
	}
	if !byID["peer-gone"].NotFound {
		t.Fatalf("peer-gone = %+v, want NotFound", byID["peer-gone"])
	}
}

func TestEnrichMergesIdentityOntoTransactions(t *testing.T) {
	gw := &stubGateway{
		whoisByID: map[string]domain.Counterparty{
			"peer-a": {ID: "peer-a", Nickname: "Alice"},
		},
	}
	resolver := newTestResolver(t, gw, nil)

	txs := []domain.Transaction{
		{ID: "t1", Counterparty: domain.Counterparty{ID: "peer-a"}},
		{ID: "t2", Counterparty: domain.Counterparty{ID: "peer-gone"}},
	}
	enriched := resolver.Enrich(context.Background(), txs)
	if enriched[0].Counterparty.Nickname != "Alice" {
		t.Fatalf("t1 counterparty = %+v", enriched[0].Counterparty)
	}
	if !enriched[1].Counterparty.NotFound || enriched[1].Counterparty.ID != "peer-gone" {
		t.Fatalf("t2 counterparty = %+v", enriched[1].Counterparty)
	}
}
