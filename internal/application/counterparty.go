package application

import (
	"context"
	"log/slog"
	"sync"

	"hfbridge/internal/domain"
)

// NicknameCache holds previously resolved peer nicknames. A nil cache
// means every lookup goes to the backend.
type NicknameCache interface {
	Get(ctx context.Context, agentID string) (string, bool)
	Set(ctx context.Context, agentID, nickname string)
}

// Resolver maps peer ids to display identity. An unresolvable peer is an
// expected, displayable result and never fails a view.
type Resolver struct {
	gateway Gateway
	cache   NicknameCache
	logger  *slog.Logger
}

func NewResolver(gateway Gateway, cache NicknameCache, logger *slog.Logger) (*Resolver, error) {
	if gateway == nil {
		return nil, errNilGateway
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{gateway: gateway, cache: cache, logger: logger}, nil
}

// GetCounterparty resolves one peer id. Backend errors and absent peers
// both come back as a NotFound record with the id preserved.
func (r *Resolver) GetCounterparty(ctx context.Context, agentID string) domain.Counterparty {
	if r.cache != nil {
		if nickname, ok := r.cache.Get(ctx, agentID); ok {
			return domain.Counterparty{ID: agentID, Nickname: nickname}
		}
	}
	resolved, err := r.gateway.Whois(ctx, agentID)
	if err != nil {
		r.logger.Debug("counterparty unresolvable", "agent", agentID, "error", err)
		return domain.Counterparty{ID: agentID, NotFound: true}
	}
	if resolved.ID == "" {
		resolved.ID = agentID
	}
	if r.cache != nil && resolved.Nickname != "" {
		r.cache.Set(ctx, agentID, resolved.Nickname)
	}
	return resolved
}

// GetTxCounterparties resolves the distinct counterparty ids in a
// transaction list. Lookups run in parallel and are independent; one
// failed id never aborts the rest.
func (r *Resolver) GetTxCounterparties(ctx context.Context, txs []domain.Transaction) []domain.Counterparty {
	seen := make(map[string]struct{}, len(txs))
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		id := tx.Counterparty.ID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	resolved := make([]domain.Counterparty, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			resolved[i] = r.GetCounterparty(ctx, id)
		}(i, id)
	}
	wg.Wait()
	return resolved
}

// Enrich merges resolved identity onto each transaction's counterparty
// reference. Unresolvable peers keep their bare id with NotFound set.
func (r *Resolver) Enrich(ctx context.Context, txs []domain.Transaction) []domain.Transaction {
	resolved := r.GetTxCounterparties(ctx, txs)
	byID := make(map[string]domain.Counterparty, len(resolved))
	for _, peer := range resolved {
		byID[peer.ID] = peer
	}
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if peer, ok := byID[tx.Counterparty.ID]; ok {
			tx.Counterparty = peer
		}
		out[i] = tx
	}
	return out
}
