package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"hfbridge/internal/domain"
	"hfbridge/internal/streaming"
)

// Gateway is the ledger RPC surface this layer consumes. One method per
// backend operation; raw shapes are decoded into domain records before
// they cross this interface.
type Gateway interface {
	Whoami(ctx context.Context) (domain.Counterparty, error)
	Whois(ctx context.Context, agentID string) (domain.Counterparty, error)
	LedgerState(ctx context.Context) (domain.Ledger, error)
	ListPending(ctx context.Context, origins []string) (domain.PendingSet, error)
	ListPendingCanceled(ctx context.Context, origins []string) (domain.PendingSet, error)
	ListPendingDeclined(ctx context.Context, origins []string) (domain.PendingSet, error)
	ListTransactions(ctx context.Context, stateFilter string) ([]domain.LedgerRecord, error)
	CreateRequest(ctx context.Context, counterparty, amount, notes, deadline string) (string, error)
	CreatePromise(ctx context.Context, counterparty, amount, notes, deadline, requestOrigin string) (string, error)
	DeclinePending(ctx context.Context, origin, reason string) (string, error)
	CancelTransactions(ctx context.Context, origin, reason string) (string, error)
	Cancel(ctx context.Context, origin, reason string) (string, error)
	ReceivePayments(ctx context.Context, origins []string) (map[string]domain.ReceiveOutcome, error)
}

// AuditStream receives one message per successful lifecycle mutation. A
// nil stream disables auditing.
type AuditStream interface {
	PublishLifecycle(ctx context.Context, event streaming.AuditEvent) error
}

// Service assembles canonical transaction collections and drives lifecycle
// mutations against the gateway. It holds no transaction state of its own.
type Service struct {
	gateway Gateway
	audit   AuditStream
	logger  *slog.Logger
}

func NewService(gateway Gateway, audit AuditStream, logger *slog.Logger) (*Service, error) {
	if gateway == nil {
		return nil, errNilGateway
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, audit: audit, logger: logger}, nil
}

func (s *Service) Whoami(ctx context.Context) (domain.Counterparty, error) {
	return s.gateway.Whoami(ctx)
}

func (s *Service) Ledger(ctx context.Context) (domain.Ledger, error) {
	return s.gateway.LedgerState(ctx)
}

// AllCompleted returns every settled transaction, newest first.
func (s *Service) AllCompleted(ctx context.Context) ([]domain.Transaction, error) {
	records, err := s.presentAll(ctx, "")
	if err != nil {
		return nil, err
	}
	return pipeline(records, byStatus(domain.StatusCompleted)), nil
}

// AllActionable returns the pending requests and offers addressed to the
// current agent, newest first.
func (s *Service) AllActionable(ctx context.Context) ([]domain.Transaction, error) {
	set, err := s.gateway.ListPending(ctx, nil)
	if err != nil {
		return nil, err
	}
	actionable, err := presentPendingSet(set)
	if err != nil {
		return nil, err
	}
	return pipeline(actionable, nil), nil
}

// AllWaiting returns the transactions the current agent authored and is
// still waiting on, newest first.
func (s *Service) AllWaiting(ctx context.Context) ([]domain.Transaction, error) {
	records, err := s.presentAll(ctx, "")
	if err != nil {
		return nil, err
	}
	return pipeline(records, byStatus(domain.StatusPending)), nil
}

// AllNonPending returns completed, canceled and declined transactions,
// newest first.
func (s *Service) AllNonPending(ctx context.Context) ([]domain.Transaction, error) {
	records, err := s.presentAll(ctx, "")
	if err != nil {
		return nil, err
	}
	return pipeline(records, func(tx domain.Transaction) bool {
		return tx.Status != domain.StatusPending
	}), nil
}

// AllNonActionableByState narrows the list server-side by raw state string
// and returns the completed results, newest first.
func (s *Service) AllNonActionableByState(ctx context.Context, stateFilter string) ([]domain.Transaction, error) {
	records, err := s.presentAll(ctx, stateFilter)
	if err != nil {
		return nil, err
	}
	return pipeline(records, byStatus(domain.StatusCompleted)), nil
}

// GetPending returns the single actionable transaction with the given
// origin. An empty result is ErrNotFound, never a nil record.
func (s *Service) GetPending(ctx context.Context, origin string) (domain.Transaction, error) {
	set, err := s.gateway.ListPending(ctx, []string{origin})
	if err != nil {
		return domain.Transaction{}, err
	}
	return firstPending(set, origin, domain.StatusPending)
}

// GetPendingCanceled returns the canceled detail for one origin.
func (s *Service) GetPendingCanceled(ctx context.Context, origin string) (domain.Transaction, error) {
	set, err := s.gateway.ListPendingCanceled(ctx, []string{origin})
	if err != nil {
		return domain.Transaction{}, err
	}
	return firstPending(set, origin, domain.StatusCanceled)
}

// GetPendingDeclined returns the declined detail for one origin. This is
// the record RecoverFunds acts on.
func (s *Service) GetPendingDeclined(ctx context.Context, origin string) (domain.Transaction, error) {
	set, err := s.gateway.ListPendingDeclined(ctx, []string{origin})
	if err != nil {
		return domain.Transaction{}, err
	}
	return firstPending(set, origin, domain.StatusDeclined)
}

func (s *Service) presentAll(ctx context.Context, stateFilter string) ([]domain.Transaction, error) {
	records, err := s.gateway.ListTransactions(ctx, stateFilter)
	if err != nil {
		return nil, err
	}
	presented := make([]domain.Transaction, 0, len(records))
	for _, rec := range records {
		tx, ok, err := PresentRecord(rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		presented = append(presented, tx)
	}
	return presented, nil
}

func presentPendingSet(set domain.PendingSet) ([]domain.Transaction, error) {
	presented := make([]domain.Transaction, 0, len(set.Requests)+len(set.Promises))
	for _, entry := range set.Requests {
		tx, err := PresentPending(entry)
		if err != nil {
			return nil, err
		}
		presented = append(presented, tx)
	}
	for _, entry := range set.Promises {
		tx, err := PresentPending(entry)
		if err != nil {
			return nil, err
		}
		presented = append(presented, tx)
	}
	return presented, nil
}

func firstPending(set domain.PendingSet, origin string, status domain.Status) (domain.Transaction, error) {
	presented, err := presentPendingSet(set)
	if err != nil {
		return domain.Transaction{}, err
	}
	for _, tx := range presented {
		if tx.ID != origin {
			continue
		}
		tx.Status = status
		return tx, nil
	}
	return domain.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, origin)
}

// pipeline applies the mandatory collection treatment: dedup by id with
// the first occurrence winning, filter, then sort newest first. Dedup
// before filtering keeps a settled transaction from resurfacing as
// pending when the backend still lists both entries.
func pipeline(txs []domain.Transaction, keep func(domain.Transaction) bool) []domain.Transaction {
	seen := make(map[string]struct{}, len(txs))
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}
		if keep != nil && !keep(tx) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Timestamp > out[b].Timestamp
	})
	return out
}

func byStatus(status domain.Status) func(domain.Transaction) bool {
	return func(tx domain.Transaction) bool {
		return tx.Status == status
	}
}
