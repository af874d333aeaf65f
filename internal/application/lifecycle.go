package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hfbridge/internal/domain"
	"hfbridge/internal/streaming"
)

// The backend requires a deadline on request and promise entries; the
// consuming layer never exposes one, so a far-future constant stands in.
const defaultDeadline = "4019-01-02T03:04:05.678901234+00:00"

const cancelReason = "canceled by author"

// CreateRequest issues a request for payment and returns the optimistic
// canonical record. The shape matches what PresentPending will produce for
// the same origin on the next poll.
func (s *Service) CreateRequest(ctx context.Context, counterparty, amount, notes string) (domain.Transaction, error) {
	origin, err := s.gateway.CreateRequest(ctx, counterparty, amount, notes, defaultDeadline)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx := domain.Transaction{
		ID:           origin,
		Amount:       amount,
		Counterparty: domain.Counterparty{ID: counterparty},
		Direction:    domain.DirectionIncoming,
		Status:       domain.StatusPending,
		Type:         domain.TypeRequest,
		Timestamp:    nowISO(),
		Notes:        notes,
	}
	s.publishAudit(ctx, streaming.AuditRequestCreated, tx)
	return tx, nil
}

// CreateOffer issues a promise of payment. When requestOrigin is set the
// offer fulfills an existing request and presents under the request's id;
// otherwise the new origin is the id.
func (s *Service) CreateOffer(ctx context.Context, counterparty, amount, notes, requestOrigin string) (domain.Transaction, error) {
	origin, err := s.gateway.CreatePromise(ctx, counterparty, amount, notes, defaultDeadline, requestOrigin)
	if err != nil {
		return domain.Transaction{}, err
	}
	id := origin
	if requestOrigin != "" {
		id = requestOrigin
	}
	tx := domain.Transaction{
		ID:           id,
		Amount:       amount,
		Counterparty: domain.Counterparty{ID: counterparty},
		Direction:    domain.DirectionOutgoing,
		Status:       domain.StatusPending,
		Type:         domain.TypeOffer,
		Timestamp:    nowISO(),
		Notes:        notes,
	}
	s.publishAudit(ctx, streaming.AuditOfferCreated, tx)
	return tx, nil
}

// Accept receives payment for one actionable transaction. A backend error
// for the origin fails the call; a completed record is never returned for
// a failed acceptance.
func (s *Service) Accept(ctx context.Context, origin string) (domain.Transaction, error) {
	tx, err := s.GetPending(ctx, origin)
	if err != nil {
		return domain.Transaction{}, err
	}
	outcomes, err := s.gateway.ReceivePayments(ctx, []string{origin})
	if err != nil {
		return domain.Transaction{}, err
	}
	outcome, ok := outcomes[origin]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, origin)
	}
	if !outcome.OK {
		return domain.Transaction{}, fmt.Errorf("accept %s: %s: %w", origin, outcome.Err, ErrBackendRejected)
	}
	tx.Status = domain.StatusCompleted
	tx.Direction = domain.DirectionIncoming
	s.publishAudit(ctx, streaming.AuditAccepted, tx)
	return tx, nil
}

// AcceptMany receives payment for several origins in one round trip. The
// backend reports a per-origin outcome; failed origins are returned
// alongside the successes instead of failing the batch. Successes come
// back newest first.
func (s *Service) AcceptMany(ctx context.Context, origins []string) ([]domain.Transaction, []BatchFailure, error) {
	if len(origins) == 0 {
		return nil, nil, nil
	}
	set, err := s.gateway.ListPending(ctx, origins)
	if err != nil {
		return nil, nil, err
	}
	return s.receivePending(ctx, set, origins)
}

// AcceptAll receives payment for every actionable transaction.
func (s *Service) AcceptAll(ctx context.Context) ([]domain.Transaction, []BatchFailure, error) {
	set, err := s.gateway.ListPending(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	pending, err := presentPendingSet(set)
	if err != nil {
		return nil, nil, err
	}
	if len(pending) == 0 {
		return nil, nil, nil
	}
	origins := make([]string, 0, len(pending))
	for _, tx := range pending {
		origins = append(origins, tx.ID)
	}
	return s.receivePending(ctx, set, origins)
}

func (s *Service) receivePending(ctx context.Context, set domain.PendingSet, origins []string) ([]domain.Transaction, []BatchFailure, error) {
	pending, err := presentPendingSet(set)
	if err != nil {
		return nil, nil, err
	}
	byOrigin := make(map[string]domain.Transaction, len(pending))
	for _, tx := range pending {
		if _, dup := byOrigin[tx.ID]; !dup {
			byOrigin[tx.ID] = tx
		}
	}

	outcomes, err := s.gateway.ReceivePayments(ctx, origins)
	if err != nil {
		return nil, nil, err
	}

	// The outcome map carries no ordering; iterate the requested origins
	// and sort the successes afterwards.
	var accepted []domain.Transaction
	var failed []BatchFailure
	for _, origin := range origins {
		outcome, ok := outcomes[origin]
		if !ok {
			failed = append(failed, BatchFailure{Origin: origin, Reason: "no outcome reported"})
			continue
		}
		if !outcome.OK {
			failed = append(failed, BatchFailure{Origin: origin, Reason: outcome.Err})
			continue
		}
		tx, ok := byOrigin[origin]
		if !ok {
			failed = append(failed, BatchFailure{Origin: origin, Reason: "not in pending list"})
			continue
		}
		tx.Status = domain.StatusCompleted
		tx.Direction = domain.DirectionIncoming
		accepted = append(accepted, tx)
		s.publishAudit(ctx, streaming.AuditAccepted, tx)
	}
	sort.Slice(accepted, func(a, b int) bool {
		return accepted[a].Timestamp > accepted[b].Timestamp
	})
	if len(failed) > 0 {
		s.logger.Warn("batch accept completed with failures", "accepted", len(accepted), "failed", len(failed))
	}
	return accepted, failed, nil
}

// Decline turns down an actionable transaction. The backend's proof value
// is attached so the counterparty can recover the declined funds later.
func (s *Service) Decline(ctx context.Context, origin string) (domain.Transaction, error) {
	tx, err := s.GetPending(ctx, origin)
	if err != nil {
		return domain.Transaction{}, err
	}
	proof, err := s.gateway.DeclinePending(ctx, origin, "declined by counterparty")
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.Status = domain.StatusDeclined
	tx.Proof = proof
	s.publishAudit(ctx, streaming.AuditDeclined, tx)
	return tx, nil
}

// Cancel withdraws an outstanding request the current agent authored. The
// record holds pending-cancelation until the next fetch confirms the
// backend committed the cancel.
func (s *Service) Cancel(ctx context.Context, origin string) (domain.Transaction, error) {
	authored, err := s.AllWaiting(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	var tx domain.Transaction
	found := false
	for _, candidate := range authored {
		if candidate.ID == origin &&
			candidate.Direction == domain.DirectionIncoming &&
			candidate.Type == domain.TypeRequest {
			tx = candidate
			found = true
			break
		}
	}
	if !found {
		return domain.Transaction{}, fmt.Errorf("%w: no outstanding authored request %s", ErrNotFound, origin)
	}
	if _, err := s.gateway.CancelTransactions(ctx, origin, cancelReason); err != nil {
		return domain.Transaction{}, err
	}
	tx.Status = domain.StatusPendingCancelation
	tx.Reason = cancelReason
	s.publishAudit(ctx, streaming.AuditCanceled, tx)
	return tx, nil
}

// RecoverFunds cancels a previously declined offer, returning the held
// amount to the author's balance. Only declined transactions qualify.
func (s *Service) RecoverFunds(ctx context.Context, origin string) (domain.Transaction, error) {
	tx, err := s.GetPendingDeclined(ctx, origin)
	if err != nil {
		return domain.Transaction{}, err
	}
	proof, err := s.gateway.Cancel(ctx, origin, cancelReason)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.Status = domain.StatusCanceled
	tx.Reason = cancelReason
	tx.Proof = proof
	s.publishAudit(ctx, streaming.AuditFundsRecovered, tx)
	return tx, nil
}

func (s *Service) publishAudit(ctx context.Context, kind streaming.AuditKind, tx domain.Transaction) {
	if s.audit == nil {
		return
	}
	event := streaming.AuditEvent{
		Kind:         kind,
		Origin:       tx.ID,
		Counterparty: tx.Counterparty.ID,
		Amount:       tx.Amount,
		Status:       string(tx.Status),
		Timestamp:    nowISO(),
	}
	if err := s.audit.PublishLifecycle(ctx, event); err != nil {
		// Auditing never blocks a mutation the backend already committed.
		s.logger.Warn("audit publish failed", "kind", string(kind), "origin", tx.ID, "error", err)
	}
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
