package application

import (
	"fmt"

	"hfbridge/internal/domain"
)

// PresentPending maps one raw pending entry to a canonical Transaction.
// Direction is fixed by the event kind: a request pulls funds toward its
// author and an offer pushes them away, and the record keeps that
// direction no matter which pending collection it was read from.
func PresentPending(entry domain.PendingEntry) (domain.Transaction, error) {
	kind, ok := entry.Event.Kind()
	if !ok {
		return domain.Transaction{}, fmt.Errorf("pending entry %s: %w", entry.Origin, ErrUnrecognizedEvent)
	}

	switch kind {
	case domain.KindRequest:
		return presentRequest(entry.Origin, domain.DirectionIncoming, entry.Timestamp, entry.CounterpartyID, *entry.Event.Request), nil
	case domain.KindPromise:
		origin := entry.Origin
		if entry.Event.Promise.Request != "" {
			// An offer fulfilling a request presents under the request's
			// origin so the two halves of the exchange unify.
			origin = entry.Event.Promise.Request
		}
		return presentOffer(origin, domain.DirectionOutgoing, entry.Timestamp, entry.CounterpartyID, *entry.Event.Promise), nil
	default:
		return domain.Transaction{}, fmt.Errorf("pending entry %s holds %s event: %w", entry.Origin, kind, ErrUnrecognizedEvent)
	}
}

// PresentRecord maps one raw ledger record to a canonical Transaction.
// ok is false for rejected-stage records, which are dropped from every
// view; the product keeps them off the ledger on purpose.
func PresentRecord(rec domain.LedgerRecord) (domain.Transaction, bool, error) {
	switch rec.State.Stage {
	case domain.StageCompleted:
		tx, err := presentSettlement(rec)
		return tx, err == nil, err
	case domain.StageCanceled:
		tx, err := presentCanceled(rec)
		return tx, err == nil, err
	case domain.StageRequested:
		if rec.Event.Request == nil {
			return domain.Transaction{}, false, fmt.Errorf("requested record %s has no Request body: %w", rec.Origin, ErrUnrecognizedEvent)
		}
		body := *rec.Event.Request
		return presentRequest(rec.Origin, rec.State.Direction, rec.Timestamp, body.From, body), true, nil
	case domain.StageApproved:
		// Approved only means a payment was offered, either against a
		// request or standalone; it is still a waiting state.
		if rec.Event.Promise == nil {
			return domain.Transaction{}, false, fmt.Errorf("approved record %s has no Promise body: %w", rec.Origin, ErrUnrecognizedEvent)
		}
		body := *rec.Event.Promise
		return presentOffer(rec.Origin, rec.State.Direction, rec.Timestamp, body.Tx.To, body), true, nil
	case domain.StageRejected:
		return domain.Transaction{}, false, nil
	default:
		return domain.Transaction{}, false, fmt.Errorf("record %s stage %q: %w", rec.Origin, rec.State.Stage, ErrUnrecognizedEvent)
	}
}

func presentRequest(origin string, direction domain.Direction, timestamp, counterparty string, body domain.RequestBody) domain.Transaction {
	return domain.Transaction{
		ID:           origin,
		Amount:       body.Amount,
		Counterparty: domain.Counterparty{ID: counterparty},
		Direction:    direction,
		Status:       domain.StatusPending,
		Type:         domain.TypeRequest,
		Timestamp:    timestamp,
		Notes:        body.Notes,
	}
}

func presentOffer(origin string, direction domain.Direction, timestamp, counterparty string, body domain.PromiseBody) domain.Transaction {
	return domain.Transaction{
		ID:           origin,
		Amount:       body.Tx.Amount,
		Counterparty: domain.Counterparty{ID: counterparty},
		Direction:    direction,
		Status:       domain.StatusPending,
		Type:         domain.TypeOffer,
		Timestamp:    timestamp,
		Notes:        body.Tx.Notes,
	}
}

func presentSettlement(rec domain.LedgerRecord) (domain.Transaction, error) {
	kind, ok := rec.Event.Kind()
	if !ok {
		return domain.Transaction{}, fmt.Errorf("completed record %s: %w", rec.Origin, ErrUnrecognizedEvent)
	}
	var promise domain.PromiseBody
	switch kind {
	case domain.KindReceipt:
		promise = rec.Event.Receipt.Cheque.Invoice.Promise
	case domain.KindCheque:
		promise = rec.Event.Cheque.Invoice.Promise
	default:
		return domain.Transaction{}, fmt.Errorf("completed record %s holds %s event: %w", rec.Origin, kind, ErrUnrecognizedEvent)
	}

	counterparty := promise.Tx.To
	if rec.State.Direction == domain.DirectionIncoming {
		counterparty = promise.Tx.From
	}
	// The request flag on the inner promise recovers which action
	// originated the exchange.
	txType := domain.TypeOffer
	if promise.Request != "" {
		txType = domain.TypeRequest
	}

	return domain.Transaction{
		ID:             rec.Origin,
		Amount:         promise.Tx.Amount,
		Counterparty:   domain.Counterparty{ID: counterparty},
		Direction:      rec.State.Direction,
		Status:         domain.StatusCompleted,
		Type:           txType,
		Timestamp:      rec.Timestamp,
		Notes:          promise.Tx.Notes,
		Fees:           rec.Adjustment.Fees,
		PresentBalance: rec.Adjustment.ResultingBalance,
	}, nil
}

func presentCanceled(rec domain.LedgerRecord) (domain.Transaction, error) {
	if rec.Event.Cancel == nil {
		return domain.Transaction{}, fmt.Errorf("canceled record %s has no Cancel body: %w", rec.Origin, ErrUnrecognizedEvent)
	}
	wrapper := *rec.Event.Cancel

	var tx domain.Transaction
	switch {
	case wrapper.Entry.Request != nil:
		body := *wrapper.Entry.Request
		tx = presentRequest(rec.Origin, rec.State.Direction, rec.Timestamp, body.From, body)
	case wrapper.Entry.Promise != nil:
		body := *wrapper.Entry.Promise
		tx = presentOffer(rec.Origin, rec.State.Direction, rec.Timestamp, body.Tx.To, body)
	default:
		return domain.Transaction{}, fmt.Errorf("cancel wrapper on %s holds neither Request nor Promise: %w", rec.Origin, ErrUnrecognizedEvent)
	}

	tx.ID = rec.Origin
	tx.Status = domain.StatusCanceled
	tx.Reason = wrapper.Reason
	return tx, nil
}
