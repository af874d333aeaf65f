package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"hfbridge/internal/domain"
	"hfbridge/internal/streaming"
)

type stubGateway struct {
	identity        domain.Counterparty
	whoisByID       map[string]domain.Counterparty
	whoisErr        error
	ledger          domain.Ledger
	pending         domain.PendingSet
	pendingCanceled domain.PendingSet
	pendingDeclined domain.PendingSet
	transactions    []domain.LedgerRecord
	outcomes        map[string]domain.ReceiveOutcome
	nextOrigin      string

	listPendingOrigins [][]string
	stateFilters       []string
	requestedArgs      []string
	promisedArgs       []string
	declined           []string
	canceledAuthored   []string
	canceled           []string
	received           [][]string
}

func (g *stubGateway) Whoami(ctx context.Context) (domain.Counterparty, error) {
	return g.identity, nil
}

func (g *stubGateway) Whois(ctx context.Context, agentID string) (domain.Counterparty, error) {
	if g.whoisErr != nil {
		return domain.Counterparty{}, g.whoisErr
	}
	peer, ok := g.whoisByID[agentID]
	if !ok {
		return domain.Counterparty{}, errors.New("agent not known")
	}
	return peer, nil
}

func (g *stubGateway) LedgerState(ctx context.Context) (domain.Ledger, error) {
	return g.ledger, nil
}

func (g *stubGateway) ListPending(ctx context.Context, origins []string) (domain.PendingSet, error) {
	g.listPendingOrigins = append(g.listPendingOrigins, origins)
	return filterSet(g.pending, origins), nil
}

func (g *stubGateway) ListPendingCanceled(ctx context.Context, origins []string) (domain.PendingSet, error) {
	return filterSet(g.pendingCanceled, origins), nil
}

func (g *stubGateway) ListPendingDeclined(ctx context.Context, origins []string) (domain.PendingSet, error) {
	return filterSet(g.pendingDeclined, origins), nil
}

func (g *stubGateway) ListTransactions(ctx context.Context, stateFilter string) ([]domain.LedgerRecord, error) {
	g.stateFilters = append(g.stateFilters, stateFilter)
	return g.transactions, nil
}

func (g *stubGateway) CreateRequest(ctx context.Context, counterparty, amount, notes, deadline string) (string, error) {
	g.requestedArgs = append(g.requestedArgs, counterparty+"/"+amount)
	return g.nextOrigin, nil
}

func (g *stubGateway) CreatePromise(ctx context.Context, counterparty, amount, notes, deadline, requestOrigin string) (string, error) {
	g.promisedArgs = append(g.promisedArgs, counterparty+"/"+amount+"/"+requestOrigin)
	return g.nextOrigin, nil
}

func (g *stubGateway) DeclinePending(ctx context.Context, origin, reason string) (string, error) {
	g.declined = append(g.declined, origin)
	return "proof-" + origin, nil
}

func (g *stubGateway) CancelTransactions(ctx context.Context, origin, reason string) (string, error) {
	g.canceledAuthored = append(g.canceledAuthored, origin)
	return "proof-" + origin, nil
}

func (g *stubGateway) Cancel(ctx context.Context, origin, reason string) (string, error) {
	g.canceled = append(g.canceled, origin)
	return "proof-" + origin, nil
}

func (g *stubGateway) ReceivePayments(ctx context.Context, origins []string) (map[string]domain.ReceiveOutcome, error) {
	g.received = append(g.received, origins)
	return g.outcomes, nil
}

// filterSet mirrors the backend's origins filter on pending-list calls.
func filterSet(set domain.PendingSet, origins []string) domain.PendingSet {
	if len(origins) == 0 {
		return set
	}
	want := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		want[origin] = struct{}{}
	}
	keep := func(entries []domain.PendingEntry) []domain.PendingEntry {
		var out []domain.PendingEntry
		for _, entry := range entries {
			id := entry.Origin
			if entry.Event.Promise != nil && entry.Event.Promise.Request != "" {
				id = entry.Event.Promise.Request
			}
			if _, ok := want[id]; ok {
				out = append(out, entry)
			}
		}
		return out
	}
	return domain.PendingSet{Requests: keep(set.Requests), Promises: keep(set.Promises)}
}

type recordingAudit struct {
	events []streaming.AuditEvent
	err    error
}

func (a *recordingAudit) PublishLifecycle(ctx context.Context, event streaming.AuditEvent) error {
	a.events = append(a.events, event)
	return a.err
}

func newTestService(t *testing.T, gw *stubGateway, audit AuditStream) *Service {
	t.Helper()
	svc, err := NewService(gw, audit, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func assertUniqueDescending(t *testing.T, txs []domain.Transaction) {
	t.Helper()
	seen := make(map[string]struct{}, len(txs))
	for i, tx := range txs {
		if _, dup := seen[tx.ID]; dup {
			t.Fatalf("duplicate id %s in collection", tx.ID)
		}
		seen[tx.ID] = struct{}{}
		if i > 0 && txs[i-1].Timestamp < tx.Timestamp {
			t.Fatalf("timestamps not descending: %s before %s", txs[i-1].Timestamp, tx.Timestamp)
		}
	}
}

func TestAllCompletedDedupsAndSorts(t *testing.T) {
	gw := &stubGateway{
		transactions: []domain.LedgerRecord{
			receiptRecord("dup", "2024-03-01T10:00:00Z", domain.DirectionIncoming, ""),
			receiptRecord("late", "2024-03-03T10:00:00Z", domain.DirectionIncoming, ""),
			// Second entry for the same origin must be silently dropped,
			// not merged.
			receiptRecord("dup", "2024-03-02T10:00:00Z", domain.DirectionOutgoing, ""),
			receiptRecord("early", "2024-02-01T10:00:00Z", domain.DirectionIncoming, ""),
		},
	}
	svc := newTestService(t, gw, nil)

	txs, err := svc.AllCompleted(context.Background())
	if err != nil {
		t.Fatalf("AllCompleted: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	assertUniqueDescending(t, txs)
	if txs[0].ID != "late" {
		t.Fatalf("first = %s, want most recent", txs[0].ID)
	}
	for _, tx := range txs {
		if tx.Status != domain.StatusCompleted {
			t.Fatalf("status = %s, want completed", tx.Status)
		}
	}
}

func TestAllCompletedFiltersRejected(t *testing.T) {
	gw := &stubGateway{
		transactions: []domain.LedgerRecord{
			receiptRecord("ok-1", "2024-03-01T10:00:00Z", domain.DirectionIncoming, ""),
			{
				Origin: "rejected-1",
				State:  domain.State{Direction: domain.DirectionIncoming, Stage: domain.StageRejected},
			},
			receiptRecord("ok-2", "2024-03-02T10:00:00Z", domain.DirectionIncoming, ""),
		},
	}
	svc := newTestService(t, gw, nil)

	txs, err := svc.AllCompleted(context.Background())
	if err != nil {
		t.Fatalf("AllCompleted: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want the 2 non-rejected", len(txs))
	}
	for _, tx := range txs {
		if tx.ID == "rejected-1" {
			t.Fatal("rejected record surfaced in a view")
		}
	}
}

func TestAllActionablePresentsBothKinds(t *testing.T) {
	gw := &stubGateway{
		pending: domain.PendingSet{
			Requests: []domain.PendingEntry{requestEntry("req-1", "2024-03-02T10:00:00Z", "peer-a", "50")},
			Promises: []domain.PendingEntry{promiseEntry("off-1", "2024-03-03T10:00:00Z", "peer-b", "30", "")},
		},
	}
	svc := newTestService(t, gw, nil)

	txs, err := svc.AllActionable(context.Background())
	if err != nil {
		t.Fatalf("AllActionable: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	assertUniqueDescending(t, txs)
	// Direction stays with the event kind, whichever side reads the list.
	for _, tx := range txs {
		switch tx.Type {
		case domain.TypeRequest:
			if tx.Direction != domain.DirectionIncoming {
				t.Fatalf("actionable request direction = %s", tx.Direction)
			}
		case domain.TypeOffer:
			if tx.Direction != domain.DirectionOutgoing {
				t.Fatalf("actionable offer direction = %s", tx.Direction)
			}
		}
	}
}

func TestAllWaitingKeepsOnlyPending(t *testing.T) {
	gw := &stubGateway{
		transactions: []domain.LedgerRecord{
			receiptRecord("done-1", "2024-03-01T10:00:00Z", domain.DirectionIncoming, ""),
			{
				Origin:    "wait-1",
				State:     domain.State{Direction: domain.DirectionIncoming, Stage: domain.StageRequested},
				Timestamp: "2024-03-02T10:00:00Z",
				Event:     domain.Event{Request: &domain.RequestBody{From: "peer-a", Amount: "5"}},
			},
		},
	}
	svc := newTestService(t, gw, nil)

	txs, err := svc.AllWaiting(context.Background())
	if err != nil {
		t.Fatalf("AllWaiting: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "wait-1" {
		t.Fatalf("waiting = %+v, want only wait-1", txs)
	}
}

func TestAllNonPendingIncludesTerminalStatuses(t *testing.T) {
	gw := &stubGateway{
		transactions: []domain.LedgerRecord{
			receiptRecord("done-1", "2024-03-01T10:00:00Z", domain.DirectionIncoming, ""),
			{
				Origin:    "canceled-1",
				State:     domain.State{Direction: domain.DirectionIncoming, Stage: domain.StageCanceled},
				Timestamp: "2024-03-02T10:00:00Z",
				Event: domain.Event{Cancel: &domain.CancelBody{
					Entry:  domain.Event{Request: &domain.RequestBody{From: "peer-a", Amount: "9"}},
					Reason: "no longer needed",
				}},
			},
			{
				Origin:    "wait-1",
				State:     domain.State{Direction: domain.DirectionIncoming, Stage: domain.StageRequested},
				Timestamp: "2024-03-03T10:00:00Z",
				Event:     domain.Event{Request: &domain.RequestBody{From: "peer-a", Amount: "5"}},
			},
		},
	}
	svc := newTestService(t, gw, nil)

	txs, err := svc.AllNonPending(context.Background())
	if err != nil {
		t.Fatalf("AllNonPending: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want completed + canceled", len(txs))
	}
	assertUniqueDescending(t, txs)
}

func TestAllNonActionableByStatePassesFilter(t *testing.T) {
	gw := &stubGateway{
		transactions: []domain.LedgerRecord{
			receiptRecord("done-1", "2024-03-01T10:00:00Z", domain.DirectionIncoming, ""),
		},
	}
	svc := newTestService(t, gw, nil)

	txs, err := svc.AllNonActionableByState(context.Background(), "incoming/completed")
	if err != nil {
		t.Fatalf("AllNonActionableByState: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if len(gw.stateFilters) != 1 || gw.stateFilters[0] != "incoming/completed" {
		t.Fatalf("state filter not passed through: %v", gw.stateFilters)
	}
}

func TestGetPendingNotFound(t *testing.T) {
	svc := newTestService(t, &stubGateway{}, nil)
	_, err := svc.GetPending(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetPendingDeclinedOverridesStatus(t *testing.T) {
	gw := &stubGateway{
		pendingDeclined: domain.PendingSet{
			Promises: []domain.PendingEntry{promiseEntry("off-1", "2024-03-03T10:00:00Z", "peer-b", "30", "")},
		},
	}
	svc := newTestService(t, gw, nil)

	tx, err := svc.GetPendingDeclined(context.Background(), "off-1")
	if err != nil {
		t.Fatalf("GetPendingDeclined: %v", err)
	}
	if tx.Status != domain.StatusDeclined {
		t.Fatalf("status = %s, want declined", tx.Status)
	}
	if tx.Direction != domain.DirectionOutgoing {
		t.Fatalf("declined offer direction = %s, want outgoing", tx.Direction)
	}
}
