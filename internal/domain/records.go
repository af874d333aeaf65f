package domain

// PendingEntry is one raw record from a pending-list call. The backend
// returns these as [origin, timestamp, body] tuples with a separate
// provenance list; the gateway client flattens them before they reach the
// presenter.
type PendingEntry struct {
	Origin         string
	Timestamp      string
	Event          Event
	CounterpartyID string
}

// PendingSet groups a pending-list response by the originating event kind.
type PendingSet struct {
	Requests []PendingEntry
	Promises []PendingEntry
}

// LedgerRecord is one raw record from a list-transactions call.
type LedgerRecord struct {
	Origin     string
	State      State
	Event      Event
	Timestamp  string
	Adjustment Adjustment
}

// Adjustment is the ledger delta attached to a settled record. It travels
// separately from the event body on the wire.
type Adjustment struct {
	Fees             string
	ResultingBalance string
}

// ReceiveOutcome is the per-origin result of a batched receive-payments
// call.
type ReceiveOutcome struct {
	OK  bool
	Err string
}
