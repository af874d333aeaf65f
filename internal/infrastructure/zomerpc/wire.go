package zomerpc

import (
	"encoding/json"
	"fmt"
	"strconv"

	"hfbridge/internal/application"
	"hfbridge/internal/domain"
)

type wireAgent struct {
	PubSignKey string `json:"pub_sign_key"`
	Nick       string `json:"nick"`
}

type wireLedger struct {
	Balance    string `json:"balance"`
	Credit     string `json:"credit"`
	Payable    string `json:"payable"`
	Receivable string `json:"receivable"`
	Fees       string `json:"fees"`
}

type wirePendingSet struct {
	Requests []wirePendingEntry `json:"requests"`
	Promises []wirePendingEntry `json:"promises"`
}

// wirePendingEntry is the backend's tuple encoding of a pending entry:
// event is [origin, timestamp, body] and provenance is [agent_id, sig].
type wirePendingEntry struct {
	Event      []json.RawMessage `json:"event"`
	Provenance []string          `json:"provenance"`
}

type wireTransactionList struct {
	Transactions []wireTransaction `json:"transactions"`
}

type wireTransaction struct {
	State      string         `json:"state"`
	Origin     string         `json:"origin"`
	Event      domain.Event   `json:"event"`
	Timestamp  wireTimestamp  `json:"timestamp"`
	Adjustment wireAdjustment `json:"adjustment"`
}

type wireTimestamp struct {
	Event string `json:"event"`
}

type wireAdjustment struct {
	Ok *wireLedgerDelta `json:"Ok"`
}

type wireLedgerDelta struct {
	Fees             string `json:"fees"`
	ResultingBalance string `json:"resulting_balance"`
}

type wireOutcome struct {
	Ok  json.RawMessage `json:"Ok"`
	Err json.RawMessage `json:"Err"`
}

func decodePendingEntry(raw wirePendingEntry) (domain.PendingEntry, error) {
	if len(raw.Event) < 3 {
		return domain.PendingEntry{}, fmt.Errorf("pending entry event tuple has %d elements: %w", len(raw.Event), application.ErrUnrecognizedEvent)
	}
	var origin string
	if err := json.Unmarshal(raw.Event[0], &origin); err != nil {
		return domain.PendingEntry{}, fmt.Errorf("pending entry origin: %v: %w", err, application.ErrUnrecognizedEvent)
	}
	var timestamp string
	if err := json.Unmarshal(raw.Event[1], &timestamp); err != nil {
		return domain.PendingEntry{}, fmt.Errorf("pending entry timestamp: %v: %w", err, application.ErrUnrecognizedEvent)
	}
	var event domain.Event
	if err := json.Unmarshal(raw.Event[2], &event); err != nil {
		return domain.PendingEntry{}, fmt.Errorf("pending entry body: %v: %w", err, application.ErrUnrecognizedEvent)
	}

	var counterparty string
	if len(raw.Provenance) > 0 {
		counterparty = raw.Provenance[0]
	}
	return domain.PendingEntry{
		Origin:         origin,
		Timestamp:      timestamp,
		Event:          event,
		CounterpartyID: counterparty,
	}, nil
}

// rawToString renders a zome Err payload for error messages. Errors come
// back either as a bare string or as a small object.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if unquoted, err := strconv.Unquote(string(raw)); err == nil {
		return unquoted
	}
	return string(raw)
}
