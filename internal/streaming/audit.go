package streaming

import (
	"encoding/json"
	"errors"
)

type AuditKind string

const (
	AuditRequestCreated AuditKind = "request_created"
	AuditOfferCreated   AuditKind = "offer_created"
	AuditAccepted       AuditKind = "accepted"
	AuditDeclined       AuditKind = "declined"
	AuditCanceled       AuditKind = "canceled"
	AuditFundsRecovered AuditKind = "funds_recovered"
)

// AuditEvent is one lifecycle mutation outcome as published to the audit
// topic.
type AuditEvent struct {
	Kind         AuditKind `json:"kind"`
	Origin       string    `json:"origin"`
	TraceID      string    `json:"trace_id,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	Status       string    `json:"status,omitempty"`
	Timestamp    string    `json:"timestamp,omitempty"`
}

func Encode(event AuditEvent) ([]byte, error) {
	if event.Kind == "" {
		return nil, errors.New("audit kind is required")
	}
	if event.Origin == "" {
		return nil, errors.New("audit origin is required")
	}
	return json.Marshal(event)
}

func Decode(payload []byte) (AuditEvent, error) {
	var event AuditEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return AuditEvent{}, err
	}
	if event.Kind == "" {
		return AuditEvent{}, errors.New("audit kind is missing")
	}
	if event.Origin == "" {
		return AuditEvent{}, errors.New("audit origin is missing")
	}
	return event, nil
}
