package streaming

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	event := AuditEvent{
		Kind:         AuditAccepted,
		Origin:       "origin-1",
		Counterparty: "peer-a",
		Amount:       "50",
		Status:       "completed",
		Timestamp:    "2024-03-01T12:00:00Z",
	}

	payload, err := Encode(event)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != event {
		t.Fatalf("round trip changed event: %+v", decoded)
	}
}

func TestEncodeRequiresKindAndOrigin(t *testing.T) {
	if _, err := Encode(AuditEvent{Origin: "origin-1"}); err == nil {
		t.Fatal("expected error for missing kind")
	}
	if _, err := Encode(AuditEvent{Kind: AuditDeclined}); err == nil {
		t.Fatal("expected error for missing origin")
	}
}

func TestDecodeRejectsIncompletePayloads(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing kind":   `{"origin":"origin-1"}`,
		"missing origin": `{"kind":"accepted"}`,
	}
	for name, payload := range cases {
		if _, err := Decode([]byte(payload)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
