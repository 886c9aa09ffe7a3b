package streams

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeValidateBasic(t *testing.T) {
	env := Envelope{
		EventID:   "evt-1",
		EventType: EventTypeDeliver,
		Data:      json.RawMessage(`{"user_id":"u1"}`),
	}
	if err := env.ValidateBasic(); err != nil {
		t.Fatalf("valid envelope rejected: %v", err)
	}
	if env.OccurredAt.IsZero() {
		t.Fatalf("zero occurred_at should be filled in")
	}
}

func TestEnvelopeValidateBasicRejectsMissingFields(t *testing.T) {
	cases := map[string]Envelope{
		"missing event_id":   {EventType: EventTypeDeliver, Data: json.RawMessage(`{}`)},
		"missing event_type": {EventID: "e", Data: json.RawMessage(`{}`)},
		"missing data":       {EventID: "e", EventType: EventTypeDeliver},
		"negative attempt":   {EventID: "e", EventType: EventTypeDeliver, Attempt: -1, Data: json.RawMessage(`{}`)},
	}
	for name, env := range cases {
		if err := env.ValidateBasic(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		EventID:    "evt-2",
		EventType:  EventTypeDeliver,
		OccurredAt: time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC),
		Attempt:    1,
		Data:       json.RawMessage(`{"user_id":"u1"}`),
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := UnmarshalEnvelope(raw)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope: %v", err)
	}
	if decoded.EventID != env.EventID || decoded.Attempt != 1 || !decoded.OccurredAt.Equal(env.OccurredAt) {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestUnmarshalEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalEnvelope([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed bytes")
	}
}
