package models

import "encoding/json"

// EvaluationKind names an evaluator.
type EvaluationKind string

const (
	KindLeverage EvaluationKind = "leverage"
	KindKYC      EvaluationKind = "kyc"
	KindNAV      EvaluationKind = "nav"
)

func ParseKind(s string) (EvaluationKind, bool) {
	switch k := EvaluationKind(s); k {
	case KindLeverage, KindKYC, KindNAV:
		return k, true
	}
	return "", false
}

// SnapshotEnvelope is the message read from the snapshots topic.
type SnapshotEnvelope struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind" validate:"required,oneof=leverage kyc nav"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// VerdictEvent is broadcast for every successful evaluation.
type VerdictEvent struct {
	ID        string            `json:"id"`
	RequestID string            `json:"request_id,omitempty"`
	Kind      EvaluationKind    `json:"kind"`
	Verdict   interface{}       `json:"verdict"`
	Market    *MarketAssessment `json:"market,omitempty"`
	EmittedAt int64             `json:"emitted_at"`
}
