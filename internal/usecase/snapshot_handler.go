package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"Veritas/internal/domain/models"
	domsvc "Veritas/internal/domain/service"
	"Veritas/internal/services/scoring"
	"Veritas/pkg/cache"
	xhttp "Veritas/pkg/http"
	pkgkafka "Veritas/pkg/kafka"
	xlogger "Veritas/pkg/logger"
)

const seenTTL = 24 * time.Hour

// SnapshotHandler evaluates snapshot envelopes read from Kafka. Envelopes
// with an id are processed at most once per seenTTL.
type SnapshotHandler struct {
	topic string
	svc   *RiskService
	seen  cache.Service
	log   *xlogger.Logger
}

func NewSnapshotHandler(topic string, svc *RiskService, seen cache.Service, log *xlogger.Logger) *SnapshotHandler {
	if log == nil {
		log = xlogger.Nop()
	}
	return &SnapshotHandler{topic: topic, svc: svc, seen: seen, log: log}
}

func (h *SnapshotHandler) Topic() string { return h.topic }

// Handle returns an error wrapping pkgkafka.ErrPermanent for envelopes that
// can never succeed, and a plain error for upstream failures worth retrying.
func (h *SnapshotHandler) Handle(ctx context.Context, b []byte) error {
	var env models.SnapshotEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", pkgkafka.ErrPermanent, err)
	}
	if details := xhttp.ValidateStruct(ctx, &env); details != nil {
		return fmt.Errorf("%w: envelope: %s", pkgkafka.ErrPermanent, describe(details))
	}
	if env.ID != "" && xlogger.RequestIDFromContext(ctx) == "" {
		ctx = xlogger.ContextWithRequestID(ctx, env.ID)
	}

	key := cache.GenerateKey("snapshot", env.ID)
	if env.ID != "" && h.seen != nil {
		dup, err := h.seen.Exists(ctx, key)
		if err != nil {
			h.log.Warn("snapshot dedup lookup failed", xlogger.String("id", env.ID), xlogger.Error(err))
		} else if dup {
			h.log.Debug("snapshot already processed", xlogger.String("id", env.ID))
			return nil
		}
	}

	kind, _ := models.ParseKind(env.Kind)
	if err := h.evaluate(ctx, kind, env.Payload); err != nil {
		if errors.Is(err, domsvc.ErrUpstreamPredictor) {
			return err
		}
		if errors.Is(err, scoring.ErrInvalidInput) || errors.Is(err, scoring.ErrDivision) {
			return fmt.Errorf("%w: %s %s: %v", pkgkafka.ErrPermanent, kind, env.ID, err)
		}
		return err
	}

	if env.ID != "" && h.seen != nil {
		if err := h.seen.Set(ctx, key, "1", seenTTL); err != nil {
			h.log.Warn("snapshot dedup mark failed", xlogger.String("id", env.ID), xlogger.Error(err))
		}
	}
	return nil
}

func (h *SnapshotHandler) evaluate(ctx context.Context, kind models.EvaluationKind, payload json.RawMessage) error {
	switch kind {
	case models.KindLeverage:
		var req models.LeverageRequest
		if err := decodePayload(ctx, payload, &req); err != nil {
			return err
		}
		_, err := h.svc.AssessLeverage(ctx, req.Snapshot())
		return err
	case models.KindKYC:
		var req models.KYCRequest
		if err := decodePayload(ctx, payload, &req); err != nil {
			return err
		}
		_, err := h.svc.AssessKYC(ctx, req.Snapshot())
		return err
	case models.KindNAV:
		var req models.NAVRequest
		if err := decodePayload(ctx, payload, &req); err != nil {
			return err
		}
		_, err := h.svc.ForecastNAV(ctx, req.Snapshot())
		return err
	}
	return &scoring.InputError{Field: "kind", Reason: "unsupported"}
}

func decodePayload(ctx context.Context, payload json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return &scoring.InputError{Field: "payload", Reason: err.Error()}
	}
	if details := xhttp.ValidateStruct(ctx, dst); details != nil {
		return &scoring.InputError{Field: "payload", Reason: describe(details)}
	}
	return nil
}

func describe(details []xhttp.ValidationError) string {
	parts := make([]string, 0, len(details))
	for _, d := range details {
		parts = append(parts, d.Message)
	}
	return strings.Join(parts, "; ")
}

var _ pkgkafka.MessageHandler = (*SnapshotHandler)(nil)
