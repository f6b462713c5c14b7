package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/oklog/ulid/v2"

	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/infra/logging"
)

// webhookPayload accepts both delivery shapes the gateway is known to send:
// the documented envelope {"event": ..., "object": {...}} and a flattened
// payment object at the top level.
type webhookPayload struct {
	Event  string          `json:"event"`
	Object json.RawMessage `json:"object"`

	// flattened shape
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

type paymentObject struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

// handleWebhook is the gateway-facing ingestion point. The contract with the
// gateway is narrow: 400 only when the body is not JSON at all, 200 for
// everything else, because a non-200 makes the gateway redeliver forever.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	traceID := ulid.Make().String()
	ctx := logging.WithTraceID(r.Context(), traceID)
	log := logging.With(ctx, s.log)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Warn().Err(err).Msg("webhook body read failed")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n, perr := parseNotification(body)
	if perr != nil {
		log.Warn().Err(perr).Msg("webhook body is not JSON")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := s.reconcileUC.HandleNotification(ctx, n); err != nil {
		// Infrastructure fault: let the gateway redeliver later.
		log.Error().Err(err).Msg("reconciliation failed, requesting redelivery")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func parseNotification(body []byte) (*model.PaymentNotification, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}

	obj := paymentObject{ID: p.ID, Status: p.Status, Metadata: p.Metadata}
	if len(p.Object) > 0 {
		// Envelope wins over any flattened leftovers.
		var inner paymentObject
		if err := json.Unmarshal(p.Object, &inner); err == nil && inner.ID != "" {
			obj = inner
		}
	}

	n := &model.PaymentNotification{
		PaymentID: obj.ID,
		Status:    obj.Status,
	}
	n.TelegramID = metaInt64(obj.Metadata, "telegram_id")
	if planID, ok := obj.Metadata["plan_id"].(string); ok {
		n.PlanID = planID
	}
	if ref := metaInt64(obj.Metadata, "referrer_id"); ref != 0 {
		n.ReferrerID = &ref
	}
	return n, nil
}

// metaInt64 reads an id that the gateway may round-trip as string or number.
func metaInt64(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	return 0
}
