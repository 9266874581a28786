package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/dapurpintar/dpmbggo/internal/codes"
	"github.com/dapurpintar/dpmbggo/internal/middleware"
	"github.com/dapurpintar/dpmbggo/internal/models"
	"github.com/dapurpintar/dpmbggo/internal/retry"
	"github.com/dapurpintar/dpmbggo/internal/scan"
	"github.com/dapurpintar/dpmbggo/internal/store"
)

// scanRequest is a raw scan posted by a networked scanner device.
type scanRequest struct {
	Code string `json:"code"`
}

// handleScan validates a scan against the authoritative store and commits it.
// The stage comes from the device token, never from the request body.
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) {
	stageName, ok := middleware.StageFromContext(req.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized device")
		return
	}
	stage, ok := scan.StageFromName(stageName)
	if !ok {
		respondError(w, http.StatusInternalServerError, "unknown stage "+stageName)
		return
	}

	var body scanRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now()
	code := codes.Normalize(body.Code)
	if code == "" {
		r.logScanError(code, stage, scan.ReasonEmptyScan, now)
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"ok":     false,
			"reason": scan.ReasonEmptyScan,
		})
		return
	}

	if err := stage.Validate(r.store, code, now); err != nil {
		reason, isReject := scan.IsReject(err)
		if !isReject {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		status := http.StatusConflict
		if reason == scan.ReasonUnreachable {
			status = http.StatusServiceUnavailable
		}
		r.logScanError(code, stage, reason, now)
		r.hub.BroadcastJSON(map[string]interface{}{
			"event":  "scan_rejected",
			"code":   code,
			"stage":  stage.String(),
			"reason": reason,
			"at":     models.LocalISO(now),
		})
		respondJSON(w, status, map[string]interface{}{
			"ok":     false,
			"reason": reason,
		})
		return
	}

	accepted := store.AcceptedScan{
		Code:        code,
		Stage:       stage.String(),
		TargetLabel: stage.TargetLabel(),
		At:          now,
	}
	policy := retry.LocalStorage()
	err := policy.Do(context.Background(), func() error {
		return r.commit(accepted)
	})
	if err != nil {
		log.Printf("❌ Scan commit failed for %s: %v", code, err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"ok":     false,
			"reason": scan.ReasonUnreachable,
		})
		return
	}

	if stage == scan.StageDelivery && r.delivery != nil {
		// Sticker and assignments are best-effort; the scan already committed.
		if err := r.delivery.OnTrayDelivered(code, now); err != nil {
			log.Printf("⚠️ Delivery follow-up for %s: %v", code, err)
		}
	}

	r.hub.BroadcastJSON(map[string]interface{}{
		"event": "scan",
		"code":  code,
		"stage": stage.String(),
		"label": stage.TargetLabel(),
		"at":    models.LocalISO(now),
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"code":  code,
		"stage": stage.String(),
		"label": stage.TargetLabel(),
		"at":    models.LocalISO(now),
	})
}

// logScanError appends a rejected scan to the audit log. Auditing must never
// mask the rejection itself, so failures are only logged.
func (r *Router) logScanError(code string, stage scan.Stage, reason string, at time.Time) {
	if err := r.store.RecordError(code, stage.String(), reason, at); err != nil {
		log.Printf("⚠️ Failed to record scan error (%s, %s): %v", code, reason, err)
	}
}
