package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"gorm.io/datatypes"

	"github.com/dapurpintar/dpmbggo/internal/codes"
	"github.com/dapurpintar/dpmbggo/internal/models"
	"github.com/dapurpintar/dpmbggo/internal/printing"
	"github.com/dapurpintar/dpmbggo/internal/store"
)

// createItemRequest is a goods-receipt entry from the receiving desk.
type createItemRequest struct {
	Name        string  `json:"name"`
	WeightGrams int     `json:"weight_grams"`
	Unit        string  `json:"unit"`
	Reason      *string `json:"reason"`
}

// createItem registers a freshly received ingredient, mints its code, and
// queues a barcode label for the kitchen printer.
func (r *Router) createItem(w http.ResponseWriter, req *http.Request) {
	var body createItemRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	item := models.Item{
		Code:        codes.NewItemCode(),
		Name:        body.Name,
		WeightGrams: body.WeightGrams,
		Unit:        body.Unit,
		Reason:      body.Reason,
	}
	if r.local {
		// Kitchen-local instance: the receipt goes through the queue, item
		// fields riding along as payload, so the syncer replays it upstream.
		payload, err := json.Marshal(body)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		err = r.store.CommitLocal(store.AcceptedScan{
			Code:        item.Code,
			Stage:       "Receiving",
			TargetLabel: models.LabelReceived,
			At:          time.Now(),
			Payload:     datatypes.JSON(payload),
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		item.Label = models.LabelReceived
	} else if err := r.store.CreateItem(&item); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The label is a convenience; receipt stands even if the queue is down.
	payload := printing.ItemLabel(r.cfg.PrinterLang, item.Code, item.Name, item.WeightGrams)
	if _, err := r.store.EnqueuePrint(payload); err != nil {
		log.Printf("⚠️ Failed to enqueue label for %s: %v", item.Code, err)
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    item.Code,
		"name":  item.Name,
		"label": item.Label,
	})
}

// registerTrayRequest optionally carries a pre-printed tray code.
type registerTrayRequest struct {
	TrayID string `json:"tray_id"`
}

// registerTray puts a tray code into circulation. Codes from a pre-printed
// sheet are accepted as-is; otherwise a fresh one is minted.
func (r *Router) registerTray(w http.ResponseWriter, req *http.Request) {
	var body registerTrayRequest
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&body)
	}

	code := body.TrayID
	if code == "" {
		code = codes.NewTrayCode()
	} else if !codes.WellFormedTrayCode(code) {
		respondError(w, http.StatusBadRequest, "invalid tray code format")
		return
	}

	created, err := r.store.RegisterTray(code)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]interface{}{
		"tray_id": code,
		"created": created,
	})
}

// generateLabelSheet mints a sheet of QR codes as a printable PDF. Tray codes
// are registered before the PDF leaves the server so the physical labels are
// scannable the moment they are stuck on.
func (r *Router) generateLabelSheet(w http.ResponseWriter, req *http.Request) {
	var cfg printing.SheetConfig
	if err := json.NewDecoder(req.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg.CountdownBaseURL = r.cfg.CountdownBaseURL

	pdfBytes, minted, err := printing.GenerateSheetPDF(cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if cfg.Type != "item" {
		for _, code := range minted {
			if _, err := r.store.RegisterTray(code); err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="labels.pdf"`)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pdfBytes)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
