package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dapurpintar/dpmbggo/internal/middleware"
	"github.com/dapurpintar/dpmbggo/internal/store"
)

// NewPrintRouter serves only the print dispatch endpoints over st. Edge
// processes that queue stickers locally expose this so a poller on the same
// LAN can drain them.
func NewPrintRouter(st *store.Store, printKey string) *mux.Router {
	r := &Router{Router: mux.NewRouter(), store: st}
	r.HandleFunc("/print-queue", middleware.PrintKey(printKey, r.getPrintQueue)).Methods("GET")
	r.HandleFunc("/print-complete", middleware.PrintKey(printKey, r.postPrintComplete)).Methods("POST")
	return r.Router
}

// printJobView is one dispatched job as the poller sees it.
type printJobView struct {
	ID   uint   `json:"id"`
	TSPL string `json:"tspl"`
}

// getPrintQueue hands the poller at most one pending job, oldest first. The
// job stays pending until the poller acks it, so a crashed poller re-fetches
// the same job on its next poll.
func (r *Router) getPrintQueue(w http.ResponseWriter, req *http.Request) {
	job, err := r.store.NextPrintJob()
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	jobs := []printJobView{}
	if job != nil {
		jobs = append(jobs, printJobView{ID: job.ID, TSPL: job.TSPL})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// postPrintComplete marks a job printed after the poller confirms the bytes
// reached the printer. Re-acking is harmless.
func (r *Router) postPrintComplete(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ID uint `json:"id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.ID == 0 {
		respondDetail(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := r.store.MarkPrinted(body.ID); err != nil {
		respondDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("🖨️ Print job #%d confirmed", body.ID)
	respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// respondDetail matches the error shape the poller contract uses.
func respondDetail(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}
