package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dapurpintar/dpmbggo/internal/scan"
	"github.com/dapurpintar/dpmbggo/web"
)

// scanPage serves the browser scan terminal for one stage. The page reads its
// stage from the URL and posts scans to /api/scan with the device token.
func (r *Router) scanPage(w http.ResponseWriter, req *http.Request) {
	stageName := mux.Vars(req)["stage"]
	if _, ok := scan.StageFromName(stageName); !ok {
		respondError(w, http.StatusNotFound, "unknown stage "+stageName)
		return
	}

	fsys, err := web.GetFileSystem()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "frontend unavailable")
		return
	}
	f, err := fsys.Open("scan.html")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "frontend unavailable")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.Copy(w, f); err != nil {
		log.Printf("⚠️ Failed to serve scan page: %v", err)
	}
}
