package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPrintKey(t *testing.T) {
	tests := []struct {
		name       string
		serverKey  string
		requestKey string
		wantStatus int
	}{
		{"matching key passes", "secret", "secret", http.StatusOK},
		{"wrong key rejected", "secret", "nope", http.StatusForbidden},
		{"missing key rejected", "secret", "", http.StatusForbidden},
		{"empty server key disables check", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := PrintKey(tt.serverKey, func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			req := httptest.NewRequest(http.MethodGet, "/print-queue", nil)
			if tt.requestKey != "" {
				req.Header.Set("X-Print-Key", tt.requestKey)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if wantCalled := tt.wantStatus == http.StatusOK; called != wantCalled {
				t.Errorf("handler called = %v, want %v", called, wantCalled)
			}
		})
	}
}

func TestDeviceTokenResolvesStage(t *testing.T) {
	tokens := map[string]string{"tok-packing": "Packing"}

	var gotStage string
	handler := DeviceToken(tokens, func(w http.ResponseWriter, r *http.Request) {
		gotStage, _ = StageFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
	req.Header.Set("X-Device-Token", "tok-packing")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotStage != "Packing" {
		t.Errorf("stage = %q, want Packing", gotStage)
	}
}

func TestDeviceTokenRejectsUnknown(t *testing.T) {
	handler := DeviceToken(map[string]string{"tok": "Processing"}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for an unknown token")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
	req.Header.Set("X-Device-Token", "bad")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
