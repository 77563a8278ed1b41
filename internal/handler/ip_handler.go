package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/evyataryagoni/geolookup/internal/service"
	"github.com/go-chi/chi/v5"
)

// emptyRecord is the body for every lookup that yields no record
var emptyRecord = []byte("{}")

// IPHandler handles HTTP requests for IP lookups
// This is the handler layer - it deals with HTTP concerns only
//
// Responsibilities:
//   - Read the IP from the path
//   - Call the service
//   - Write the record as JSON
type IPHandler struct {
	service *service.IPService
}

// NewIPHandler creates a new IP handler with the given service
func NewIPHandler(service *service.IPService) *IPHandler {
	return &IPHandler{
		service: service,
	}
}

// GetIPInfo handles GET /get-ip-info/{ip}
//
// Always answers 200 with a JSON object: the record when the database has
// one for the address, {} otherwise. Malformed addresses and internal
// failures also answer {}; the service logs and counts them.
func (h *IPHandler) GetIPInfo(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if unescaped, err := url.PathUnescape(ip); err == nil {
		ip = unescaped
	}

	record, err := h.service.LookupIP(r.Context(), ip)
	if err != nil {
		record = nil
	}

	h.respondRecord(w, record)
}

// respondRecord writes record as a 200 JSON response
func (h *IPHandler) respondRecord(w http.ResponseWriter, record models.Record) {
	body := emptyRecord
	if !record.Empty() {
		if encoded, err := json.Marshal(record); err == nil {
			body = encoded
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
