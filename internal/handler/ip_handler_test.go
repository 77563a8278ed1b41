package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/mmdbtest"
	"github.com/evyataryagoni/geolookup/internal/service"
	"github.com/evyataryagoni/geolookup/internal/snapshot"
	"github.com/evyataryagoni/geolookup/internal/store"
	"github.com/go-chi/chi/v5"
)

// serve routes req through a chi router so URL parameters are populated
func serve(h *IPHandler, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/get-ip-info/{ip}", h.GetIPInfo)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newMockHandler(s store.Store) *IPHandler {
	return NewIPHandler(service.NewIPService(s, nil, logger.NewNop()))
}

// TestIPHandler_GetIPInfo_Success tests successful response
func TestIPHandler_GetIPInfo_Success(t *testing.T) {
	handler := newMockHandler(store.NewMockStore())

	rec := serve(handler, "/get-ip-info/81.2.69.142")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	country, _ := body["country"].(map[string]any)
	if country["iso_code"] != "GB" {
		t.Errorf("expected iso_code 'GB', got %v", country["iso_code"])
	}
}

// TestIPHandler_GetIPInfo_EmptyObject tests every path that answers {}
func TestIPHandler_GetIPInfo_EmptyObject(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		storeErr error
	}{
		{"not found", "/get-ip-info/8.8.8.8", nil},
		{"malformed address", "/get-ip-info/not-an-ip", nil},
		{"out of range", "/get-ip-info/300.300.300.300", nil},
		{"internal error", "/get-ip-info/81.2.69.142", fmt.Errorf("reader closed")},
		{"not loaded", "/get-ip-info/81.2.69.142", store.ErrNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := store.NewMockStore()
			mockStore.FindByIPError = tt.storeErr
			handler := newMockHandler(mockStore)

			rec := serve(handler, tt.target)

			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}
			if rec.Body.String() != "{}" {
				t.Errorf("expected body {}, got %q", rec.Body.String())
			}
		})
	}
}

// TestIPHandler_GetIPInfo_IPv6 tests IPv6 keys in the path
func TestIPHandler_GetIPInfo_IPv6(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"plain", "/get-ip-info/::ffff:81.2.69.142", "81.2.69.142"},
		{"percent-encoded", "/get-ip-info/2001%3Adb8%3A%3A1", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := store.NewMockStore()
			handler := newMockHandler(mockStore)

			rec := serve(handler, tt.target)

			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
			if len(mockStore.FindByIPCalls) != 1 || mockStore.FindByIPCalls[0] != tt.want {
				t.Errorf("expected store called with %s, got %v", tt.want, mockStore.FindByIPCalls)
			}
		})
	}
}

// TestIPHandler_GetIPInfo_Database runs the handler over a real database
// and checks the record is forwarded field for field
func TestIPHandler_GetIPInfo_Database(t *testing.T) {
	path := mmdbtest.WriteFixture(t, 1700000000)
	holder := snapshot.NewHolder()
	if err := snapshot.NewManager(path, holder, nil, logger.NewNop()).Load(); err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}
	defer holder.Close()

	handler := newMockHandler(store.NewMMDBStore(holder))

	tests := []struct {
		ip   string
		want string
	}{
		{
			mmdbtest.LondonIP,
			`{"city":{"names":{"en":"London"}},"country":{"iso_code":"GB","names":{"en":"United Kingdom"}},"location":{"latitude":51.5142,"longitude":-0.0931}}`,
		},
		{mmdbtest.MissingIP, `{}`},
		{"garbage", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			rec := serve(handler, "/get-ip-info/"+tt.ip)

			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
			if rec.Body.String() != tt.want {
				t.Errorf("unexpected body:\n got: %s\nwant: %s", rec.Body.String(), tt.want)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		readyFn    func() error
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health", nil, "/health", http.StatusOK, "ok"},
		{"ready without check", nil, "/ready", http.StatusOK, "ready"},
		{"ready", func() error { return nil }, "/ready", http.StatusOK, "ready"},
		{"not ready", func() error { return errors.New("no snapshot") }, "/ready", http.StatusServiceUnavailable, "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.readyFn)
			r := chi.NewRouter()
			r.Get("/health", h.Health)
			r.Get("/ready", h.Ready)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("expected status %q, got %q", tt.wantBody, body["status"])
			}
		})
	}
}
