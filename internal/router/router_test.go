package router

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evyataryagoni/geolookup/internal/handler"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/service"
	"github.com/evyataryagoni/geolookup/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestServer(t *testing.T, readyErr error) *httptest.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	log := logger.NewNop()

	svc := service.NewIPService(store.NewMockStore(), m, log)
	r := SetupRouter(
		handler.NewIPHandler(svc),
		handler.NewHealthHandler(func() error { return readyErr }),
		m, reg, log,
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func TestRouter_Routes(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantContains string
	}{
		{"lookup hit", "/get-ip-info/81.2.69.142", http.StatusOK, `"iso_code":"GB"`},
		{"lookup miss", "/get-ip-info/8.8.8.8", http.StatusOK, `{}`},
		{"lookup invalid", "/get-ip-info/bogus", http.StatusOK, `{}`},
		{"health", "/health", http.StatusOK, `"ok"`},
		{"ready", "/ready", http.StatusOK, `"ready"`},
		{"unknown route", "/v1/find-country", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, body := get(t, srv.URL+tt.path)

			if status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
			if !strings.Contains(body, tt.wantContains) {
				t.Errorf("expected body to contain %q, got %q", tt.wantContains, body)
			}
		})
	}
}

func TestRouter_NotReady(t *testing.T) {
	srv := newTestServer(t, errors.New("database snapshot not loaded"))

	status, _, body := get(t, srv.URL+"/ready")
	if status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", status)
	}
	if !strings.Contains(body, "database snapshot not loaded") {
		t.Errorf("expected reason in body, got %q", body)
	}
}

func TestRouter_Metrics(t *testing.T) {
	srv := newTestServer(t, nil)

	get(t, srv.URL+"/get-ip-info/81.2.69.142")
	status, _, body := get(t, srv.URL+"/metrics")

	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	for _, want := range []string{
		`http_requests_total{endpoint="/get-ip-info/{ip}",method="GET",status="200"} 1`,
		`ip_lookups_total{result="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
