package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/swap-quoter/internal/logger"
)

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name     string
		statechn bool
		wantCode int
		want     string
	}{
		{"all healthy", true, http.StatusOK, "ok"},
		{"one failing", false, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(0, "test", logger.NewNop())
			s.RegisterCheck("database", func(context.Context) (bool, string) { return true, "" })
			s.RegisterCheck("statechain", func(context.Context) (bool, string) { return tt.statechn, "rpc" })

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}

			var status Status
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatal(err)
			}
			if status.Status != tt.want || len(status.Checks) != 2 {
				t.Errorf("status = %+v", status)
			}
		})
	}
}

func TestServer_ReadyAndLive(t *testing.T) {
	s := NewServer(0, "test", logger.NewNop())
	s.RegisterCheck("mm", func(context.Context) (bool, string) { return false, "no sessions" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "alive" {
		t.Errorf("live = %d %q", rec.Code, rec.Body.String())
	}
}
