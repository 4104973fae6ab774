package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/acsp-sidecar/sidecar/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acsps-api-test.db")
	s, err := store.Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &Server{Store: s, Logger: zerolog.Nop()}, s
}

func TestHandleTopRequiresQueryParams(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/records/top", nil)
	rr := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing query params, got %d", rr.Code)
	}
}

func TestHandleTopReturnsRecords(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()
	if _, err := s.RecordPB(ctx, "guid1", "ks1", "gp", "Driver", 60000, "gt4_bmw_m4", 1.0); err != nil {
		t.Fatalf("seeding record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/records/top?track_name=ks1&track_config=gp&car_model=gt4_bmw_m4", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body topRecordsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Count != 1 || len(body.Records) != 1 {
		t.Fatalf("expected one record, got %+v", body)
	}
	if body.Records[0].LapTimeMs != 60000 {
		t.Fatalf("unexpected lap time: %+v", body.Records[0])
	}
}

func TestHandleServerRecordsEmptyUsesEpoch(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/records/server", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body recentServerRecordsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Count != 0 {
		t.Fatalf("expected zero records, got %d", body.Count)
	}
	if !body.LatestTimestamp.Equal(epoch) {
		t.Fatalf("expected epoch sentinel, got %v", body.LatestTimestamp)
	}
}

func TestHandleMetaListsTracksAndCars(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()
	if _, err := s.RecordPB(ctx, "guid1", "ks1", "gp", "Driver", 60000, "gt4_bmw_m4", 1.0); err != nil {
		t.Fatalf("seeding record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/records/meta", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	var body recordsMetaResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Tracks) != 1 || body.Tracks[0].TrackName != "ks1" {
		t.Fatalf("unexpected tracks: %+v", body.Tracks)
	}
	if len(body.Cars) != 1 || body.Cars[0] != "gt4_bmw_m4" {
		t.Fatalf("unexpected cars: %+v", body.Cars)
	}
}

func TestHandleMetricsExposesPrometheusFormat(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("expected non-empty metrics body")
	}
}
