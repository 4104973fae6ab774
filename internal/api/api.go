// Package api implements the HTTP read surface (spec §6): JSON views over
// the record store plus Prometheus exposition. Routed with gorilla/mux and
// logged with gorilla/handlers, following ClusterCockpit-cc-backend's
// server.go mux.NewRouter()+handlers.CustomLoggingHandler idiom.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/acsp-sidecar/sidecar/internal/store"
)

// epoch is the original app's "no records yet" sentinel for
// latest_timestamp: datetime(1970, 1, 1).
var epoch = time.Unix(0, 0).UTC()

// lapRecordView mirrors the original's LapRecord pydantic model as a plain
// JSON-tagged struct.
type lapRecordView struct {
	DriverGUID  string    `json:"driver_guid"`
	TrackName   string    `json:"track_name"`
	TrackConfig string    `json:"track_config"`
	PerfClass   string    `json:"perf_class"`
	Car         string    `json:"car"`
	DriverName  string    `json:"driver_name"`
	LapTimeMs   uint32    `json:"lap_time_ms"`
	GripLevel   float32   `json:"grip_level"`
	Timestamp   time.Time `json:"timestamp"`
}

func viewOf(r store.LapRecord) lapRecordView {
	return lapRecordView{
		DriverGUID:  r.DriverGUID,
		TrackName:   r.TrackName,
		TrackConfig: r.TrackConfig,
		PerfClass:   r.PerfClass,
		Car:         r.Car,
		DriverName:  r.DriverName,
		LapTimeMs:   r.LapTimeMs,
		GripLevel:   r.GripLevel,
		Timestamp:   r.Timestamp,
	}
}

func viewsOf(recs []store.LapRecord) []lapRecordView {
	views := make([]lapRecordView, len(recs))
	for i, r := range recs {
		views[i] = viewOf(r)
	}
	return views
}

type topRecordsResponse struct {
	Count   int             `json:"count"`
	Records []lapRecordView `json:"records"`
}

type recentServerRecordsResponse struct {
	LatestTimestamp time.Time       `json:"latest_timestamp"`
	Count           int             `json:"count"`
	Records         []lapRecordView `json:"records"`
}

type recordsMetaResponse struct {
	Tracks []store.TrackConfig `json:"tracks"`
	Cars   []string            `json:"cars"`
}

const defaultTopN = 10

// Server holds the dependencies the read routes need.
type Server struct {
	Store  *store.Store
	Logger zerolog.Logger
}

// Handler builds the full routed, logged, compressed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/records/top", s.handleTop).Methods(http.MethodGet)
	r.HandleFunc("/records/server", s.handleServerRecords).Methods(http.MethodGet)
	r.HandleFunc("/records/meta", s.handleMeta).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Use(handlers.CompressHandler)

	return handlers.CustomLoggingHandler(io.Discard, r, s.logLine)
}

// logLine adapts gorilla/handlers' writer-based formatter to zerolog, so
// access logs go through the same sink as everything else.
func (s *Server) logLine(_ io.Writer, params handlers.LogFormatterParams) {
	s.Logger.Info().
		Str("method", params.Request.Method).
		Str("path", params.URL.RequestURI()).
		Int("status", params.StatusCode).
		Int("size", params.Size).
		Msg("http request")
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trackName := q.Get("track_name")
	trackConfig := q.Get("track_config")
	carModel := q.Get("car_model")
	if trackName == "" || trackConfig == "" || carModel == "" {
		http.Error(w, "track_name, track_config and car_model are required", http.StatusBadRequest)
		return
	}

	recs, err := s.Store.TopRecords(r.Context(), trackName, trackConfig, carModel, defaultTopN)
	if err != nil {
		s.Logger.Error().Err(err).Msg("top records query failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, s.Logger, topRecordsResponse{Count: len(recs), Records: viewsOf(recs)})
}

const defaultServerRecordsLimit = 100

func (s *Server) handleServerRecords(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveInt(r.URL.Query().Get("limit"), defaultServerRecordsLimit)
	recs, err := s.Store.RecentBrokenRecords(r.Context(), limit)
	if err != nil {
		s.Logger.Error().Err(err).Msg("recent broken records query failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	latest := epoch
	for _, rec := range recs {
		if rec.Timestamp.After(latest) {
			latest = rec.Timestamp
		}
	}

	writeJSON(w, s.Logger, recentServerRecordsResponse{
		LatestTimestamp: latest,
		Count:           len(recs),
		Records:         viewsOf(recs),
	})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.Store.UniqueTracksConfigs(r.Context())
	if err != nil {
		s.Logger.Error().Err(err).Msg("unique tracks query failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	cars, err := s.Store.UniqueCarNames(r.Context())
	if err != nil {
		s.Logger.Error().Err(err).Msg("unique car names query failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, s.Logger, recordsMetaResponse{Tracks: tracks, Cars: cars})
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encoding json response failed")
	}
}

// parsePositiveInt parses a query parameter as a positive int, falling back
// to def on absence or a non-positive value.
func parsePositiveInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
