package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// healthTimeout bounds the store ping behind /healthz.
const healthTimeout = 2 * time.Second

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.catalog.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListProducts serves GET /products/?producer=&skip=&limit=. A present
// producer parameter scopes the listing to that producer plus the universal
// products; an absent one lists universal products only.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	producer := catalog.Universal()
	if q := r.URL.Query(); q.Has("producer") {
		producer = catalog.ScopedTo(q.Get("producer"))
	}
	s.listProducts(w, r, producer)
}

// handleListProducerProducts serves GET /products/{producer}. It applies the
// same visibility rule as the query form: the producer's own products plus
// the universal ones.
func (s *Server) handleListProducerProducts(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "producer")
	// chi matches on RawPath when it is set, leaving the param escaped;
	// otherwise the param is already decoded and must not be unescaped twice.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			respondError(w, r, fmt.Errorf("%w: producer: %v", catalog.ErrInvalidQuery, err))
			return
		}
		name = unescaped
	}
	s.listProducts(w, r, catalog.ScopedTo(name))
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request, producer catalog.Producer) {
	skip, limit, err := s.pageParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	products, err := s.catalog.List(r.Context(), producer, skip, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, products)
}

// pageParams validates skip and limit: skip must be a non-negative integer
// (default 0), limit an integer in [1, max] (default: the service default).
func (s *Server) pageParams(r *http.Request) (skip, limit int, err error) {
	defaultLimit, maxLimit := s.catalog.Limits()
	q := r.URL.Query()

	skip, err = intParam(q, "skip", 0)
	if err != nil {
		return 0, 0, err
	}
	if skip < 0 {
		return 0, 0, fmt.Errorf("%w: skip must be >= 0", catalog.ErrInvalidQuery)
	}

	limit, err = intParam(q, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > maxLimit {
		return 0, 0, fmt.Errorf("%w: limit must be between 1 and %d", catalog.ErrInvalidQuery, maxLimit)
	}
	return skip, limit, nil
}

// intParam parses an integer query parameter with a default value.
func intParam(q url.Values, name string, defaultVal int) (int, error) {
	val := q.Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", catalog.ErrInvalidQuery, name)
	}
	return i, nil
}

// handleTriggerRun starts an ingestion run and answers 202 with its id. The
// run continues after the request ends; poll GET /ingest/runs for the result.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		respondError(w, r, errIngestDisabled)
		return
	}

	runID, err := s.ingester.Trigger(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("ingestion run triggered", "run_id", runID)
	w.Header().Set("Location", "/ingest/runs")
	writeJSON(w, r, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "started",
	})
}

// runsResponse is the body of GET /ingest/runs.
type runsResponse struct {
	Gate ingest.GateStatus  `json:"gate"`
	Runs []ingest.RunRecord `json:"runs"`
}

// handleListRuns lists recent runs, newest first, and the run gate state.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		respondError(w, r, errIngestDisabled)
		return
	}

	n, err := intParam(r.URL.Query(), "limit", ingest.DefaultHistorySize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if n < 1 {
		respondError(w, r, fmt.Errorf("%w: limit must be positive", catalog.ErrInvalidQuery))
		return
	}

	runs := s.ingester.Recent(n)
	if runs == nil {
		runs = []ingest.RunRecord{}
	}
	writeJSON(w, r, http.StatusOK, runsResponse{Gate: s.ingester.Status(), Runs: runs})
}
