package ignite

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func (s *Server) setupAdminRoutes(r *mux.Router) {
	r.HandleFunc("/metrics", s.handleListMetrics).Methods(http.MethodGet)
	r.HandleFunc("/metrics/{metric}/report", s.handleMetricReport).Methods(http.MethodGet)
	r.HandleFunc("/metrics/{metric}/reports/latest", s.handleLatestReport).Methods(http.MethodGet)
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, http.StatusNotFound, "not_found", "no measurement store configured")
		return
	}
	metrics, err := s.store.Metrics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if metrics == nil {
		metrics = []MetricInfo{}
	}
	writeJSON(w, metrics)
}

// handleMetricReport analyses the stored series of a metric, optionally
// bounded by ?from= and ?to= in Unix milliseconds.
func (s *Server) handleMetricReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, http.StatusNotFound, "not_found", "no measurement store configured")
		return
	}
	metric := mux.Vars(r)["metric"]
	from, ok := queryInt(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryInt(w, r, "to")
	if !ok {
		return
	}

	series, err := s.store.Series(r.Context(), metric, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(series) == 0 {
		jsonError(w, http.StatusNotFound, "not_found", "no measurements for metric "+metric)
		return
	}
	report, err := s.analyzeAndPublish(r.Context(), metric, series)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, report)
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		jsonError(w, http.StatusNotFound, "not_found", "no report archive configured")
		return
	}
	report, err := s.archive.Latest(r.Context(), mux.Vars(r)["metric"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, report)
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", "invalid "+name+" parameter")
		return 0, false
	}
	return v, true
}
