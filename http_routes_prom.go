package ignite

import (
	"io"
	"net/http"
	"sort"

	"github.com/golang/snappy"
	"github.com/gorilla/mux"
	"github.com/prometheus/prometheus/prompb"
)

// setupPrometheusRoutes configures Prometheus remote write ingestion.
func (s *Server) setupPrometheusRoutes(r *mux.Router) {
	r.HandleFunc("/write", s.handleRemoteWrite).Methods(http.MethodPost)
}

func (s *Server) handleRemoteWrite(w http.ResponseWriter, r *http.Request) {
	if !s.config.HTTP.RemoteWriteEnabled || s.store == nil {
		jsonError(w, http.StatusNotFound, "not_found", "remote write is disabled")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.HTTP.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	decoded, err := snappy.Decode(nil, body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var req prompb.WriteRequest
	if err := req.Unmarshal(decoded); err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	series := convertPromWrite(&req)
	metrics := make([]string, 0, len(series))
	for m := range series {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	total := 0
	for _, m := range metrics {
		n, err := s.store.AppendPoints(r.Context(), m, series[m])
		if err != nil {
			writeError(w, err)
			return
		}
		total += n
	}
	pointsIngested.WithLabelValues("remote_write").Add(float64(total))
	s.logger.Debug("remote write ingested", "metrics", len(metrics), "points", total)
	w.WriteHeader(http.StatusNoContent)
}

// convertPromWrite groups samples by their __name__ label. Samples without a
// metric name are dropped. Remote write timestamps are already milliseconds.
func convertPromWrite(req *prompb.WriteRequest) map[string]Series {
	out := make(map[string]Series)
	for i := range req.Timeseries {
		ts := &req.Timeseries[i]
		metric := ""
		for _, label := range ts.Labels {
			if label.Name == "__name__" {
				metric = label.Value
				break
			}
		}
		if metric == "" {
			continue
		}
		for _, sample := range ts.Samples {
			out[metric] = append(out[metric], TimeSeriesPoint{
				Timestamp: sample.Timestamp,
				Value:     sample.Value,
			})
		}
	}
	return out
}
