package ignite

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type analyzeRequest struct {
	Metric string `json:"metric" validate:"required,max=191"`
	Points Series `json:"points" validate:"max=100000"`
	// Persist also appends the points to the SQL store.
	Persist bool `json:"persist"`
}

type projectRequest struct {
	Points       Series  `json:"points" validate:"max=100000"`
	Steps        int     `json:"steps" validate:"gte=0,lte=520"`
	IntervalDays float64 `json:"intervalDays" validate:"gte=0"`
}

type plateauRequest struct {
	Points Series `json:"points" validate:"max=100000"`
}

type correlationRequest struct {
	Records []Record `json:"records" validate:"required,min=1,max=100000"`
	X       string   `json:"x" validate:"required"`
	Y       string   `json:"y" validate:"required"`
}

func (s *Server) setupAnalysisRoutes(r *mux.Router) {
	r.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/project", s.handleProject).Methods(http.MethodPost)
	r.HandleFunc("/plateau", s.handlePlateau).Methods(http.MethodPost)
	r.HandleFunc("/correlation", s.handleCorrelation).Methods(http.MethodPost)
	if s.hub != nil && s.config.HTTP.Stream.Enabled {
		r.HandleFunc("/stream", s.hub.WebSocketHandler()).Methods(http.MethodGet)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	if req.Persist && s.store != nil {
		n, err := s.store.AppendPoints(r.Context(), req.Metric, req.Points)
		if err != nil {
			writeError(w, err)
			return
		}
		pointsIngested.WithLabelValues("api").Add(float64(n))
	}

	report, err := s.analyzeAndPublish(r.Context(), req.Metric, req.Points)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, report)
}

// analyzeAndPublish runs the standard analysis, archives the report and
// pushes it to stream subscribers.
func (s *Server) analyzeAndPublish(ctx context.Context, metric string, series Series) (*Report, error) {
	start := time.Now()
	report, err := s.analyzer.Analyze(metric, series)
	observeAnalysis(time.Since(start), report, err)
	if err != nil {
		return nil, err
	}
	if s.archive != nil {
		if _, err := s.archive.Save(ctx, report); err != nil {
			return nil, err
		}
	}
	if s.hub != nil {
		s.hub.Publish(report)
	}
	return report, nil
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, s.analyzer.Projector.Project(req.Points, req.Steps, req.IntervalDays))
}

func (s *Server) handlePlateau(w http.ResponseWriter, r *http.Request) {
	var req plateauRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, s.analyzer.Plateau.Detect(req.Points))
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	var req correlationRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	vectors, err := s.analyzer.Features.ValidateSeries(req.Records, []string{req.X, req.Y})
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.analyzer.Features.CorrelationAnalysis(vectors, req.X, req.Y)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}
