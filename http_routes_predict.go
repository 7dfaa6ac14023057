package ignite

import (
	"net/http"

	"github.com/gorilla/mux"
)

type goalRequest struct {
	Current    float64 `json:"current"`
	Target     float64 `json:"target"`
	WeeklyRate float64 `json:"weeklyRate"`
}

type fiveKRequest struct {
	CurrentTime           float64 `json:"currentTime" validate:"gt=0"`
	WeeklyImprovementRate float64 `json:"weeklyImprovementRate"`
	Weeks                 float64 `json:"weeks"`
}

type strengthRequest struct {
	CurrentMax      float64 `json:"currentMax" validate:"gte=0"`
	VolumeLoad      float64 `json:"volumeLoad"`
	RecoveryFactor  float64 `json:"recoveryFactor"`
	ProgressionRate float64 `json:"progressionRate"`
}

type weightRequest struct {
	CurrentWeight float64 `json:"currentWeight" validate:"gt=0"`
	WeeklyChange  float64 `json:"weeklyChange"`
	WeeksAhead    float64 `json:"weeksAhead"`
}

type predictionResponse struct {
	Prediction float64 `json:"prediction"`
}

func (s *Server) setupPredictRoutes(r *mux.Router) {
	p := r.PathPrefix("/predict").Subrouter()
	p.HandleFunc("/goal", s.handlePredictGoal).Methods(http.MethodPost)
	p.HandleFunc("/5k", s.handlePredict5k).Methods(http.MethodPost)
	p.HandleFunc("/strength", s.handlePredictStrength).Methods(http.MethodPost)
	p.HandleFunc("/weight", s.handlePredictWeight).Methods(http.MethodPost)
}

func (s *Server) handlePredictGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	tl := s.analyzer.Predictor.EstimateGoalTimeline(req.Current, req.Target, req.WeeklyRate)
	writeJSON(w, map[string]any{
		"weeks":     jsonFloat(tl.Weeks),
		"days":      jsonFloat(tl.Days),
		"reachable": tl.Reachable(),
	})
}

func (s *Server) handlePredict5k(w http.ResponseWriter, r *http.Request) {
	var req fiveKRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, predictionResponse{
		Prediction: s.analyzer.Predictor.Predict5kTime(req.CurrentTime, req.WeeklyImprovementRate, req.Weeks),
	})
}

func (s *Server) handlePredictStrength(w http.ResponseWriter, r *http.Request) {
	var req strengthRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, predictionResponse{
		Prediction: s.analyzer.Predictor.PredictStrengthMax(req.CurrentMax, req.VolumeLoad, req.RecoveryFactor, req.ProgressionRate),
	})
}

func (s *Server) handlePredictWeight(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, predictionResponse{
		Prediction: s.analyzer.Predictor.PredictWeightChange(req.CurrentWeight, req.WeeklyChange, req.WeeksAhead),
	})
}
