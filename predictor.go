package ignite

import (
	"encoding/json"
	"math"
)

// GoalTimeline is the time needed to reach a target at a steady rate.
// Unreachable goals report +Inf for both fields.
type GoalTimeline struct {
	Weeks float64 `json:"weeks"`
	Days  float64 `json:"days"`
}

// Reachable reports whether the timeline is finite.
func (g GoalTimeline) Reachable() bool {
	return !math.IsInf(g.Weeks, 0)
}

// MarshalJSON encodes unreachable timelines as "Infinity".
func (g GoalTimeline) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Weeks any `json:"weeks"`
		Days  any `json:"days"`
	}{Weeks: jsonFloat(g.Weeks), Days: jsonFloat(g.Days)})
}

var unreachable = GoalTimeline{Weeks: math.Inf(1), Days: math.Inf(1)}

// PerformancePredictor holds closed-form coaching formulas. It has no
// dependencies and no state.
type PerformancePredictor struct{}

// NewPerformancePredictor creates a new predictor.
func NewPerformancePredictor() *PerformancePredictor {
	return &PerformancePredictor{}
}

// EstimateGoalTimeline returns (target-current)/weeklyRate weeks. The sign
// of weeklyRate is the direction of progress, so a target the athlete has
// already met or passed in that direction takes 0 weeks. A zero rate or a
// non-finite input yields an unreachable timeline.
func (p *PerformancePredictor) EstimateGoalTimeline(current, target, weeklyRate float64) GoalTimeline {
	if !finite(current) || !finite(target) || !finite(weeklyRate) || weeklyRate == 0 {
		return unreachable
	}
	weeks := (target - current) / weeklyRate
	if weeks <= 0 {
		return GoalTimeline{}
	}
	return GoalTimeline{Weeks: weeks, Days: weeks * 7}
}

// Predict5kTime applies a weekly fractional improvement, clamped to
// [0, 0.2], for the given number of weeks.
func (p *PerformancePredictor) Predict5kTime(currentTime, weeklyImprovementRate, weeks float64) float64 {
	rate := clamp(weeklyImprovementRate, 0, 0.2)
	if weeks < 0 {
		weeks = 0
	}
	return currentTime * math.Pow(1-rate, weeks)
}

// PredictStrengthMax returns currentMax * (1 + load*recovery*rate), with
// recovery clamped to [0.5, 1.5] and load floored at 0.
func (p *PerformancePredictor) PredictStrengthMax(currentMax, volumeLoad, recoveryFactor, progressionRate float64) float64 {
	load := math.Max(0, volumeLoad)
	recovery := clamp(recoveryFactor, 0.5, 1.5)
	return currentMax * (1 + load*recovery*progressionRate)
}

// PredictWeightChange extrapolates body weight linearly.
func (p *PerformancePredictor) PredictWeightChange(currentWeight, weeklyChange, weeksAhead float64) float64 {
	return currentWeight + weeklyChange*weeksAhead
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
