package ignite

import "math"

// LogisticModel is a binary classifier trained by batch gradient descent.
type LogisticModel struct {
	FeatureKeys  []string  `json:"featureKeys"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	Iterations   int       `json:"iterations"`
	LearningRate float64   `json:"learningRate"`
}

// TrainLogisticRegression fits weights and bias, both starting at zero, by
// gradient descent on the log loss. Labels are read as 0/1 targets. No
// regularisation is applied and training always runs the full budget; a
// non-positive iterations value uses the configured default.
func (c *AdaptationClassifier) TrainLogisticRegression(dataset []FeatureVector, labelKey string, featureKeys []string, iterations int) (*LogisticModel, error) {
	x, err := matrix(dataset, featureKeys)
	if err != nil {
		return nil, err
	}
	y, err := labels(dataset, labelKey)
	if err != nil {
		return nil, err
	}
	if iterations <= 0 {
		iterations = c.config.Iterations
	}

	n := float64(len(x))
	model := &LogisticModel{
		FeatureKeys:  append([]string(nil), featureKeys...),
		Weights:      make([]float64, len(featureKeys)),
		Iterations:   iterations,
		LearningRate: c.config.LearningRate,
	}
	grad := make([]float64, len(featureKeys))
	for it := 0; it < iterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0
		for i, row := range x {
			diff := model.score(row) - y[i]
			for j, v := range row {
				grad[j] += diff * v
			}
			gradBias += diff
		}
		for j := range model.Weights {
			model.Weights[j] -= model.LearningRate * grad[j] / n
		}
		model.Bias -= model.LearningRate * gradBias / n
	}

	c.logger.Debug("logistic regression trained", "records", len(x), "iterations", iterations, "bias", model.Bias)
	return model, nil
}

func (m *LogisticModel) score(row []float64) float64 {
	z := m.Bias
	for j, v := range row {
		z += m.Weights[j] * v
	}
	return sigmoid(z)
}

// PredictProbability returns P(label = 1 | sample).
func (m *LogisticModel) PredictProbability(sample FeatureVector) (float64, error) {
	rows, err := matrix([]FeatureVector{sample}, m.FeatureKeys)
	if err != nil {
		return 0, err
	}
	return m.score(rows[0]), nil
}

// Predict returns 1 when the probability reaches threshold, else 0.
func (m *LogisticModel) Predict(sample FeatureVector, threshold float64) (float64, error) {
	p, err := m.PredictProbability(sample)
	if err != nil {
		return 0, err
	}
	if p >= threshold {
		return 1, nil
	}
	return 0, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
