// Package ignite is a statistical engine for training analytics.
//
// It turns time-ordered measurements (training load, pace, lift maxes, body
// weight) into trend summaries, engineered features, plateau verdicts,
// progress projections with confidence bands, simple learned classifiers and
// closed-form performance predictions.
//
// # Basic Usage
//
//	analyzer := ignite.NewAnalyzer(ignite.DefaultConfig())
//	report, err := analyzer.Analyze("squat_1rm", ignite.Series{
//	    {Timestamp: day0, Value: 100},
//	    {Timestamp: day7, Value: 102.5},
//	    {Timestamp: day14, Value: 105},
//	})
//
// # Components
//
//   - TrendAnalyzer: least-squares regression, EMA smoothing, rolling slopes,
//     coefficient of variation
//   - FeatureExtractor: validation, rolling statistics, rate of change,
//     seasonal decomposition, Pearson correlation with a p-value
//   - PlateauDetector: weighted three-signal stagnation heuristic
//   - ProgressProjector: regression extrapolation with a 95% band
//   - AdaptationClassifier: k-means, logistic regression, decision trees and
//     bagged forests
//   - PerformancePredictor: goal timelines and 5k, strength and weight
//     formulas
//
// The engine components are pure and hold no state between calls. Around
// them the package provides a report archive (memory, file, S3, encrypted),
// a SQL store for measurements (SQLite or MySQL), an HTTP API with a
// websocket report stream and Prometheus metrics.
package ignite
