package ignite

import "math"

// ClusterModel is the outcome of a k-means run.
type ClusterModel struct {
	Keys        []string          `json:"keys"`
	Centroids   []FeatureVector   `json:"centroids"`
	Assignments []int             `json:"assignments"`
	Clusters    [][]FeatureVector `json:"clusters"`
	Silhouette  float64           `json:"silhouette"`
	Iterations  int               `json:"iterations"`
}

// RunKMeans clusters dataset on keys with Lloyd's algorithm. Centroids start
// at k distinct randomly chosen records; iteration stops at a fixed point or
// after MaxIterations. A cluster that loses all members keeps its previous
// centroid. k is capped at the dataset size.
func (c *AdaptationClassifier) RunKMeans(dataset []FeatureVector, keys []string) (ClusterModel, error) {
	points, err := matrix(dataset, keys)
	if err != nil {
		return ClusterModel{}, err
	}
	n := len(points)
	k := c.config.Clusters
	if k > n {
		k = n
	}

	centroids := make([][]float64, k)
	for i, idx := range sampleWithoutReplacement(c.rng, n, k) {
		centroids[i] = append([]float64(nil), points[idx]...)
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}

	iterations := 0
	for iterations < c.config.MaxIterations {
		iterations++
		changed := false
		for i, p := range points {
			nearest := nearestCentroid(p, centroids)
			if nearest != assignments[i] {
				assignments[i] = nearest
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			a := assignments[i]
			if sums[a] == nil {
				sums[a] = make([]float64, len(keys))
			}
			for j, v := range p {
				sums[a][j] += v
			}
			counts[a]++
		}
		for ci := range centroids {
			if counts[ci] == 0 {
				continue
			}
			for j := range centroids[ci] {
				centroids[ci][j] = sums[ci][j] / float64(counts[ci])
			}
		}
	}

	model := ClusterModel{
		Keys:        append([]string(nil), keys...),
		Centroids:   make([]FeatureVector, k),
		Assignments: assignments,
		Clusters:    make([][]FeatureVector, k),
		Iterations:  iterations,
	}
	for ci, centroid := range centroids {
		fv := make(FeatureVector, len(keys))
		for j, key := range keys {
			fv[key] = centroid[j]
		}
		model.Centroids[ci] = fv
		model.Clusters[ci] = []FeatureVector{}
	}
	for i, a := range assignments {
		model.Clusters[a] = append(model.Clusters[a], dataset[i].Clone())
	}
	model.Silhouette = silhouette(points, assignments, k)

	c.logger.Debug("k-means finished", "records", n, "k", k, "iterations", iterations, "silhouette", model.Silhouette)
	return model, nil
}

// nearestCentroid returns the closest centroid; ties go to the lower index.
func nearestCentroid(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, ctr := range centroids {
		if d := euclidean(p, ctr); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// silhouette averages (b-a)/max(a,b) over all points, where a is the mean
// distance to the rest of the point's cluster and b the smallest mean
// distance to another non-empty cluster. A point alone in its cluster has no
// a and scores 0, as do points with a == b == 0.
func silhouette(points [][]float64, assignments []int, k int) float64 {
	n := len(points)
	if n < 2 || k < 2 {
		return 0
	}
	total := 0.0
	for i := range points {
		sums := make([]float64, k)
		counts := make([]int, k)
		for j := range points {
			if i == j {
				continue
			}
			c := assignments[j]
			sums[c] += euclidean(points[i], points[j])
			counts[c]++
		}
		own := assignments[i]
		if counts[own] == 0 {
			continue
		}
		a := sums[own] / float64(counts[own])
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			if m := sums[c] / float64(counts[c]); m < b {
				b = m
			}
		}
		if math.IsInf(b, 1) {
			b = 0
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}
