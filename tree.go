package ignite

import (
	"math"
	"sort"
)

// Tree node kinds.
const (
	NodeLeaf  = "leaf"
	NodeSplit = "node"
)

// TreeNode is a decision tree node. Samples with feature <= Threshold go
// Left.
type TreeNode struct {
	Type       string    `json:"type"`
	Prediction float64   `json:"prediction"`
	Feature    string    `json:"feature,omitempty"`
	Threshold  float64   `json:"threshold"`
	Left       *TreeNode `json:"left,omitempty"`
	Right      *TreeNode `json:"right,omitempty"`
}

// Predict walks the tree for sample. Missing features read as 0.
func (n *TreeNode) Predict(sample FeatureVector) float64 {
	node := n
	for node != nil && node.Type == NodeSplit {
		if sample[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	if node == nil {
		return 0
	}
	return node.Prediction
}

// Depth returns the number of split levels below n.
func (n *TreeNode) Depth() int {
	if n == nil || n.Type == NodeLeaf {
		return 0
	}
	l, r := n.Left.Depth(), n.Right.Depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

// ForestMember is one bagged tree and the features it was trained on.
type ForestMember struct {
	Tree          *TreeNode `json:"tree"`
	FeatureSubset []string  `json:"featureSubset"`
}

// RandomForest is an ensemble of independently trained trees.
type RandomForest []ForestMember

// DecisionTreeClassifier grows a tree by Gini impurity. Each node tries
// ThresholdSteps evenly spaced thresholds strictly between every feature's
// min and max and recurses until depth runs out, the node is pure, or no
// split lowers impurity. A negative depth uses MaxDepth.
func (c *AdaptationClassifier) DecisionTreeClassifier(dataset []FeatureVector, labelKey string, featureKeys []string, depth int) (*TreeNode, error) {
	x, err := matrix(dataset, featureKeys)
	if err != nil {
		return nil, err
	}
	y, err := labels(dataset, labelKey)
	if err != nil {
		return nil, err
	}
	if depth < 0 {
		depth = c.config.MaxDepth
	}
	rows := make([]int, len(x))
	for i := range rows {
		rows[i] = i
	}
	b := treeBuilder{x: x, y: y, keys: featureKeys, steps: c.config.ThresholdSteps}
	return b.build(rows, depth), nil
}

type treeBuilder struct {
	x     [][]float64
	y     []float64
	keys  []string
	steps int
}

func (b *treeBuilder) build(rows []int, depth int) *TreeNode {
	ys := b.labelsOf(rows)
	leaf := &TreeNode{Type: NodeLeaf, Prediction: majority(ys)}
	if depth <= 0 || len(rows) < 2 {
		return leaf
	}
	parent := gini(ys)
	if parent == 0 {
		return leaf
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := parent
	var bestLeft, bestRight []int
	for f := range b.keys {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			lo = math.Min(lo, b.x[r][f])
			hi = math.Max(hi, b.x[r][f])
		}
		if lo == hi {
			continue
		}
		for s := 1; s <= b.steps; s++ {
			t := lo + (hi-lo)*float64(s)/float64(b.steps+1)
			left, right := b.partition(rows, f, t)
			if len(left) == 0 || len(right) == 0 {
				continue
			}
			n := float64(len(rows))
			imp := float64(len(left))/n*gini(b.labelsOf(left)) + float64(len(right))/n*gini(b.labelsOf(right))
			if imp < bestImpurity-1e-12 {
				bestFeature, bestThreshold, bestImpurity = f, t, imp
				bestLeft, bestRight = left, right
			}
		}
	}
	if bestFeature < 0 {
		return leaf
	}

	return &TreeNode{
		Type:       NodeSplit,
		Prediction: leaf.Prediction,
		Feature:    b.keys[bestFeature],
		Threshold:  bestThreshold,
		Left:       b.build(bestLeft, depth-1),
		Right:      b.build(bestRight, depth-1),
	}
}

func (b *treeBuilder) partition(rows []int, f int, t float64) (left, right []int) {
	for _, r := range rows {
		if b.x[r][f] <= t {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

func (b *treeBuilder) labelsOf(rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = b.y[r]
	}
	return out
}

// gini returns 1 - sum(p_i^2) over the label distribution.
func gini(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	counts := make(map[float64]int)
	for _, v := range ys {
		counts[v]++
	}
	n := float64(len(ys))
	imp := 1.0
	for _, c := range counts {
		p := float64(c) / n
		imp -= p * p
	}
	return imp
}

// RandomForest trains trees on bootstrap resamples of dataset, each on
// max(1, round(sqrt(|featureKeys|))) features drawn without replacement.
// Non-positive trees uses the configured default.
func (c *AdaptationClassifier) RandomForest(dataset []FeatureVector, labelKey string, featureKeys []string, trees, depth int) (RandomForest, error) {
	if _, err := matrix(dataset, featureKeys); err != nil {
		return nil, err
	}
	if _, err := labels(dataset, labelKey); err != nil {
		return nil, err
	}
	if trees <= 0 {
		trees = c.config.Trees
	}
	subsetSize := int(math.Max(1, math.Round(math.Sqrt(float64(len(featureKeys))))))

	forest := make(RandomForest, 0, trees)
	n := len(dataset)
	for t := 0; t < trees; t++ {
		sample := make([]FeatureVector, n)
		for i := range sample {
			sample[i] = dataset[c.rng.Intn(n)]
		}
		idx := sampleWithoutReplacement(c.rng, len(featureKeys), subsetSize)
		sort.Ints(idx)
		subset := make([]string, len(idx))
		for i, j := range idx {
			subset[i] = featureKeys[j]
		}
		tree, err := c.DecisionTreeClassifier(sample, labelKey, subset, depth)
		if err != nil {
			return nil, err
		}
		forest = append(forest, ForestMember{Tree: tree, FeatureSubset: subset})
	}

	c.logger.Debug("random forest trained", "records", n, "trees", trees, "subset", subsetSize)
	return forest, nil
}

// PredictRandomForest returns the majority vote of every tree, each reading
// only its own feature subset. Ties go to the vote cast first.
func (c *AdaptationClassifier) PredictRandomForest(models RandomForest, sample FeatureVector) (float64, error) {
	if len(models) == 0 {
		return 0, errOutOfRange("models", "forest has no trees")
	}
	votes := make([]float64, len(models))
	for i, m := range models {
		if _, err := matrix([]FeatureVector{sample}, m.FeatureSubset); err != nil {
			return 0, err
		}
		votes[i] = m.Tree.Predict(sample)
	}
	return majority(votes), nil
}
