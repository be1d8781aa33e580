package main

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

var ErrInvalidGenre = errors.New("invalid genre provided")

const (
	NotRecommended = 0
	Recommended    = 1
)

// genreCodes encodes the genres known by the recommender.
var genreCodes = map[string]float64{
	"Fiction":         0,
	"Non-Fiction":     1,
	"Science Fiction": 2,
	"Fantasy":         3,
	"Horror":          4,
}

// trainingSample is one labelled row: genre code, average rating and label.
type trainingSample struct {
	features [2]float64
	label    int
}

var recommenderDataset = []trainingSample{
	{features: [2]float64{0, 4.1}, label: Recommended},
	{features: [2]float64{1, 3.9}, label: NotRecommended},
	{features: [2]float64{2, 4.7}, label: Recommended},
	{features: [2]float64{3, 4.2}, label: Recommended},
	{features: [2]float64{4, 3.8}, label: NotRecommended},
}

// Recommender classifies a (genre, average rating) pair.
type Recommender interface {
	Predict(genre string, rating float64) (int, error)
}

// treeNode is either a leaf (feature < 0) or a split on
// features[feature] <= threshold.
type treeNode struct {
	feature   int
	threshold float64
	label     int
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(x [2]float64) int {
	for n.feature >= 0 {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.label
}

// RandomForest is an ensemble of fully grown decision trees. It is
// immutable once built and safe for concurrent predictions.
type RandomForest struct {
	trees []*treeNode
}

// NewRandomForest fits a forest of `trees` trees on the built-in dataset.
func NewRandomForest(logger *zap.Logger, trees int, seed int64) *RandomForest {
	rf := fitForest(recommenderDataset, trees, seed)
	correct := 0
	for _, s := range recommenderDataset {
		if rf.vote(s.features) == s.label {
			correct++
		}
	}
	logger.Info("recommender trained",
		zap.Int("trees", trees),
		zap.Int64("seed", seed),
		zap.Int("samples", len(recommenderDataset)),
		zap.Float64("accuracy", float64(correct)/float64(len(recommenderDataset))),
	)
	return rf
}

func fitForest(data []trainingSample, trees int, seed int64) *RandomForest {
	rng := rand.New(rand.NewSource(seed))
	// sqrt(n_features) candidate features at each split.
	maxFeatures := int(math.Max(1, math.Floor(math.Sqrt(float64(len(data[0].features))))))
	rf := &RandomForest{trees: make([]*treeNode, 0, trees)}
	for i := 0; i < trees; i++ {
		sample := make([]trainingSample, len(data))
		for j := range sample {
			sample[j] = data[rng.Intn(len(data))]
		}
		rf.trees = append(rf.trees, growTree(sample, rng, maxFeatures))
	}
	return rf
}

// Predict returns Recommended or NotRecommended for the genre and rating.
func (rf *RandomForest) Predict(genre string, rating float64) (int, error) {
	code, ok := genreCodes[genre]
	if !ok {
		return NotRecommended, ErrInvalidGenre
	}
	if len(rf.trees) == 0 {
		return NotRecommended, errors.New("recommender has no trained trees")
	}
	return rf.vote([2]float64{code, rating}), nil
}

// vote returns the majority label. Ties go to Recommended.
func (rf *RandomForest) vote(x [2]float64) int {
	yes := 0
	for _, t := range rf.trees {
		yes += t.predict(x)
	}
	if 2*yes >= len(rf.trees) {
		return Recommended
	}
	return NotRecommended
}

func growTree(data []trainingSample, rng *rand.Rand, maxFeatures int) *treeNode {
	positives := 0
	for _, s := range data {
		positives += s.label
	}
	leaf := &treeNode{feature: -1, label: NotRecommended}
	if 2*positives >= len(data) {
		leaf.label = Recommended
	}
	if positives == 0 || positives == len(data) {
		return leaf
	}

	// Candidate features are drawn without replacement. When none of
	// them can separate the node, the remaining ones are tried too.
	order := rng.Perm(len(data[0].features))
	feature, threshold, found := bestSplit(data, order[:maxFeatures])
	if !found {
		feature, threshold, found = bestSplit(data, order[maxFeatures:])
	}
	if !found {
		return leaf
	}

	var left, right []trainingSample
	for _, s := range data {
		if s.features[feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      growTree(left, rng, maxFeatures),
		right:     growTree(right, rng, maxFeatures),
	}
}

// bestSplit searches the midpoints between distinct values of the given
// features for the split with the lowest weighted gini impurity.
func bestSplit(data []trainingSample, features []int) (int, float64, bool) {
	bestFeature, bestThreshold, bestScore := -1, 0.0, math.Inf(1)
	for _, f := range features {
		sorted := make([]trainingSample, len(data))
		copy(sorted, data)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].features[f] < sorted[j].features[f] })

		total := len(sorted)
		totalPos := 0
		for _, s := range sorted {
			totalPos += s.label
		}
		leftPos := 0
		for i := 1; i < total; i++ {
			leftPos += sorted[i-1].label
			if sorted[i-1].features[f] == sorted[i].features[f] {
				continue
			}
			score := float64(i)*gini(leftPos, i) + float64(total-i)*gini(totalPos-leftPos, total-i)
			if score < bestScore {
				bestFeature = f
				bestThreshold = (sorted[i-1].features[f] + sorted[i].features[f]) / 2
				bestScore = score
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(positives, n int) float64 {
	p := float64(positives) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}
