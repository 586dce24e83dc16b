// Package fusion trains and serves the gradient-boosted model consulted by
// the ml_fusion conflict-resolution method. Samples describe both sides of a
// past conflict; the label says whether the first side turned out right.
package fusion

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"math"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"

	"signal-quorum/internal/ensemble"
)

type TrainOptions struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rounds:       40,
		LearningRate: 0.08,
		MaxDepth:     3,
	}
}

type artifact struct {
	FeatureNames []string `json:"feature_names"`
	ModelText    string   `json:"model_text"`
}

// Model implements ensemble.FusionScorer on a boosted-tree classifier.
type Model struct {
	featureNames []string
	boost        *boo.MultiClass
}

// Train fits a model on historical conflict outcomes. firstSideWon[i] labels
// sample i; both classes must be present.
func Train(samples [][]float64, firstSideWon []bool, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(firstSideWon) {
		return nil, errors.New("invalid training dataset")
	}
	names := ensemble.FusionFeatureNames
	if len(samples[0]) != len(names) {
		return nil, errors.New("sample width does not match the fusion feature layout")
	}

	labels := make([]int, len(firstSideWon))
	classSet := make(map[int]struct{}, 2)
	for i, won := range firstSideWon {
		if won {
			labels[i] = 1
		}
		classSet[labels[i]] = struct{}{}
	}
	if len(classSet) < 2 {
		return nil, errors.New("training set needs both won and lost conflicts")
	}

	if opts.Rounds <= 0 {
		opts.Rounds = DefaultTrainOptions().Rounds
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultTrainOptions().MaxDepth
	}

	o := boo.DefaultXOptions()
	o.Rounds = opts.Rounds
	o.LearningRate = opts.LearningRate
	o.MaxDepth = opts.MaxDepth
	o.Verbose = false
	o.EarlyStop = 0

	data := &utils.DataBunch{
		Data:   samples,
		Labels: labels,
		Keys:   append([]string(nil), names...),
	}
	model := boo.NewMultiClass(data, o)
	if model == nil {
		return nil, errors.New("failed to train fusion model")
	}
	return &Model{featureNames: append([]string(nil), names...), boost: model}, nil
}

// PredictProb returns the probability that the conflict's first side is
// right. A nil or untrained model is neutral.
func (m *Model) PredictProb(sample []float64) float64 {
	if m == nil || m.boost == nil {
		return 0.5
	}
	probs := m.boost.PredictSingle(sample)
	labels := m.boost.ClassLabels()
	for i := range labels {
		if labels[i] == 1 {
			return clamp01(probs[i])
		}
	}
	if len(probs) == 0 {
		return 0.5
	}
	return clamp01(probs[len(probs)-1])
}

func (m *Model) FeatureNames() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.featureNames))
	copy(out, m.featureNames)
	return out
}

// MarshalBinary serializes the model for storage alongside its feature layout.
func (m *Model) MarshalBinary() ([]byte, error) {
	if m == nil || m.boost == nil {
		return nil, errors.New("nil model")
	}
	var buf bytes.Buffer
	if err := boo.JSONMultiClass(m.boost, "softmax", &buf); err != nil {
		return nil, err
	}
	return json.Marshal(artifact{
		FeatureNames: m.featureNames,
		ModelText:    buf.String(),
	})
}

// UnmarshalBinary restores a model persisted with MarshalBinary, rejecting
// artifacts whose feature layout no longer matches the resolver's.
func UnmarshalBinary(blob []byte) (*Model, error) {
	if len(blob) == 0 {
		return nil, errors.New("empty artifact")
	}
	var a artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, err
	}
	if len(a.FeatureNames) != len(ensemble.FusionFeatureNames) {
		return nil, errors.New("artifact feature layout does not match the resolver")
	}
	reader := bufio.NewReader(bytes.NewReader([]byte(a.ModelText)))
	model, err := boo.UnJSONMultiClass(reader)
	if err != nil {
		return nil, err
	}
	return &Model{featureNames: append([]string(nil), a.FeatureNames...), boost: model}, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
