package invoker

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Prediction is one ranked class.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Index      int     `json:"index"`
}

// Result is either a list of top predictions or a failure. Exactly one of the
// two is set.
type Result struct {
	predictions []Prediction
	err         error
}

// Success wraps ranked predictions.
func Success(predictions []Prediction) Result {
	return Result{predictions: predictions}
}

// Failure wraps err. A nil err is replaced with a generic failure.
func Failure(err error) Result {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result{err: err}
}

// Ok reports whether the invocation produced predictions.
func (r Result) Ok() bool { return r.err == nil }

// Predictions returns the ranked predictions of a successful result.
func (r Result) Predictions() []Prediction { return r.predictions }

// Err returns the failure cause, or nil on success.
func (r Result) Err() error { return r.err }

// MarshalJSON renders {"top_5_predictions": [...]} or {"error": "..."}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: r.err.Error()})
	}
	predictions := r.predictions
	if predictions == nil {
		predictions = []Prediction{}
	}
	return json.Marshal(struct {
		TopPredictions []Prediction `json:"top_5_predictions"`
	}{TopPredictions: predictions})
}

// TopK ranks probabilities in descending order and returns the first k.
// Equal probabilities keep ascending index order. Confidence is a percentage
// rounded to two decimals.
func TopK(probabilities []float64, names []string, k int) ([]Prediction, error) {
	if len(names) != len(probabilities) {
		return nil, errors.Errorf("label catalog has %d entries for %d probabilities", len(names), len(probabilities))
	}

	indices := make([]int, len(probabilities))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return probabilities[indices[a]] > probabilities[indices[b]]
	})

	if k > len(indices) {
		k = len(indices)
	}
	if k < 0 {
		k = 0
	}

	top := make([]Prediction, 0, k)
	for _, idx := range indices[:k] {
		top = append(top, Prediction{
			Class:      names[idx],
			Confidence: math.Round(probabilities[idx]*100*100) / 100,
			Index:      idx,
		})
	}
	return top, nil
}
