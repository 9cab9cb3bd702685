package serving

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/example/jetscope/internal/labels"
)

// Response is the raw reply of the model server.
type Response struct {
	StatusCode int
	Body       []byte
}

// Output is the client-facing payload.
type Output struct {
	Probabilities  []float64 `json:"probabilities"`
	Labels         []string  `json:"labels,omitempty"`
	PredictedLabel string    `json:"predicted_label,omitempty"`
}

// Encode serializes the output as JSON.
func (o *Output) Encode() ([]byte, error) {
	return json.Marshal(o)
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// Adapter reshapes model server replies using a label catalog.
type Adapter struct {
	catalog *labels.Catalog
}

// NewAdapter returns an adapter bound to catalog. A nil catalog disables the
// length check and verbose output fails with ErrLabelMismatch.
func NewAdapter(catalog *labels.Catalog) *Adapter {
	return &Adapter{catalog: catalog}
}

// Postprocess validates the upstream reply and builds the output for the first
// prediction vector.
func (a *Adapter) Postprocess(resp Response, opts ResponseOptions) (*Output, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: string(resp.Body)}
	}

	var decoded predictResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("decode model server response: %w", err)
	}
	if len(decoded.Predictions) == 0 || len(decoded.Predictions[0]) == 0 {
		return nil, ErrNoPredictions
	}

	prediction := decoded.Predictions[0]
	if a.catalog != nil && a.catalog.Len() != len(prediction) {
		return nil, fmt.Errorf("%w: %d probabilities, %d labels", ErrLabelMismatch, len(prediction), a.catalog.Len())
	}

	out := &Output{Probabilities: prediction}
	if !opts.Verbose {
		return out, nil
	}

	if a.catalog == nil {
		return nil, fmt.Errorf("%w: no label catalog loaded", ErrLabelMismatch)
	}
	predicted, err := a.catalog.Label(ArgMax(prediction))
	if err != nil {
		return nil, err
	}
	out.Labels = a.catalog.Labels()
	out.PredictedLabel = predicted
	return out, nil
}

// LabelFor returns the catalog label at index, or "" when it is unknown.
func (a *Adapter) LabelFor(index int) string {
	if a.catalog == nil {
		return ""
	}
	label, err := a.catalog.Label(index)
	if err != nil {
		return ""
	}
	return label
}

// DecodeResponse reshapes the upstream reply and returns the serialized output
// with the content type to reply with.
func (a *Adapter) DecodeResponse(resp Response, opts ResponseOptions) ([]byte, string, error) {
	out, err := a.Postprocess(resp, opts)
	if err != nil {
		return nil, "", err
	}
	body, err := out.Encode()
	if err != nil {
		return nil, "", fmt.Errorf("encode output: %w", err)
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = JSONContentType
	}
	return body, contentType, nil
}

// ArgMax returns the index of the largest value, the first one on ties, or -1
// for an empty slice.
func ArgMax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
