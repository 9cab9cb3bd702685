// Package serving adapts client requests to the TensorFlow-Serving REST
// predict API and reshapes its replies into probability payloads.
package serving

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ImageContentType is the only request content type accepted.
	ImageContentType = "application/x-image"
	// JSONContentType is the reply content type used when none is requested.
	JSONContentType = "application/json"
	// VerboseMarker is the accept-header suffix asking for label metadata.
	VerboseMarker = ";verbose"
)

var (
	// ErrLabelMismatch is returned when the prediction vector and the label
	// catalog disagree in length.
	ErrLabelMismatch = errors.New("prediction vector length does not match label catalog")
	// ErrNoPredictions is returned when the upstream body has no prediction vector.
	ErrNoPredictions = errors.New("model server response has no predictions")
)

// UnsupportedContentTypeError reports a request whose declared content type
// cannot be forwarded to the model server.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	ct := e.ContentType
	if ct == "" {
		ct = "unknown"
	}
	return fmt.Sprintf("unsupported content type %s", ct)
}

// UpstreamError carries a non-success reply from the model server. Its message
// is the upstream body, verbatim.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// ResponseOptions controls how the upstream reply is reshaped.
type ResponseOptions struct {
	// ContentType is returned to the caller alongside the serialized output.
	ContentType string
	// Verbose adds the label catalog and the predicted label to the output.
	Verbose bool
}

// RequestOptions describes one inbound classification request.
type RequestOptions struct {
	// ContentType is the declared type of the request body.
	ContentType string
	Response    ResponseOptions
}

// ParseAccept turns an accept header into ResponseOptions. A trailing
// ";verbose" marker is removed as an exact suffix.
func ParseAccept(accept string) ResponseOptions {
	accept = strings.TrimSpace(accept)

	var opts ResponseOptions
	if strings.HasSuffix(accept, VerboseMarker) {
		opts.Verbose = true
		accept = strings.TrimSpace(strings.TrimSuffix(accept, VerboseMarker))
	}

	switch accept {
	case "", "*/*":
		opts.ContentType = JSONContentType
	default:
		opts.ContentType = accept
	}
	return opts
}

// Accept renders the options back into an accept header value.
func (o ResponseOptions) Accept() string {
	ct := o.ContentType
	if ct == "" {
		ct = JSONContentType
	}
	if o.Verbose {
		return ct + VerboseMarker
	}
	return ct
}
