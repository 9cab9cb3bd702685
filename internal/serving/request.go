package serving

import (
	"encoding/base64"
	"encoding/json"
)

type instance struct {
	B64 string `json:"b64"`
}

type predictRequest struct {
	Instances []instance `json:"instances"`
}

// EncodeRequest wraps the raw image bytes as a single base64 instance:
//
//	{"instances": [{"b64": "..."}]}
func EncodeRequest(body []byte, contentType string) ([]byte, error) {
	if contentType != ImageContentType {
		return nil, &UnsupportedContentTypeError{ContentType: contentType}
	}

	payload := predictRequest{
		Instances: []instance{{B64: base64.StdEncoding.EncodeToString(body)}},
	}
	return json.Marshal(payload)
}
