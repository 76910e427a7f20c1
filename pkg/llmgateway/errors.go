package llmgateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
)

var (
	// ErrProviderError wraps a non-2xx response or a transport failure from
	// an upstream provider, and Gemini's MALFORMED_FUNCTION_CALL once its
	// retries run out (spec §7 error taxonomy). A response body that fails
	// to decode is returned as a plain "decode response" error instead.
	ErrProviderError = errors.New("llmgateway: provider error")
	// ErrTimeout wraps a request that exceeded its configured deadline.
	ErrTimeout = errors.New("llmgateway: request timeout")
	// ErrUnknownProvider is returned when a model's detected provider has no
	// configuration entry.
	ErrUnknownProvider = errors.New("llmgateway: unknown provider")
	// ErrUnauthorized is returned when a request carries no valid
	// Authorization: Bearer task:<id> header.
	ErrUnauthorized = errors.New("llmgateway: missing or malformed task bearer token")
)

func newJSONReader(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}

func envLookup(name string) string {
	return os.Getenv(name)
}

func jsonMarshalString(s string) (json.RawMessage, error) {
	return json.Marshal(s)
}
