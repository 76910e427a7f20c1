// Package apierrors classifies errors raised anywhere in the service layer
// into the HTTP-facing taxonomy of spec §7 ("Error Handling Design") and
// maps each class to a status code. Handlers in pkg/api call StatusFor once
// per failed request instead of re-deriving status codes from sentinel
// errors by hand.
package apierrors

import (
	"errors"
	"net/http"

	"github.com/openclaw/agentcore/pkg/containerengine"
	"github.com/openclaw/agentcore/pkg/imagebuilder"
	"github.com/openclaw/agentcore/pkg/llmgateway"
	"github.com/openclaw/agentcore/pkg/store"
)

// Class is one of the §7 taxonomy members.
type Class string

const (
	ClassValidation         Class = "validation"
	ClassNotFound           Class = "not_found"
	ClassStateConflict      Class = "state_conflict"
	ClassRuntimeUnavailable Class = "runtime_unavailable"
	ClassImageNotFound      Class = "image_not_found"
	ClassProviderError      Class = "provider_error"
	ClassProviderMalformed  Class = "provider_malformed"
	ClassTimeout            Class = "timeout"
	ClassInternal           Class = "internal"
)

// ClassFor classifies err against every sentinel the store, container
// engine, image builder and LLM gateway packages export. Errors that match
// none of them are ClassInternal.
func ClassFor(err error) Class {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, store.ErrInvalidInput):
		return ClassValidation
	case errors.Is(err, store.ErrNotFound), errors.Is(err, imagebuilder.ErrBuildNotFound), errors.Is(err, containerengine.ErrContainerNotFound):
		return ClassNotFound
	case errors.Is(err, store.ErrStateConflict), errors.Is(err, store.ErrAlreadyExists):
		return ClassStateConflict
	case errors.Is(err, containerengine.ErrRuntimeUnavailable):
		return ClassRuntimeUnavailable
	case errors.Is(err, containerengine.ErrImageNotFound), errors.Is(err, imagebuilder.ErrNoBaseImage):
		return ClassImageNotFound
	case errors.Is(err, llmgateway.ErrProviderError), errors.Is(err, llmgateway.ErrUnknownProvider):
		return ClassProviderError
	case errors.Is(err, containerengine.ErrTimeout), errors.Is(err, llmgateway.ErrTimeout):
		return ClassTimeout
	default:
		return ClassInternal
	}
}

// StatusFor maps err to the HTTP status code for its class (spec §7
// "Propagation"): 400 for validation, 404 for not-found and
// image-not-found, 409 for state conflicts, 503 for runtime or provider
// unavailability, 504 for timeouts, 502 for malformed provider output, and
// 500 for everything else.
func StatusFor(err error) int {
	switch ClassFor(err) {
	case ClassValidation:
		return http.StatusBadRequest
	case ClassNotFound, ClassImageNotFound:
		return http.StatusNotFound
	case ClassStateConflict:
		return http.StatusConflict
	case ClassRuntimeUnavailable, ClassProviderError:
		return http.StatusServiceUnavailable
	case ClassTimeout:
		return http.StatusGatewayTimeout
	case ClassProviderMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
