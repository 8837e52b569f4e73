package apiclient

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var contractDocument []byte

// ContractValidator checks outbound requests against the backend's OpenAPI document
type ContractValidator struct {
	router routers.Router
}

// NewContractValidator loads and validates the embedded OpenAPI document
func NewContractValidator(ctx context.Context) (*ContractValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load backend contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("backend contract is invalid: %w", err)
	}

	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build contract router: %w", err)
	}

	return &ContractValidator{router: router}, nil
}

// Validate checks a request given by its path relative to the backend base URL.
// Multipart bodies are not inspected.
func (v *ContractValidator) Validate(ctx context.Context, method, path, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrContractViolation, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrContractViolation, method, path, err)
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			ExcludeRequestBody: strings.HasPrefix(contentType, "multipart/"),
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	if err := openapi3filter.ValidateRequest(ctx, input); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrContractViolation, method, path, err)
	}
	return nil
}
