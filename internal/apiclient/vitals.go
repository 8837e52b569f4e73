package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/healthmate/companion/pkg/model"
)

// VitalsAPI groups the /vitals endpoints
type VitalsAPI struct {
	c *Client
}

// Add creates a vitals record
func (v *VitalsAPI) Add(ctx context.Context, vitals model.NewVitals) (*model.VitalsRecord, error) {
	req, err := jsonRequest(http.MethodPost, "/vitals", vitals)
	if err != nil {
		return nil, err
	}
	var record model.VitalsRecord
	if err := v.c.do(ctx, req, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns every vitals record of the current user
func (v *VitalsAPI) List(ctx context.Context) ([]model.VitalsRecord, error) {
	var records []model.VitalsRecord
	if err := v.c.do(ctx, request{method: http.MethodGet, path: "/vitals"}, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns one vitals record
func (v *VitalsAPI) Get(ctx context.Context, id string) (*model.VitalsRecord, error) {
	var record *model.VitalsRecord
	if err := v.c.do(ctx, request{method: http.MethodGet, path: "/vitals/" + url.PathEscape(id)}, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// Update replaces a vitals record
func (v *VitalsAPI) Update(ctx context.Context, id string, vitals model.NewVitals) (*model.VitalsRecord, error) {
	req, err := jsonRequest(http.MethodPut, "/vitals/"+url.PathEscape(id), vitals)
	if err != nil {
		return nil, err
	}
	var record model.VitalsRecord
	if err := v.c.do(ctx, req, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes a vitals record
func (v *VitalsAPI) Delete(ctx context.Context, id string) error {
	return v.c.do(ctx, request{method: http.MethodDelete, path: "/vitals/" + url.PathEscape(id)}, nil)
}

// Advice returns the backend's advice for a vitals record. The payload shape is owned by
// the backend and passed through undecoded.
func (v *VitalsAPI) Advice(ctx context.Context, id string) (json.RawMessage, error) {
	var advice json.RawMessage
	if err := v.c.do(ctx, request{method: http.MethodGet, path: "/vitals/" + url.PathEscape(id) + "/advice"}, &advice); err != nil {
		return nil, err
	}
	return advice, nil
}
