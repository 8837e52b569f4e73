package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/healthmate/companion/pkg/model"
)

// InsightAPI groups the /insights endpoints
type InsightAPI struct {
	c *Client
}

// Generate asks the backend to analyse a stored file
func (i *InsightAPI) Generate(ctx context.Context, fileID string) (*model.Insight, error) {
	var insight *model.Insight
	if err := i.c.do(ctx, request{method: http.MethodPost, path: "/insights/generate/" + url.PathEscape(fileID)}, &insight); err != nil {
		return nil, err
	}
	return insight, nil
}

// GetByFile returns the insight of a file, or nil when none exists
func (i *InsightAPI) GetByFile(ctx context.Context, fileID string) (*model.Insight, error) {
	var insight *model.Insight
	if err := i.c.do(ctx, request{method: http.MethodGet, path: "/insights/file/" + url.PathEscape(fileID)}, &insight); err != nil {
		return nil, err
	}
	return insight, nil
}

// List returns every insight of the current user
func (i *InsightAPI) List(ctx context.Context) ([]model.Insight, error) {
	var insights []model.Insight
	if err := i.c.do(ctx, request{method: http.MethodGet, path: "/insights"}, &insights); err != nil {
		return nil, err
	}
	return insights, nil
}
