// Package service holds the page logic of the companion: vitals form normalization,
// the two-step upload, the timeline aggregator, the report viewer and the dashboard.
package service

import (
	"context"
	"errors"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/pkg/model"
)

var (
	// ErrValidation marks input rejected before any backend call
	ErrValidation = errors.New("validation failed")
	// ErrConfirmationRequired is returned by destructive operations called without confirmation
	ErrConfirmationRequired = errors.New("confirmation required")
)

// FileClient is the file API of the backend
type FileClient interface {
	Upload(ctx context.Context, upload apiclient.UploadRequest) (*model.FileRecord, error)
	List(ctx context.Context) ([]model.FileRecord, error)
	Get(ctx context.Context, id string) (*model.FileRecord, error)
	Delete(ctx context.Context, id string) error
}

// InsightClient is the insight API of the backend
type InsightClient interface {
	Generate(ctx context.Context, fileID string) (*model.Insight, error)
	GetByFile(ctx context.Context, fileID string) (*model.Insight, error)
}

// VitalsClient is the vitals API of the backend
type VitalsClient interface {
	Add(ctx context.Context, vitals model.NewVitals) (*model.VitalsRecord, error)
	List(ctx context.Context) ([]model.VitalsRecord, error)
}

var (
	_ FileClient    = (*apiclient.FileAPI)(nil)
	_ InsightClient = (*apiclient.InsightAPI)(nil)
	_ VitalsClient  = (*apiclient.VitalsAPI)(nil)
)
