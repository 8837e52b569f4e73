package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/healthmate/companion/pkg/model"
)

// RecentLimit is how many files and vitals the dashboard lists
const RecentLimit = 5

// ErrDashboardUnavailable is returned when the dashboard data could not be fetched
var ErrDashboardUnavailable = errors.New("failed to fetch data")

// DashboardSummary is the dashboard page
type DashboardSummary struct {
	ReportCount   int                  `json:"reportCount"`
	VitalsCount   int                  `json:"vitalsCount"`
	RecentReports []model.FileRecord   `json:"recentReports"`
	RecentVitals  []model.VitalsRecord `json:"recentVitals"`
}

// DashboardService builds the dashboard
type DashboardService struct {
	files  FileClient
	vitals VitalsClient
	logger *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(files FileClient, vitals VitalsClient, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		files:  files,
		vitals: vitals,
		logger: logger,
	}
}

// GetSummary fetches both collections and keeps the first RecentLimit of each in
// backend order
func (s *DashboardService) GetSummary(ctx context.Context) (*DashboardSummary, error) {
	files, vitals, err := fetchBoth(ctx, s.files, s.vitals)
	if err != nil {
		s.logger.Error("failed to fetch dashboard data", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDashboardUnavailable, err)
	}

	summary := &DashboardSummary{
		ReportCount:   len(files),
		VitalsCount:   len(vitals),
		RecentReports: head(files, RecentLimit),
		RecentVitals:  head(vitals, RecentLimit),
	}

	s.logger.Info("dashboard summary retrieved",
		zap.Int("report_count", summary.ReportCount),
		zap.Int("vitals_count", summary.VitalsCount),
	)
	return summary, nil
}

func head[T any](items []T, n int) []T {
	if len(items) < n {
		n = len(items)
	}
	out := make([]T, n)
	copy(out, items[:n])
	return out
}
