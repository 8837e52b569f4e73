package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/healthmate/companion/pkg/model"
)

// ErrTimelineUnavailable is returned when either collection could not be fetched
var ErrTimelineUnavailable = errors.New("failed to fetch timeline")

// Filter selects which kinds of items the timeline shows
type Filter string

const (
	FilterAll     Filter = "all"
	FilterReports Filter = "reports"
	FilterVitals  Filter = "vitals"
)

// ParseFilter maps unknown or blank values to FilterAll
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterReports, FilterVitals:
		return Filter(s)
	default:
		return FilterAll
	}
}

// Keep reports whether item passes the filter
func (f Filter) Keep(item model.TimelineItem) bool {
	switch f {
	case FilterReports:
		return item.Kind == model.KindReport
	case FilterVitals:
		return item.Kind == model.KindVital
	default:
		return true
	}
}

// Apply returns the items passing the filter in their original order
func (f Filter) Apply(items []model.TimelineItem) []model.TimelineItem {
	out := make([]model.TimelineItem, 0, len(items))
	for _, item := range items {
		if f.Keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// MonthGroup is one calendar month of the timeline
type MonthGroup struct {
	Month string               `json:"month"`
	Items []model.TimelineItem `json:"items"`
}

// Merge tags both collections, concatenates reports before vitals and sorts newest
// first. The sort is stable, so items with equal dates keep reports before vitals and
// their fetch order. Records without a date cannot be placed and are left out.
func Merge(files []model.FileRecord, vitals []model.VitalsRecord) []model.TimelineItem {
	items := make([]model.TimelineItem, 0, len(files)+len(vitals))
	for _, f := range files {
		if f.ReportDate.IsZero() {
			continue
		}
		items = append(items, model.ReportItem(f))
	}
	for _, v := range vitals {
		if v.Date.IsZero() {
			continue
		}
		items = append(items, model.VitalItem(v))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date().After(items[j].Date())
	})
	return items
}

// MonthLabel renders the grouping key of a date, e.g. "January 2025" (UTC)
func MonthLabel(item model.TimelineItem) string {
	return item.Date().UTC().Format("January 2006")
}

// GroupByMonth buckets items by month label in first-seen order
func GroupByMonth(items []model.TimelineItem) []MonthGroup {
	groups := []MonthGroup{}
	index := map[string]int{}

	for _, item := range items {
		label := MonthLabel(item)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, MonthGroup{Month: label})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// Aggregate is Merge, then the filter, then GroupByMonth
func Aggregate(files []model.FileRecord, vitals []model.VitalsRecord, filter Filter) []MonthGroup {
	return GroupByMonth(filter.Apply(Merge(files, vitals)))
}

// Timeline is the rendered timeline page
type Timeline struct {
	Filter Filter       `json:"filter"`
	Total  int          `json:"total"`
	Groups []MonthGroup `json:"groups"`
}

// TimelineService fetches both collections and aggregates them
type TimelineService struct {
	files  FileClient
	vitals VitalsClient
	logger *zap.Logger
}

// NewTimelineService creates a new TimelineService
func NewTimelineService(files FileClient, vitals VitalsClient, logger *zap.Logger) *TimelineService {
	return &TimelineService{
		files:  files,
		vitals: vitals,
		logger: logger,
	}
}

// Build fetches files and vitals concurrently and aggregates them. If either fetch fails
// no timeline is returned. A result that completes after ctx is done is discarded.
func (s *TimelineService) Build(ctx context.Context, filter Filter) (*Timeline, error) {
	files, vitals, err := fetchBoth(ctx, s.files, s.vitals)
	if err != nil {
		s.logger.Error("failed to fetch timeline", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTimelineUnavailable, err)
	}

	groups := Aggregate(files, vitals, filter)
	total := 0
	for _, g := range groups {
		total += len(g.Items)
	}

	if undated := countUndated(files, vitals); undated > 0 {
		s.logger.Warn("records without a date left out of the timeline", zap.Int("count", undated))
	}

	s.logger.Info("timeline built",
		zap.String("filter", string(filter)),
		zap.Int("reports", len(files)),
		zap.Int("vitals", len(vitals)),
		zap.Int("groups", len(groups)),
	)

	return &Timeline{Filter: filter, Total: total, Groups: groups}, nil
}

func countUndated(files []model.FileRecord, vitals []model.VitalsRecord) int {
	n := 0
	for _, f := range files {
		if f.ReportDate.IsZero() {
			n++
		}
	}
	for _, v := range vitals {
		if v.Date.IsZero() {
			n++
		}
	}
	return n
}

// fetchBoth lists files and vitals in parallel, all or nothing
func fetchBoth(ctx context.Context, fileClient FileClient, vitalsClient VitalsClient) ([]model.FileRecord, []model.VitalsRecord, error) {
	var (
		files  []model.FileRecord
		vitals []model.VitalsRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		files, err = fileClient.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		vitals, err = vitalsClient.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to list vitals: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return files, vitals, nil
}
