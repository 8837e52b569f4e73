package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/pkg/model"
)

// MockFileClient is a mock implementation of FileClient
type MockFileClient struct {
	mock.Mock
}

func (m *MockFileClient) Upload(ctx context.Context, upload apiclient.UploadRequest) (*model.FileRecord, error) {
	args := m.Called(ctx, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileClient) List(ctx context.Context) ([]model.FileRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *MockFileClient) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileClient) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockInsightClient is a mock implementation of InsightClient
type MockInsightClient struct {
	mock.Mock
}

func (m *MockInsightClient) Generate(ctx context.Context, fileID string) (*model.Insight, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Insight), args.Error(1)
}

func (m *MockInsightClient) GetByFile(ctx context.Context, fileID string) (*model.Insight, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Insight), args.Error(1)
}

// MockVitalsClient is a mock implementation of VitalsClient
type MockVitalsClient struct {
	mock.Mock
}

func (m *MockVitalsClient) Add(ctx context.Context, vitals model.NewVitals) (*model.VitalsRecord, error) {
	args := m.Called(ctx, vitals)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VitalsRecord), args.Error(1)
}

func (m *MockVitalsClient) List(ctx context.Context) ([]model.VitalsRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VitalsRecord), args.Error(1)
}

func fileRecord(id, reportDate string) model.FileRecord {
	return model.FileRecord{
		ID:         id,
		FileName:   id + ".pdf",
		FileType:   model.FileTypeBloodTest,
		MimeType:   "application/pdf",
		ReportDate: model.MustTimestamp(reportDate),
	}
}

func vitalsRecord(id, date string) model.VitalsRecord {
	return model.VitalsRecord{ID: id, Date: model.MustTimestamp(date)}
}
