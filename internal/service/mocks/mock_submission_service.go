package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"ectdforge/internal/model"
	"ectdforge/internal/service"
)

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Initialize(ctx context.Context, in service.InitializeInput) (*model.Submission, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

func (m *MockSubmissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

func (m *MockSubmissionService) ListDocuments(ctx context.Context, submissionID string) ([]model.Document, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockSubmissionService) Ingest(ctx context.Context, in service.IngestInput) (*model.Document, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockSubmissionService) IngestReader(ctx context.Context, in service.IngestReaderInput) (*model.Document, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockSubmissionService) PresignDownload(ctx context.Context, documentID string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, documentID, expiry)
	return args.String(0), args.Error(1)
}
