package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/risiti/risiti-backend/types"
)

type mockSubmissionStore struct {
	mock.Mock
}

func (m *mockSubmissionStore) Create(ctx context.Context, sub *types.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubmissionStore) GetByID(ctx context.Context, id string) (*types.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Submission), args.Error(1)
}

func (m *mockSubmissionStore) ClaimOldestQueued(ctx context.Context) (*types.Submission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Submission), args.Error(1)
}

func (m *mockSubmissionStore) RescueStuck(ctx context.Context, olderThan time.Duration, message string) ([]string, error) {
	args := m.Called(ctx, olderThan, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockSubmissionStore) UpdateStatus(ctx context.Context, id string, status types.SubmissionStatus, errorMessage *string) error {
	args := m.Called(ctx, id, status, errorMessage)
	return args.Error(0)
}

func (m *mockSubmissionStore) IncrementRetryCount(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockSubmissionStore) CountQueued(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockConfigStore struct {
	mock.Mock
}

func (m *mockConfigStore) Get(ctx context.Context) (*types.InstanceConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.InstanceConfig), args.Error(1)
}

type mockReceiptStore struct {
	mock.Mock
}

func (m *mockReceiptStore) Create(ctx context.Context, receipt *types.Receipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *mockReceiptStore) FindByVerificationCode(ctx context.Context, code string) (*types.Receipt, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Receipt), args.Error(1)
}

func (m *mockReceiptStore) GetStats(ctx context.Context) (*types.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DashboardStats), args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, content string, isImage bool, cfg *types.InstanceConfig) (*types.ExtractionResult, error) {
	args := m.Called(ctx, content, isImage, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ExtractionResult), args.Error(1)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, sub *types.Submission) (string, bool, error) {
	args := m.Called(ctx, sub)
	return args.String(0), args.Bool(1), args.Error(2)
}

type mockPortalClient struct {
	mock.Mock
}

func (m *mockPortalClient) FetchReceipt(ctx context.Context, receiptURL, timeToken string) (string, error) {
	args := m.Called(ctx, receiptURL, timeToken)
	return args.String(0), args.Error(1)
}

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []types.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event types.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.Event, len(n.events))
	copy(out, n.events)
	return out
}

func (n *recordingNotifier) EventTypes() []types.EventType {
	var out []types.EventType
	for _, e := range n.Events() {
		out = append(out, e.Type)
	}
	return out
}
