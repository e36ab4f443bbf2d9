package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/risiti/risiti-backend/types"
)

type mockDeviceStore struct {
	mock.Mock
}

func (m *mockDeviceStore) GetByAPIKey(ctx context.Context, apiKey string) (*types.Device, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Device), args.Error(1)
}

func (m *mockDeviceStore) GetByID(ctx context.Context, id string) (*types.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Device), args.Error(1)
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

// recordingNotifier captures emitted events.
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

// recordingTrigger counts runner nudges.
type recordingTrigger struct {
	mu    sync.Mutex
	count int
}

func (r *recordingTrigger) Trigger() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func (r *recordingTrigger) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type mockQueueRunner struct {
	mock.Mock
}

func (m *mockQueueRunner) RunOnce(ctx context.Context) (*types.RunnerReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RunnerReport), args.Error(1)
}
