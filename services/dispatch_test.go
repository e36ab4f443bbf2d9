package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/risiti/risiti-backend/types"
)

// fakeSink records deliveries and optionally fails every one.
type fakeSink struct {
	name string
	fail bool

	mu        sync.Mutex
	delivered []types.Event
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Deliver(_ context.Context, event types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New(s.name + " delivery failed")
	}
	s.delivered = append(s.delivered, event)
	return nil
}

func (s *fakeSink) deliveredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func TestDispatch_SinkFailureDoesNotAffectOthers(t *testing.T) {
	configs := new(mockConfigStore)
	configs.On("Get", mock.Anything).Return(configuredInstance(), nil)

	failing := &fakeSink{name: "webhook", fail: true}
	healthy := &fakeSink{name: "s3"}

	router := NewDispatchRouterWithFactory(configs, func(cfg *types.InstanceConfig) []Sink {
		return []Sink{failing, healthy}
	})

	event := types.NewEvent(types.EventTypeSubmissionProcessed, "sub-1", nil)
	router.Dispatch(context.Background(), event)

	assert.Equal(t, 0, failing.deliveredCount())
	assert.Equal(t, 1, healthy.deliveredCount())
}

func TestDispatch_ReloadsConfigPerEvent(t *testing.T) {
	configs := new(mockConfigStore)
	configs.On("Get", mock.Anything).Return(configuredInstance(), nil)

	sink := &fakeSink{name: "webhook"}
	router := NewDispatchRouterWithFactory(configs, func(cfg *types.InstanceConfig) []Sink {
		return []Sink{sink}
	})

	router.Dispatch(context.Background(), types.NewEvent(types.EventTypeSubmissionQueued, "sub-1", nil))
	router.Dispatch(context.Background(), types.NewEvent(types.EventTypeSubmissionProcessed, "sub-1", nil))

	configs.AssertNumberOfCalls(t, "Get", 2)
	assert.Equal(t, 2, sink.deliveredCount())
}

func TestDispatch_ConfigFailureIsSwallowed(t *testing.T) {
	configs := new(mockConfigStore)
	configs.On("Get", mock.Anything).Return(nil, errors.New("db down"))

	called := false
	router := NewDispatchRouterWithFactory(configs, func(cfg *types.InstanceConfig) []Sink {
		called = true
		return nil
	})

	// Must not panic or propagate.
	router.Dispatch(context.Background(), types.NewEvent(types.EventTypeSubmissionQueued, "sub-1", nil))
	assert.False(t, called)
}

func TestDefaultSinkFactory_BuildsOnlyEnabledSinks(t *testing.T) {
	cfg := configuredInstance()
	assert.Empty(t, defaultSinkFactory(cfg))

	cfg.WebhookURL = "https://example.com/hook"
	sinks := defaultSinkFactory(cfg)
	assert.Len(t, sinks, 1)
	assert.Equal(t, "webhook", sinks[0].Name())

	cfg.S3Bucket = "receipts"
	cfg.S3Region = "eu-west-1"
	cfg.S3AccessKeyID = "AKIA"
	cfg.S3SecretAccessKey = "secret"
	cfg.SpreadsheetPath = "/data/receipts.xlsx"
	sinks = defaultSinkFactory(cfg)
	assert.Len(t, sinks, 3)
}
