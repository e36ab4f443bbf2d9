package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

// Sink delivers one canonical pipeline event to an external destination.
// Implementations format the event however their destination requires.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event types.Event) error
}

// SinkFactory builds the set of enabled sinks from a fresh instance-config
// snapshot. Split out so tests can substitute fakes for the real clients.
type SinkFactory func(cfg *types.InstanceConfig) []Sink

// DispatchRouter fans one event out to every configured sink. Delivery is
// fire-and-forget: a sink's failure is logged and swallowed, never propagated
// to the caller and never allowed to block another sink.
type DispatchRouter struct {
	log         *zap.SugaredLogger
	configStore store.ConfigStore
	buildSinks  SinkFactory
}

// NewDispatchRouter creates a router that reads sink configuration fresh from
// the config store on every dispatch.
func NewDispatchRouter(configStore store.ConfigStore) *DispatchRouter {
	return &DispatchRouter{
		log:         logger.GetLogger().Named("dispatch"),
		configStore: configStore,
		buildSinks:  defaultSinkFactory,
	}
}

// NewDispatchRouterWithFactory creates a router with a custom sink factory.
func NewDispatchRouterWithFactory(configStore store.ConfigStore, factory SinkFactory) *DispatchRouter {
	r := NewDispatchRouter(configStore)
	r.buildSinks = factory
	return r
}

// Dispatch delivers the event to every sink enabled in the current instance
// configuration, independently of each other's success or failure.
func (r *DispatchRouter) Dispatch(ctx context.Context, event types.Event) {
	cfg, err := r.configStore.Get(ctx)
	if err != nil {
		r.log.Errorw("Failed to load instance config for dispatch",
			"eventType", event.Type, "error", err)
		return
	}

	sinks := r.buildSinks(cfg)
	if len(sinks) == 0 {
		return
	}

	r.log.Debugw("Dispatching event", "eventType", event.Type,
		"submissionId", event.SubmissionID, "sinks", len(sinks))

	for _, sink := range sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			r.log.Warnw("Sink delivery failed",
				"sink", sink.Name(),
				"eventType", event.Type,
				"submissionId", event.SubmissionID,
				"error", err,
			)
			continue
		}
		r.log.Debugw("Sink delivery succeeded",
			"sink", sink.Name(), "eventType", event.Type)
	}
}

func defaultSinkFactory(cfg *types.InstanceConfig) []Sink {
	var sinks []Sink
	if cfg.WebhookEnabled() {
		sinks = append(sinks, NewWebhookSink(cfg.WebhookURL))
	}
	if cfg.S3Enabled() {
		sinks = append(sinks, NewS3Sink(cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretAccessKey))
	}
	if cfg.SpreadsheetEnabled() {
		sinks = append(sinks, NewSpreadsheetSink(cfg.SpreadsheetPath))
	}
	return sinks
}
