package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventMarshalsPayload(t *testing.T) {
	event := NewEvent(EventTypeSubmissionQueued, "sub-1", QueuedPayload{
		ID:     "sub-1",
		Status: "queued",
	})

	assert.Equal(t, EventTypeSubmissionQueued, event.Type)
	assert.Equal(t, "sub-1", event.SubmissionID)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Minute)

	var payload QueuedPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, "sub-1", payload.ID)
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, SubmissionStatusQueued.IsTerminal())
	assert.False(t, SubmissionStatusProcessing.IsTerminal())
	assert.True(t, SubmissionStatusCompleted.IsTerminal())
	assert.True(t, SubmissionStatusDuplicate.IsTerminal())
	assert.True(t, SubmissionStatusFailed.IsTerminal())
}

func TestHasVerificationCodeIgnoresWhitespace(t *testing.T) {
	r := &ExtractionResult{}
	assert.False(t, r.HasVerificationCode())

	r.VerificationCode = "   "
	assert.False(t, r.HasVerificationCode())

	r.VerificationCode = " VC-001 "
	assert.True(t, r.HasVerificationCode())
}

func TestInstanceConfigGates(t *testing.T) {
	cfg := &InstanceConfig{}
	assert.False(t, cfg.IsConfigured())

	cfg.LLMProvider = "groq"
	assert.False(t, cfg.IsConfigured())

	cfg.LLMAPIKey = "gsk_test"
	assert.True(t, cfg.IsConfigured())

	assert.False(t, cfg.S3Enabled())
	cfg.S3Bucket, cfg.S3Region = "b", "r"
	cfg.S3AccessKeyID, cfg.S3SecretAccessKey = "ak", "sk"
	assert.True(t, cfg.S3Enabled())
}
