package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risiti/risiti-backend/middleware"
	"github.com/risiti/risiti-backend/services"
	"github.com/risiti/risiti-backend/types"
)

func newStreamServer(t *testing.T, b *services.Broadcaster, keepAlive time.Duration) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/events/stream",
		middleware.SSEMiddleware(middleware.SSEConfig{}),
		NewStreamHandler(b, keepAlive).StreamEvents)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamEvents_DeliversDataFrames(t *testing.T) {
	b := services.NewBroadcaster(8)
	srv := newStreamServer(t, b, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Wait for the subscription before publishing.
	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	b.Publish(types.NewEvent(types.EventTypeSubmissionQueued, "sub-1", types.QueuedPayload{
		ID:     "sub-1",
		Status: "queued",
	}))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "), "got frame %q", line)

	var event types.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event))
	assert.Equal(t, types.EventTypeSubmissionQueued, event.Type)
	assert.Equal(t, "sub-1", event.SubmissionID)
}

func TestStreamEvents_KeepAliveComment(t *testing.T) {
	b := services.NewBroadcaster(8)
	srv := newStreamServer(t, b, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": keep-alive", strings.TrimSpace(line))
}

func TestStreamEvents_UnsubscribesOnDisconnect(t *testing.T) {
	b := services.NewBroadcaster(8)
	srv := newStreamServer(t, b, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	cancel()

	assert.Eventually(t, func() bool { return b.SubscriberCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}
