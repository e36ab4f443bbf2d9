package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/risiti/risiti-backend/errors"
	"github.com/risiti/risiti-backend/pkg/traportal"
	"github.com/risiti/risiti-backend/types"
)

func newTestFetcher(portal *mockPortalClient, subs *mockSubmissionStore, maxRetries int) *Fetcher {
	f := NewFetcher(portal, subs, maxRetries, time.Minute)
	f.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return f
}

func TestFetch_SucceedsFirstAttempt(t *testing.T) {
	portal := new(mockPortalClient)
	subs := new(mockSubmissionStore)

	sub := &types.Submission{ID: "sub-1", InputRef: "https://verify.tra.go.tz/ABC_142530"}
	portal.On("FetchReceipt", mock.Anything, sub.InputRef, "14:25:30").Return("receipt text", nil)

	f := newTestFetcher(portal, subs, 9)
	content, ok, err := f.Fetch(context.Background(), sub)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "receipt text", content)
	subs.AssertNotCalled(t, "IncrementRetryCount", mock.Anything, mock.Anything)
}

func TestFetch_TransientThenSuccessPersistsRetryCount(t *testing.T) {
	portal := new(mockPortalClient)
	subs := new(mockSubmissionStore)

	sub := &types.Submission{ID: "sub-1", InputRef: "https://verify.tra.go.tz/ABC_142530"}

	portal.On("FetchReceipt", mock.Anything, sub.InputRef, "14:25:30").
		Return("", traportal.ErrReceiptNotReady).Times(3)
	portal.On("FetchReceipt", mock.Anything, sub.InputRef, "14:25:30").
		Return("receipt text", nil).Once()

	subs.On("IncrementRetryCount", mock.Anything, "sub-1").Return(1, nil).Once()
	subs.On("IncrementRetryCount", mock.Anything, "sub-1").Return(2, nil).Once()
	subs.On("IncrementRetryCount", mock.Anything, "sub-1").Return(3, nil).Once()

	f := newTestFetcher(portal, subs, 9)
	content, ok, err := f.Fetch(context.Background(), sub)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "receipt text", content)
	// Every failed attempt was persisted before the next try.
	assert.Equal(t, 3, sub.RetryCount)
	subs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFetch_ExhaustionRecordsFailure(t *testing.T) {
	portal := new(mockPortalClient)
	subs := new(mockSubmissionStore)

	sub := &types.Submission{ID: "sub-1", InputRef: "https://verify.tra.go.tz/ABC_142530"}

	portal.On("FetchReceipt", mock.Anything, mock.Anything, mock.Anything).
		Return("", traportal.ErrReceiptNotReady)

	for i := 1; i <= 3; i++ {
		subs.On("IncrementRetryCount", mock.Anything, "sub-1").Return(i, nil).Once()
	}
	subs.On("UpdateStatus", mock.Anything, "sub-1", types.SubmissionStatusFailed, mock.MatchedBy(func(msg *string) bool {
		// Message carries the attempt count and the fetch error taxonomy.
		return msg != nil &&
			strings.Contains(*msg, "after 3 attempts") &&
			strings.Contains(*msg, string(apperrors.TransientFetchError))
	})).Return(nil)

	f := newTestFetcher(portal, subs, 2)
	content, ok, err := f.Fetch(context.Background(), sub)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, content)
	subs.AssertExpectations(t)
}

func TestFetch_MissingTimeTokenFailsWithoutRetry(t *testing.T) {
	portal := new(mockPortalClient)
	subs := new(mockSubmissionStore)

	sub := &types.Submission{ID: "sub-1", InputRef: "https://verify.tra.go.tz/no-token"}

	subs.On("UpdateStatus", mock.Anything, "sub-1", types.SubmissionStatusFailed, mock.Anything).Return(nil)

	f := newTestFetcher(portal, subs, 9)
	_, ok, err := f.Fetch(context.Background(), sub)

	require.NoError(t, err)
	assert.False(t, ok)
	portal.AssertNotCalled(t, "FetchReceipt", mock.Anything, mock.Anything, mock.Anything)
	subs.AssertNotCalled(t, "IncrementRetryCount", mock.Anything, mock.Anything)
}

func TestFetch_ContextCancelStopsRetrying(t *testing.T) {
	portal := new(mockPortalClient)
	subs := new(mockSubmissionStore)

	sub := &types.Submission{ID: "sub-1", InputRef: "https://verify.tra.go.tz/ABC_142530"}

	ctx, cancel := context.WithCancel(context.Background())
	portal.On("FetchReceipt", mock.Anything, mock.Anything, mock.Anything).
		Return("", traportal.ErrReceiptNotReady).
		Run(func(args mock.Arguments) { cancel() })

	f := newTestFetcher(portal, subs, 9)
	_, ok, err := f.Fetch(ctx, sub)

	assert.Error(t, err)
	assert.False(t, ok)
	subs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
