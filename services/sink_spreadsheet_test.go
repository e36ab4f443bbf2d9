package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/risiti/risiti-backend/types"
)

func testSheetEvent(eventType types.EventType, payload interface{}) types.Event {
	event := types.NewEvent(eventType, "sub-1", payload)
	event.Timestamp = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return event
}

func TestSpreadsheetSink_QueuedThenProcessedRewritesRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.xlsx")
	sink := NewSpreadsheetSink(path)

	queued := testSheetEvent(types.EventTypeSubmissionQueued, types.QueuedPayload{
		ID:          "sub-1",
		Status:      "queued",
		ReceivedAt:  time.Date(2026, 8, 30, 11, 59, 0, 0, time.UTC),
		DeviceName:  "Front Desk",
		InputType:   "url",
		Description: "lunch",
	})
	require.NoError(t, sink.Deliver(context.Background(), queued))

	processed := testSheetEvent(types.EventTypeSubmissionProcessed, types.ProcessedPayload{
		SubmissionID: "sub-1",
		Status:       "completed",
		ProcessedAt:  time.Date(2026, 8, 30, 12, 1, 0, 0, time.UTC),
		Data: &types.ExtractionResult{
			VendorName:           "VENDOR LTD",
			ReceiptDate:          "2026-08-30",
			TotalAmount:          decimal.NewFromInt(25000),
			VerificationCode:     "VC-001",
			ExtractedDescription: "Team lunch",
		},
	})
	require.NoError(t, sink.Deliver(context.Background(), processed))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := "August-2026"
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2, "one header row plus one submission row")

	assert.Equal(t, "Submission ID", rows[0][0])
	assert.Equal(t, "Error", rows[0][23])

	row := rows[1]
	assert.Equal(t, "sub-1", row[0])
	assert.Equal(t, "completed", row[1])
	assert.Equal(t, "Front Desk", row[4])
	assert.Equal(t, "lunch", row[6])
	assert.Equal(t, "Team lunch", row[7])
	assert.Equal(t, "VENDOR LTD", row[9])
	assert.Equal(t, "VC-001", row[16])
	assert.Equal(t, "25000", row[17])
}

func TestSpreadsheetSink_FailedEventUpdatesStatusAndError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.xlsx")
	sink := NewSpreadsheetSink(path)

	queued := testSheetEvent(types.EventTypeSubmissionQueued, types.QueuedPayload{
		ID:         "sub-1",
		Status:     "queued",
		ReceivedAt: time.Now(),
		InputType:  "photo",
	})
	require.NoError(t, sink.Deliver(context.Background(), queued))

	failed := testSheetEvent(types.EventTypeSubmissionFailed, types.FailedPayload{
		SubmissionID: "sub-1",
		Status:       "failed",
		ErrorMessage: "extraction produced no tool call",
	})
	require.NoError(t, sink.Deliver(context.Background(), failed))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("August-2026")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "failed", rows[1][1])
	assert.Equal(t, "extraction produced no tool call", rows[1][23])
}

func TestSpreadsheetSink_ProcessedWithoutQueuedRowAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.xlsx")
	sink := NewSpreadsheetSink(path)

	processed := testSheetEvent(types.EventTypeSubmissionProcessed, types.ProcessedPayload{
		SubmissionID: "sub-orphan",
		Status:       "completed",
		ProcessedAt:  time.Now(),
		Data:         &types.ExtractionResult{VendorName: "VENDOR LTD"},
	})
	require.NoError(t, sink.Deliver(context.Background(), processed))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("August-2026")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "sub-orphan", rows[1][0])
	assert.Equal(t, "completed", rows[1][1])
}
