package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/risiti/risiti-backend/types"
)

// sheetHeaders is the column layout of the monthly log sheet. The queued
// event fills the intake columns; the terminal event completes the row.
var sheetHeaders = []string{
	"Submission ID", "Status", "Received At", "Processed At", "Device", "Input Type",
	"User Description", "Extracted Description", "Location", "Vendor Name", "Vendor TIN", "Vendor Phone",
	"VRN", "Receipt No.", "UIN", "Receipt Date", "Verification Code", "Total Amount",
	"VAT Amount", "Customer Name", "Customer ID Type", "Customer ID", "Tax Analysis", "Error",
}

// Workbook writes are read-modify-write on a shared file; serialize them
// process-wide since sinks are rebuilt per dispatch.
var spreadsheetMu sync.Mutex

// SpreadsheetSink appends or updates one row per submission in a monthly
// sheet of an XLSX workbook. The queued event appends the intake row; the
// processed event locates that row by submission id and rewrites it in place;
// duplicate and failed events update the status and error columns.
type SpreadsheetSink struct {
	path string
}

// NewSpreadsheetSink creates a sink writing to the workbook at path.
func NewSpreadsheetSink(path string) *SpreadsheetSink {
	return &SpreadsheetSink{path: path}
}

func (s *SpreadsheetSink) Name() string {
	return "spreadsheet"
}

func (s *SpreadsheetSink) Deliver(ctx context.Context, event types.Event) error {
	spreadsheetMu.Lock()
	defer spreadsheetMu.Unlock()

	f, err := s.openWorkbook()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := event.Timestamp.Format("January-2006")
	if err := s.ensureSheet(f, sheet); err != nil {
		return err
	}

	switch event.Type {
	case types.EventTypeSubmissionQueued:
		err = s.appendQueuedRow(f, sheet, event)
	case types.EventTypeSubmissionProcessed:
		err = s.rewriteProcessedRow(f, sheet, event)
	case types.EventTypeSubmissionDuplicate, types.EventTypeSubmissionFailed:
		err = s.updateTerminalStatus(f, sheet, event)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (s *SpreadsheetSink) openWorkbook() (*excelize.File, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return excelize.NewFile(), nil
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.path, err)
	}
	return f, nil
}

func (s *SpreadsheetSink) ensureSheet(f *excelize.File, sheet string) error {
	if index, _ := f.GetSheetIndex(sheet); index != -1 {
		return nil
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	for i, h := range sheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(sheetHeaders), 1)
		_ = f.SetCellStyle(sheet, "A1", last, styleID)
	}
	return nil
}

// findSubmissionRow scans column A for the submission id. Returns 0 when the
// row is absent (e.g., the workbook was rotated between events).
func (s *SpreadsheetSink) findSubmissionRow(f *excelize.File, sheet, submissionID string) (int, error) {
	cols, err := f.GetCols(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(cols) == 0 {
		return 0, nil
	}
	for i, v := range cols[0] {
		if v == submissionID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (s *SpreadsheetSink) setRow(f *excelize.File, sheet string, row int, values map[int]interface{}) error {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}
	return nil
}

func (s *SpreadsheetSink) appendQueuedRow(f *excelize.File, sheet string, event types.Event) error {
	var p types.QueuedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode queued payload: %w", err)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	row := len(rows) + 1

	return s.setRow(f, sheet, row, map[int]interface{}{
		1: p.ID,
		2: p.Status,
		3: p.ReceivedAt.Format("2006-01-02 15:04:05"),
		5: p.DeviceName,
		6: p.InputType,
		7: p.Description,
		9: p.Location,
	})
}

func (s *SpreadsheetSink) rewriteProcessedRow(f *excelize.File, sheet string, event types.Event) error {
	var p types.ProcessedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode processed payload: %w", err)
	}

	row, err := s.findSubmissionRow(f, sheet, p.SubmissionID)
	if err != nil {
		return err
	}
	if row == 0 {
		// Queued row was never written to this sheet; append instead.
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		row = len(rows) + 1
		if err := s.setRow(f, sheet, row, map[int]interface{}{1: p.SubmissionID}); err != nil {
			return err
		}
	}

	values := map[int]interface{}{
		2:  p.Status,
		4:  p.ProcessedAt.Format("2006-01-02 15:04:05"),
		24: "",
	}
	if data := p.Data; data != nil {
		verification := ""
		if data.HasVerificationCode() {
			verification = data.VerificationCode
		}
		values[8] = data.ExtractedDescription
		values[10] = data.VendorName
		values[11] = data.VendorTIN
		values[12] = data.VendorPhone
		values[13] = data.VRN
		values[14] = data.ReceiptNumber
		values[15] = data.UIN
		values[16] = data.ReceiptDate
		values[17] = verification
		values[18] = data.TotalAmount.String()
		values[19] = data.VATAmount.String()
		values[20] = data.CustomerName
		values[21] = data.CustomerIDType
		values[22] = data.CustomerID
		values[23] = data.TaxAnalysis
	}
	return s.setRow(f, sheet, row, values)
}

func (s *SpreadsheetSink) updateTerminalStatus(f *excelize.File, sheet string, event types.Event) error {
	var p struct {
		SubmissionID string `json:"submission_id"`
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode terminal payload: %w", err)
	}

	row, err := s.findSubmissionRow(f, sheet, p.SubmissionID)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}
	return s.setRow(f, sheet, row, map[int]interface{}{
		2:  p.Status,
		24: p.ErrorMessage,
	})
}
