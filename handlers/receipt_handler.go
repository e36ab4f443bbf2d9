package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/risiti/risiti-backend/config"
	apperrors "github.com/risiti/risiti-backend/errors"
	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/middleware"
	"github.com/risiti/risiti-backend/services"
	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

// RunnerTrigger is the handler's hook for nudging the queue runner after
// intake; tests substitute a recorder.
type RunnerTrigger interface {
	Trigger()
}

// ReceiptHandler accepts receipt submissions from authenticated devices.
type ReceiptHandler struct {
	configStore store.ConfigStore
	submissions store.SubmissionStore
	notifier    services.EventNotifier
	runner      RunnerTrigger
	storage     config.StorageConfig
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(
	configStore store.ConfigStore,
	submissions store.SubmissionStore,
	notifier services.EventNotifier,
	runner RunnerTrigger,
	storage config.StorageConfig,
) *ReceiptHandler {
	return &ReceiptHandler{
		configStore: configStore,
		submissions: submissions,
		notifier:    notifier,
		runner:      runner,
		storage:     storage,
	}
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
}

// SubmitReceipt handles POST /receipt. The request must carry exactly one of
// a photo upload or a receipt URL; the submission is durably queued and
// acknowledged with 202 before any processing happens.
func (h *ReceiptHandler) SubmitReceipt(c *gin.Context) {
	log := logger.GetLogger()

	device := middleware.DeviceFromContext(c)
	if device == nil {
		_ = c.Error(apperrors.AuthenticationFailed("Device authentication required"))
		return
	}

	// Refuse intake outright when the instance cannot possibly process the
	// submission later.
	cfg, err := h.configStore.Get(c.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.NotConfigured("No instance configuration exists yet"))
			return
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}
	if !cfg.IsConfigured() {
		_ = c.Error(apperrors.NotConfigured("Extraction provider credentials are missing"))
		return
	}

	receiptURL := strings.TrimSpace(c.PostForm("receipturl"))
	photo, photoErr := c.FormFile("receiptphoto")
	hasPhoto := photoErr == nil && photo != nil

	if hasPhoto == (receiptURL != "") {
		_ = c.Error(apperrors.ValidationFailed(
			"Exactly one of receiptphoto or receipturl is required",
			"Provide a receiptphoto upload or a receipturl form field, not both"))
		return
	}

	sub := &types.Submission{
		ID:          uuid.New().String(),
		DeviceID:    device.ID,
		Status:      types.SubmissionStatusQueued,
		Description: strings.TrimSpace(c.PostForm("description")),
		Location:    strings.TrimSpace(c.PostForm("location")),
	}

	if hasPhoto {
		storedPath, err := h.storePhoto(c, photo, sub.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		sub.InputType = types.InputTypePhoto
		sub.InputRef = storedPath
	} else {
		if !strings.HasPrefix(receiptURL, "http://") && !strings.HasPrefix(receiptURL, "https://") {
			_ = c.Error(apperrors.ValidationFailed(
				"Invalid receipt URL", "receipturl must be an absolute http(s) URL"))
			return
		}
		sub.InputType = types.InputTypeURL
		sub.InputRef = receiptURL
	}

	if err := h.submissions.Create(c.Request.Context(), sub); err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	log.Infow("Submission queued",
		"submissionId", sub.ID,
		"deviceId", device.ID,
		"inputType", sub.InputType,
	)

	h.notifier.Notify(c.Request.Context(), types.NewEvent(types.EventTypeSubmissionQueued, sub.ID, types.QueuedPayload{
		ID:          sub.ID,
		Status:      string(types.SubmissionStatusQueued),
		ReceivedAt:  sub.ReceivedAt,
		DeviceName:  device.Name,
		InputType:   string(sub.InputType),
		Description: sub.Description,
		Location:    sub.Location,
	}))

	h.runner.Trigger()

	c.JSON(http.StatusAccepted, SubmitResponse{
		SubmissionID: sub.ID,
		Status:       string(types.SubmissionStatusQueued),
	})
}

// storePhoto validates and persists the uploaded photo under a server-chosen
// name, returning the stored path. The file is on disk before the submission
// row exists so a crash can orphan a file but never a row.
func (h *ReceiptHandler) storePhoto(c *gin.Context, photo *multipart.FileHeader, submissionID string) (string, error) {
	if h.storage.MaxUploadBytes > 0 && photo.Size > h.storage.MaxUploadBytes {
		return "", apperrors.ValidationFailed(
			"Photo too large",
			fmt.Sprintf("Photo exceeds the %d byte limit", h.storage.MaxUploadBytes))
	}

	src, err := photo.Open()
	if err != nil {
		return "", apperrors.ValidationFailed("Unreadable photo upload", err.Error())
	}
	defer func() { _ = src.Close() }()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", apperrors.ValidationFailed("Unreadable photo upload", err.Error())
	}
	if !isAllowedImageType(mtype) {
		return "", apperrors.ValidationFailed(
			"Unsupported photo type",
			fmt.Sprintf("Detected %s; expected a JPEG, PNG, WebP or HEIC image", mtype.String()))
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", apperrors.InternalServerError("Failed to rewind photo upload")
	}

	if err := os.MkdirAll(h.storage.UploadDir, 0o755); err != nil {
		return "", apperrors.InternalServerError("Failed to prepare upload directory")
	}

	// Server-chosen name; the client's filename is never trusted.
	storedPath := filepath.Join(h.storage.UploadDir, submissionID+mtype.Extension())
	dst, err := os.Create(storedPath)
	if err != nil {
		return "", apperrors.InternalServerError("Failed to store photo")
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(storedPath)
		return "", apperrors.InternalServerError("Failed to store photo")
	}

	return storedPath, nil
}

func isAllowedImageType(mtype *mimetype.MIME) bool {
	for _, allowed := range []string{"image/jpeg", "image/png", "image/webp", "image/heic"} {
		if mtype.Is(allowed) {
			return true
		}
	}
	return false
}
