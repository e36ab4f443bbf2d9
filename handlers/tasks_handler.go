package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/risiti/risiti-backend/errors"
	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/types"
)

// QueueRunner is the handler's view of the runner's synchronous entry point.
type QueueRunner interface {
	RunOnce(ctx context.Context) (*types.RunnerReport, error)
}

// TasksHandler exposes the external trigger for the queue runner, intended
// for a cron scheduler or uptime pinger.
type TasksHandler struct {
	runner QueueRunner
	secret string
}

// NewTasksHandler creates a new TasksHandler.
func NewTasksHandler(runner QueueRunner, secret string) *TasksHandler {
	return &TasksHandler{runner: runner, secret: secret}
}

// RunTasks handles GET /tasks/run. The shared secret gates the endpoint; a
// mismatch is a 403. The drain runs synchronously and its report is the
// response body.
func (h *TasksHandler) RunTasks(c *gin.Context) {
	provided := c.Query("secret")
	if h.secret == "" ||
		subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		logger.GetLogger().Warnw("Rejected task runner trigger",
			"clientIp", c.ClientIP())
		_ = c.Error(apperrors.Forbidden("Invalid runner secret", ""))
		return
	}

	report, err := h.runner.RunOnce(c.Request.Context())
	if err != nil {
		if report != nil {
			// A partially completed run still reports what it managed.
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  err.Error(),
				"report": report,
			})
			return
		}
		_ = c.Error(apperrors.InternalServerError("Queue run failed"))
		return
	}

	c.JSON(http.StatusOK, report)
}
