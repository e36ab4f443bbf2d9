package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/risiti/risiti-backend/errors"
	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

const deviceContextKey = "authenticatedDevice"

// DeviceAuth authenticates submission requests against the device registry.
// The device presents its API key as a bearer token; a missing or malformed
// header is a 401, a key no device holds is a 403.
func DeviceAuth(devices store.DeviceStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			if err := c.Error(apperrors.AuthenticationFailed("Missing or malformed Authorization header")); err != nil {
				log.Errorw("Failed to set auth error", "error", err)
			}
			c.Abort()
			return
		}

		apiKey := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if apiKey == "" {
			if err := c.Error(apperrors.AuthenticationFailed("Empty API key")); err != nil {
				log.Errorw("Failed to set auth error", "error", err)
			}
			c.Abort()
			return
		}

		device, err := devices.GetByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warnw("Rejected unknown device API key",
					"apiKey", logger.MaskAPIKey(apiKey), "clientIp", c.ClientIP())
				if cerr := c.Error(apperrors.Forbidden("Unknown device", "API key is not registered")); cerr != nil {
					log.Errorw("Failed to set auth error", "error", cerr)
				}
			} else {
				if cerr := c.Error(apperrors.NewDatabaseError(err)); cerr != nil {
					log.Errorw("Failed to set auth error", "error", cerr)
				}
			}
			c.Abort()
			return
		}

		c.Set(deviceContextKey, device)
		c.Next()
	}
}

// DeviceFromContext returns the device DeviceAuth stored on the request, or
// nil when the route is not device-authenticated.
func DeviceFromContext(c *gin.Context) *types.Device {
	v, exists := c.Get(deviceContextKey)
	if !exists {
		return nil
	}
	device, ok := v.(*types.Device)
	if !ok {
		return nil
	}
	return device
}
