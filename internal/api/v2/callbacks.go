package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/delivery"
	"github.com/opsdeck/opsdeck-go/internal/errors"
)

// initCallbackRoutes registers the provider delivery callback endpoint.
func (c *Controller) initCallbackRoutes() {
	c.Group.POST("/delivery-callback", c.DeliveryCallback)
}

// DeliveryCallback consumes an async delivery status report from a channel
// provider and applies it to the notification's state machine.
func (c *Controller) DeliveryCallback(ctx echo.Context) error {
	var cb delivery.Callback
	if err := ctx.Bind(&cb); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid callback body"})
	}
	if cb.RecordID == "" && cb.ProviderID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Callback requires record_id or provider_id"})
	}

	err := c.tracker.HandleCallback(ctx.Request().Context(), &cb)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		if errors.CategoryOf(err) == errors.CategoryValidation {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.HandleError(ctx, err, "Failed to process delivery callback", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]string{"status": "processed"})
}
