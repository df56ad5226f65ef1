package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/delivery"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"github.com/opsdeck/opsdeck-go/internal/logger"
	"github.com/opsdeck/opsdeck-go/internal/notification"
)

const maxInboxLimit = 100

// initInboxRoutes registers the in-app notification center endpoints.
func (c *Controller) initInboxRoutes() {
	inbox := c.Group.Group("/inbox")

	inbox.GET("", c.ListInbox)
	inbox.GET("/unread-count", c.InboxUnreadCount)
	inbox.PATCH("/:id/read", c.MarkInboxRead)
	inbox.PATCH("/:id/acknowledge", c.AcknowledgeInbox)
	inbox.DELETE("/:id", c.DeleteInbox)
}

// ListInbox returns in-app notifications, newest first.
func (c *Controller) ListInbox(ctx echo.Context) error {
	limit, offset := parseLimitOffset(ctx, maxInboxLimit)
	unreadOnly := ctx.QueryParam("unread") == "true"

	notifications, total := c.notifier.List(limit, offset, unreadOnly)
	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": notifications,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

// InboxUnreadCount returns the number of unread in-app notifications.
func (c *Controller) InboxUnreadCount(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]int{"unread": c.notifier.UnreadCount()})
}

// MarkInboxRead marks an in-app notification as read. Read receipts for
// notifications delivered through the in_app channel also feed the delivery
// tracker, keeping the channel's read stats honest.
func (c *Controller) MarkInboxRead(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := c.notifier.MarkRead(id); err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		return c.HandleError(ctx, err, "Failed to mark notification read", http.StatusInternalServerError)
	}

	n, err := c.notifier.Get(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get notification", http.StatusInternalServerError)
	}
	c.forwardReadReceipt(ctx, n)

	return ctx.JSON(http.StatusOK, n)
}

// AcknowledgeInbox acknowledges an in-app notification (implies read).
func (c *Controller) AcknowledgeInbox(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := c.notifier.MarkAcknowledged(id); err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		return c.HandleError(ctx, err, "Failed to acknowledge notification", http.StatusInternalServerError)
	}

	n, err := c.notifier.Get(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get notification", http.StatusInternalServerError)
	}
	c.forwardReadReceipt(ctx, n)

	return ctx.JSON(http.StatusOK, n)
}

// DeleteInbox removes an in-app notification.
func (c *Controller) DeleteInbox(ctx echo.Context) error {
	if err := c.notifier.Delete(ctx.Param("id")); err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		return c.HandleError(ctx, err, "Failed to delete notification", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// forwardReadReceipt reports an in-app read back to the delivery tracker
// when the notification originated from a dispatched record.
func (c *Controller) forwardReadReceipt(ctx echo.Context, n *notification.Notification) {
	if c.tracker == nil || n == nil {
		return
	}
	recordID, ok := n.Metadata["record_id"].(string)
	if !ok || recordID == "" {
		return
	}
	cb := &delivery.Callback{
		RecordID:  recordID,
		Status:    entities.StatusRead,
		Timestamp: time.Now(),
	}
	if err := c.tracker.HandleCallback(ctx.Request().Context(), cb); err != nil {
		c.log.Debug("in-app read receipt not applied",
			logger.String("record_id", recordID),
			logger.Error(err))
	}
}
