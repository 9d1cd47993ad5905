package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/utils"
)

// NotificationHandler serves the in-app inbox.
type NotificationHandler struct {
	Notifications NotificationStore
	now           func() time.Time
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications NotificationStore) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications, now: time.Now}
}

// NotificationListQuery selects a page of the inbox.
type NotificationListQuery struct {
	ListQuery
	Unread bool `form:"unread"`
}

// NotificationList is one page of the inbox with the total unread count.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}

// ListNotifications returns the caller's notifications, newest first.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var q NotificationListQuery
	if !utils.BindQuery(c, &q) {
		return
	}

	list, unread, err := h.Notifications.ListNotifications(c.Request.Context(), userID, q.Unread, q.page())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	utils.Success(c, "Notifications fetched successfully", NotificationList{Notifications: list, UnreadCount: unread})
}

// MarkRead marks one notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.Notifications.MarkNotificationRead(c.Request.Context(), userID, c.Param("id"), h.now()); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Notification marked as read", nil)
}

// MarkAllRead marks every unread notification as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	n, err := h.Notifications.MarkAllNotificationsRead(c.Request.Context(), userID, h.now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Notifications marked as read", gin.H{"updated": n})
}
