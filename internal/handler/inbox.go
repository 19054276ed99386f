package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/announcements"
)

func (h *Handler) listNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.Notify.List(c.Request.Context(), actor(c).UserID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	if err := h.Notify.MarkRead(c.Request.Context(), actor(c).UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listAnnouncements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.Announcements.List(c.Request.Context(), actor(c).Role, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": list})
}

func (h *Handler) createAnnouncement(c *gin.Context) {
	var body announcements.Announcement
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed announcement"})
		return
	}
	a, err := h.Announcements.Create(c.Request.Context(), actor(c).UserID, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) listActivity(c *gin.Context) {
	f := activity.Filter{
		Type:     activity.Type(c.Query("type")),
		Category: activity.Category(c.Query("category")),
		Severity: activity.Severity(c.Query("severity")),
		UserID:   c.Query("userId"),
	}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	for key, dst := range map[string]*time.Time{"since": &f.Since, "until": &f.Until} {
		if v := c.Query(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be an RFC 3339 timestamp"})
				return
			}
			*dst = t
		}
	}
	entries, err := h.Activity.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) purgeActivity(c *gin.Context) {
	var body struct {
		Before time.Time `json:"before" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC 3339 timestamp"})
		return
	}
	res, err := h.Activity.Purge(c.Request.Context(), body.Before)
	if err != nil {
		writeUpstreamError(c, "purge failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// writeUpstreamError answers 502 for failures of an external service.
func writeUpstreamError(c *gin.Context, msg string, err error) {
	slog.Error(msg, "path", c.FullPath(), "error", err)
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": msg})
}
