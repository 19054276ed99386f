package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/cloudinary"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/requests"
)

func timeSlots() []string { return requests.TimeSlots }

func (h *Handler) createRequest(c *gin.Context) {
	var form requests.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	req, err := h.Requests.Create(c.Request.Context(), actor(c), form)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) listRequests(c *gin.Context) {
	a := actor(c)
	f := requests.ListFilter{Status: requests.Status(c.Query("status"))}
	if v := c.Query("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if a.Role != "admin" {
		f.UserID = a.UserID
	}
	list, err := h.Requests.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": list})
}

func (h *Handler) getRequest(c *gin.Context) {
	req, err := h.Requests.GetFor(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) editRequest(c *gin.Context) {
	var form requests.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	req, err := h.Requests.Edit(c.Request.Context(), actor(c), c.Param("id"), form)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) cancelRequest(c *gin.Context) {
	req, err := h.Requests.Cancel(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) setStatus(c *gin.Context) {
	var body struct {
		Status  string `json:"status" binding:"required,oneof=approved claimed cancelled"`
		Remarks string `json:"remarks"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be approved, claimed or cancelled"})
		return
	}
	req, err := h.Requests.SetStatus(c.Request.Context(), actor(c), c.Param("id"), requests.Status(body.Status), body.Remarks)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) requestTokens(c *gin.Context) {
	tokens, err := h.Requests.Tokens(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// uploadAttachment accepts a multipart "file" or a JSON data URL.
func (h *Handler) uploadAttachment(c *gin.Context) {
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.Requests.GetFor(ctx, actor(c), id); err != nil {
		writeError(c, err)
		return
	}

	var result *cloudinary.UploadResult
	var err error
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		header, ferr := c.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		data, ferr := readUpload(header)
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": ferr.Error()})
			return
		}
		result, err = h.Uploader.UploadBytes(ctx, data, header.Filename)
	} else {
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil || !strings.HasPrefix(body.Data, "data:image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": `provide {"data": "<image data URL>"}`})
			return
		}
		result, err = h.Uploader.UploadDataURL(ctx, body.Data)
	}
	if err != nil {
		writeUpstreamError(c, "image upload failed", err)
		return
	}

	req, err := h.Requests.AddAttachment(ctx, actor(c), id, result.SecureURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "public_id": result.PublicID, "attachments": req.Attachments})
}
