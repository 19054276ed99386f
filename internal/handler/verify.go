package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/auth"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/certificate"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/realtime"
)

// verifyRaw normalizes text decoded from a scanned QR image.
func (h *Handler) verifyRaw(c *gin.Context) {
	var req struct {
		Raw string `json:"raw" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw QR text is required"})
		return
	}
	ctx := c.Request.Context()
	record, err := h.Normalizer.Normalize(ctx, req.Raw)
	if err != nil {
		h.Metrics.Verification("invalid")
		h.Activity.Log(ctx, activity.Entry{
			Type:        activity.TypeQRVerificationFailed,
			Description: "Unrecognized QR code scanned",
			Metadata:    map[string]any{"length": len(req.Raw)},
		})
		writeError(c, err)
		return
	}
	h.Metrics.Verification("scanned")
	h.Activity.Log(ctx, activity.Entry{
		Type:        activity.TypeQRVerified,
		Description: "Verified " + record.DocumentType + " of " + record.FullName(),
		Metadata:    map[string]any{"lrn": record.LRN, "documentType": record.DocumentType},
	})
	c.JSON(http.StatusOK, gin.H{"record": record})
}

// verifyToken short-circuits scanning with a pre-resolved deep link.
func (h *Handler) verifyToken(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	ctx := c.Request.Context()
	res, err := h.Requests.ResolveToken(ctx, token)
	if err != nil {
		h.Metrics.Verification("unknown_token")
		h.Activity.Log(ctx, activity.Entry{
			Type:        activity.TypeQRVerificationFailed,
			Description: "Unknown verification token",
			Metadata:    map[string]any{"token": token},
		})
		writeError(c, err)
		return
	}
	h.Metrics.Verification("token")
	h.Activity.Log(ctx, activity.Entry{
		Type:        activity.TypeQRVerified,
		Description: "Verified " + res.Record.DocumentType + " of " + res.Record.FullName() + " by link",
		Metadata:    map[string]any{"requestId": res.RequestID, "token": token},
	})
	c.JSON(http.StatusOK, gin.H{"record": res.Record, "requestId": res.RequestID, "token": res.Token})
}

func (h *Handler) certificate(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	res, err := h.Requests.ResolveToken(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	link := ""
	if h.PublicURL != "" {
		link = strings.TrimRight(h.PublicURL, "/") + "/v1/verify?token=" + url.QueryEscape(token)
	}
	pdf, err := certificate.Render(certificate.Input{Record: res.Record, Token: token, VerifyURL: link})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="verification-`+token+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// websocket accepts the token as a query parameter since browsers cannot
// set headers on the upgrade request.
func (h *Handler) websocket(c *gin.Context) {
	if h.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime feed not available"})
		return
	}
	token := c.Query("access_token")
	if authz := c.GetHeader("Authorization"); token == "" && len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		token = strings.TrimSpace(authz[7:])
	}
	claims, err := auth.Parse(token, h.JWTSigningKey, h.JWTIssuer)
	if err != nil || !claims.IsAdmin() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
		return
	}
	realtime.ServeWS(h.Hub, c.Writer, c.Request)
}
