// Package handler exposes the portal over HTTP with gin.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/accounts"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/announcements"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/auth"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/cloudinary"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/datepolicy"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/httpmiddleware"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/metrics"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/notify"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/qr"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/realtime"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/requests"
)

// Uploader stores attachment images. *cloudinary.Client implements it.
type Uploader interface {
	UploadDataURL(ctx context.Context, data string) (*cloudinary.UploadResult, error)
	UploadBytes(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
}

// Handler holds every service the routes call. Uploader and Hub may be nil.
type Handler struct {
	Accounts      *accounts.Service
	Requests      *requests.Service
	Normalizer    *qr.Normalizer
	Activity      *activity.Logger
	Notify        *notify.Service
	Announcements *announcements.Service
	Policy        *datepolicy.Policy
	Uploader      Uploader
	Hub           *realtime.Hub
	Metrics       *metrics.Metrics
	Limiter       *httpmiddleware.TokenBucket

	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	// PublicURL prefixes links printed on certificates.
	PublicURL string
}

const maxUploadBytes = 10 << 20

// Register mounts all routes on r.
func (h *Handler) Register(r gin.IRouter) {
	limited := func(c *gin.Context) { c.Next() }
	if h.Limiter != nil {
		limited = h.Limiter.Middleware(httpmiddleware.ClientIP)
	}

	v1 := r.Group("/v1", sessionMiddleware())
	v1.POST("/auth/login", limited, h.login)
	v1.GET("/calendar/holidays", h.holidays)
	v1.GET("/calendar/check", h.checkDate)
	v1.POST("/verify", limited, h.verifyRaw)
	v1.GET("/verify", limited, h.verifyToken)
	v1.GET("/verify/certificate", limited, h.certificate)
	v1.GET("/ws", h.websocket)

	authed := v1.Group("", auth.Bearer(h.JWTSigningKey, h.JWTIssuer), actorMiddleware())
	authed.GET("/me", h.me)
	authed.POST("/requests", h.createRequest)
	authed.GET("/requests", h.listRequests)
	authed.GET("/requests/:id", h.getRequest)
	authed.PUT("/requests/:id", h.editRequest)
	authed.POST("/requests/:id/cancel", h.cancelRequest)
	authed.POST("/requests/:id/attachments", h.uploadAttachment)
	authed.GET("/notifications", h.listNotifications)
	authed.POST("/notifications/:id/read", h.markNotificationRead)
	authed.GET("/announcements", h.listAnnouncements)

	admin := authed.Group("/admin", auth.RequireRole("admin"))
	admin.PATCH("/requests/:id/status", h.setStatus)
	admin.GET("/requests/:id/tokens", h.requestTokens)
	admin.POST("/announcements", h.createAnnouncement)
	admin.GET("/activity", h.listActivity)
	admin.POST("/activity/purge", h.purgeActivity)
	admin.POST("/users", h.createUser)
}

// sessionMiddleware attaches client metadata for activity entries.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader("X-Session-ID")
		if sid == "" {
			sid = uuid.NewString()
		}
		ctx := activity.WithSession(c.Request.Context(), activity.Session{
			ID:        sid,
			UserAgent: c.Request.UserAgent(),
			URL:       c.Request.URL.RequestURI(),
			Referrer:  c.Request.Referer(),
			IP:        c.ClientIP(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// actorMiddleware copies the token's user onto the request context.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := auth.ClaimsFrom(c); ok {
			ctx := activity.WithActor(c.Request.Context(), actorOf(claims))
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func actorOf(claims auth.Claims) activity.Actor {
	return activity.Actor{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}
}

func actor(c *gin.Context) activity.Actor {
	claims, _ := auth.ClaimsFrom(c)
	return actorOf(claims)
}

// writeError maps domain errors onto HTTP responses. Unknown errors are
// logged and answered with a generic message.
func writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "something went wrong, please try again"
	switch {
	case errors.Is(err, requests.ErrValidation),
		errors.Is(err, datepolicy.ErrInvalidDate),
		errors.Is(err, announcements.ErrEmpty),
		errors.Is(err, announcements.ErrAudience),
		errors.Is(err, accounts.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, qr.ErrInvalidPayload):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, requests.ErrInvalidTransition), errors.Is(err, requests.ErrNotEditable):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, requests.ErrNotFound), errors.Is(err, docstore.ErrNotFound),
		errors.Is(err, requests.ErrUnknownToken):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, requests.ErrForbidden), errors.Is(err, notify.ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, accounts.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, accounts.ErrDisabled):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, accounts.ErrEmailTaken):
		status, msg = http.StatusConflict, err.Error()
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUploadBytes {
		return nil, errors.New("file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes))
}
