package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stayfinder/capture-app/internal/config"
	"stayfinder/capture-app/internal/domain"
	"stayfinder/capture-app/internal/handoff"
	"stayfinder/capture-app/internal/service"
)

// SessionHandler serves the photo-capture hand-off endpoints.
type SessionHandler struct {
	sessionService service.SessionService
	captureCfg     config.CaptureConfig
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService service.SessionService, captureCfg config.CaptureConfig) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, captureCfg: captureCfg}
}

// --- Request/Response Structs ---

type CreateSessionRequest struct {
	OwnerRef    string `json:"ownerRef"`
	TargetCount int    `json:"targetCount"`
}

type CreateSessionResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LocationPayload is validated field-by-field at the boundary: latitude and
// longitude must both be present; a missing accuracy defaults to 0.
type LocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
}

type UploadPhotoRequest struct {
	SessionID string           `json:"sessionId"`
	Photo     string           `json:"photo"` // base64-encoded image payload
	Location  *LocationPayload `json:"location"`
}

type PhotoResponse struct {
	Filename    string             `json:"filename"`
	ImageData   []byte             `json:"imageData"`
	PreviewData []byte             `json:"previewData,omitempty"`
	Location    domain.GeoLocation `json:"location"`
	CapturedAt  time.Time          `json:"capturedAt"`
}

type SessionResponse struct {
	SessionID   string          `json:"sessionId"`
	Photos      []PhotoResponse `json:"photos"`
	PhotoCount  int             `json:"photoCount"`
	TargetCount int             `json:"targetCount"`
	CreatedAt   time.Time       `json:"createdAt"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

type HandoffResponse struct {
	CaptureURL string `json:"captureUrl"`
	QRCode     string `json:"qrCode"` // base64-encoded PNG
}

type ExportResponse struct {
	Photos []service.ExportedPhoto `json:"photos"`
}

// --- Handler Methods ---

// CreateSession creates a new capture session and returns its token and
// expiry. The owner reference is optional; so is the target count.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	// An empty body is a valid create request.
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Malformed request body")
			return
		}
	}

	var ownerRef *primitive.ObjectID
	if req.OwnerRef != "" {
		oid, err := primitive.ObjectIDFromHex(req.OwnerRef)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid ownerRef")
			return
		}
		ownerRef = &oid
	}

	session, err := h.sessionService.CreateSession(c.Request.Context(), ownerRef, req.TargetCount)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateSessionResponse{
		SessionID: session.SessionID,
		ExpiresAt: session.ExpiresAt,
	})
}

// GetSession returns the full session state, expired or not, so the desktop
// can render "expired" instead of a generic failure.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("sessionId")

	session, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapSessionToResponse(session))
}

// UploadPhoto validates and appends one captured photo to a session.
func (h *SessionHandler) UploadPhoto(c *gin.Context) {
	var req UploadPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Malformed request body")
		return
	}

	// Field presence is checked here, before any store read, so a missing
	// field never costs a database round trip.
	if req.SessionID == "" || req.Photo == "" || req.Location == nil ||
		req.Location.Latitude == nil || req.Location.Longitude == nil {
		abortWithError(c, http.StatusBadRequest, "sessionId, photo, and location are required")
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.Photo)
	if err != nil || len(imageData) == 0 {
		abortWithError(c, http.StatusBadRequest, "photo must be base64-encoded image data")
		return
	}

	location := &domain.GeoLocation{
		Latitude:  *req.Location.Latitude,
		Longitude: *req.Location.Longitude,
	}
	if req.Location.Accuracy != nil {
		location.AccuracyMeters = *req.Location.Accuracy
	}

	result, err := h.sessionService.SubmitPhoto(c.Request.Context(), req.SessionID, imageData, location)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetHandoff returns the capture URL and its QR encoding for an existing
// session.
func (h *SessionHandler) GetHandoff(c *gin.Context) {
	sessionID := c.Param("sessionId")

	session, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}

	captureURL := handoff.BuildCaptureURL(h.captureCfg.BaseURL, h.captureCfg.PathPrefix, session.SessionID)
	qrPNG, err := handoff.QRPNG(captureURL, handoff.DefaultQRSize)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not render hand-off code")
		return
	}

	c.JSON(http.StatusOK, HandoffResponse{
		CaptureURL: captureURL,
		QRCode:     base64.StdEncoding.EncodeToString(qrPNG),
	})
}

// ExportSession mirrors a session's photos to object storage for the owning
// host and returns presigned download URLs.
func (h *SessionHandler) ExportSession(c *gin.Context) {
	sessionID := c.Param("sessionId")

	accountIDStr, err := getAccountIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get account ID from token")
		return
	}
	accountID, err := primitive.ObjectIDFromHex(accountIDStr)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Invalid account ID in token")
		return
	}

	photos, err := h.sessionService.ExportSession(c.Request.Context(), accountID, sessionID)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExportResponse{Photos: photos})
}

// mapServiceError converts service sentinel errors to HTTP responses.
// Expired is distinguished from NotFound (410 vs 404) so the mobile UI can
// say "this session expired" rather than "invalid link".
func (h *SessionHandler) mapServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionExpired):
		abortWithError(c, http.StatusGone, err.Error())
	case errors.Is(err, service.ErrSessionAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable),
		errors.Is(err, service.ErrExportUploadFailed),
		errors.Is(err, service.ErrExportURLError):
		abortWithError(c, http.StatusInternalServerError, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func mapSessionToResponse(session *domain.PhotoSession) SessionResponse {
	photos := make([]PhotoResponse, 0, len(session.Photos))
	for _, p := range session.Photos {
		photos = append(photos, PhotoResponse{
			Filename:    p.Filename,
			ImageData:   p.ImageData,
			PreviewData: p.PreviewData,
			Location:    p.Location,
			CapturedAt:  p.CapturedAt,
		})
	}
	return SessionResponse{
		SessionID:   session.SessionID,
		Photos:      photos,
		PhotoCount:  session.PhotoCount(),
		TargetCount: session.TargetCount,
		CreatedAt:   session.CreatedAt,
		ExpiresAt:   session.ExpiresAt,
	}
}
