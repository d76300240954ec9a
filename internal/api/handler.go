package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Durgaprasad40/mira-nearby/internal/location"
	"github.com/Durgaprasad40/mira-nearby/internal/nearby"
	"github.com/Durgaprasad40/mira-nearby/internal/privacy"
	"github.com/Durgaprasad40/mira-nearby/internal/ratelimit"
	"github.com/Durgaprasad40/mira-nearby/internal/session"
	"github.com/Durgaprasad40/mira-nearby/internal/storage"
	apperrors "github.com/Durgaprasad40/mira-nearby/pkg/errors"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
	"github.com/Durgaprasad40/mira-nearby/pkg/validator"
)

// LocationService is the slice of location.Service the handlers need.
type LocationService interface {
	Record(ctx context.Context, userID string, lat, lon float64, now time.Time) error
	Publish(ctx context.Context, userID string, lat, lon float64, now time.Time) (*location.PublishResult, error)
	SetHideDistance(ctx context.Context, userID string, hide bool) error
}

// NearbyService answers viewer queries.
type NearbyService interface {
	Query(ctx context.Context, viewerID string, lat, lon float64, sessionSalt string, zoomBucket int, now time.Time) ([]nearby.User, error)
}

// CrossedPathsDetector runs after a successful publish.
type CrossedPathsDetector interface {
	Detect(ctx context.Context, userID string, lat, lon float64, now time.Time) (bool, error)
}

// BlockStore manages the bidirectional block list.
type BlockStore interface {
	AddBlock(ctx context.Context, userID, blockedUserID string) error
	RemoveBlock(ctx context.Context, userID, blockedUserID string) error
}

// StatsRecorder counts traffic for the daily analytics rollup.
type StatsRecorder interface {
	CountPublish(ctx context.Context)
	CountNearby(ctx context.Context)
	CountCrossed(ctx context.Context)
	Report(ctx context.Context, days int) ([]storage.AnalyticsRecord, error)
}

type Handler struct {
	sessionService  session.SessionService
	locationService LocationService
	nearbyService   NearbyService
	detector        CrossedPathsDetector
	blocks          BlockStore
	stats           StatsRecorder
	rateLimiter     ratelimit.RateLimiter
	validator       validator.Validator
	logger          logger.Logger
}

func NewHandler(
	sessionService session.SessionService,
	locationService LocationService,
	nearbyService NearbyService,
	detector CrossedPathsDetector,
	blocks BlockStore,
	stats StatsRecorder,
	rateLimiter ratelimit.RateLimiter,
	validator validator.Validator,
	log logger.Logger,
) *Handler {
	return &Handler{
		sessionService:  sessionService,
		locationService: locationService,
		nearbyService:   nearbyService,
		detector:        detector,
		blocks:          blocks,
		stats:           stats,
		rateLimiter:     rateLimiter,
		validator:       validator,
		logger:          log,
	}
}

// POST /api/session/create
func (h *Handler) CreateSession(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	ip := c.ClientIP()
	allowed, err := h.rateLimiter.AllowSessionCreation(c.Request.Context(), ip)
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, ErrorResponse("Rate limit exceeded", "RATE_LIMIT"))
		return
	}

	sess, err := h.sessionService.Create(c.Request.Context(), req.UserID, ip)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to create session", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(gin.H{
		"session_id": sess.ID,
		"salt":       sess.Salt,
		"created_at": sess.CreatedAt,
	}))
}

// coordinateRequest uses pointer fields: required rejects absent values while
// latitude 0 and longitude 0 stay valid degrees. Range checks belong to the
// validator alone.
type coordinateRequest struct {
	Latitude  *float64 `json:"latitude" form:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" form:"longitude" binding:"required"`
}

// POST /api/location/record
func (h *Handler) RecordLocation(c *gin.Context) {
	var req coordinateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	if err := h.validator.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_COORDINATES"))
		return
	}

	sess := sessionFromContext(c)

	allowed, err := h.rateLimiter.AllowRecord(c.Request.Context(), sess.UserID)
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, ErrorResponse("Location update rate limit exceeded", "RATE_LIMIT"))
		return
	}

	if err := h.locationService.Record(c.Request.Context(), sess.UserID, *req.Latitude, *req.Longitude, time.Now()); err != nil {
		h.logger.Error("failed to record location", "user_id", sess.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to record location", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"message": "Location recorded",
	}))
}

// POST /api/location/publish
func (h *Handler) PublishLocation(c *gin.Context) {
	var req coordinateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	if err := h.validator.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_COORDINATES"))
		return
	}

	sess := sessionFromContext(c)

	now := time.Now()
	result, err := h.locationService.Publish(c.Request.Context(), sess.UserID, *req.Latitude, *req.Longitude, now)
	if err != nil {
		h.logger.Error("failed to publish location", "user_id", sess.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to publish location", "INTERNAL_ERROR"))
		return
	}

	triggered := false
	if result.Accepted {
		h.stats.CountPublish(c.Request.Context())
		// Detection failures never surface to the publisher.
		triggered, err = h.detector.Detect(c.Request.Context(), sess.UserID, *req.Latitude, *req.Longitude, now)
		if err != nil {
			h.logger.Error("crossed-paths detection failed", "user_id", sess.UserID, "error", err)
		}
		if triggered {
			h.stats.CountCrossed(c.Request.Context())
		}
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"accepted":      result.Accepted,
		"nearby_count":  result.NearbyCount,
		"crossed_paths": triggered,
	}))
}

// GET /api/nearby
func (h *Handler) GetNearby(c *gin.Context) {
	var req struct {
		coordinateRequest
		Span *float64 `form:"span" binding:"required"`
	}

	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	if err := h.validator.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_COORDINATES"))
		return
	}
	if err := h.validator.ValidateZoomSpan(*req.Span); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_ZOOM_SPAN"))
		return
	}

	sess := sessionFromContext(c)

	allowed, err := h.rateLimiter.AllowNearby(c.Request.Context(), sess.ID)
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, ErrorResponse("Nearby query rate limit exceeded", "RATE_LIMIT"))
		return
	}

	bucket := privacy.ZoomBucket(*req.Span)
	users, err := h.nearbyService.Query(c.Request.Context(), sess.UserID, *req.Latitude, *req.Longitude, sess.Salt, bucket, time.Now())
	if err != nil {
		h.logger.Error("failed to query nearby users", "user_id", sess.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to get nearby users", "INTERNAL_ERROR"))
		return
	}

	h.stats.CountNearby(c.Request.Context())

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"count": len(users),
		"users": users,
	}))
}

// GET /api/analytics
func (h *Handler) GetAnalytics(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			c.JSON(http.StatusBadRequest, ErrorResponse("days must be between 1 and 90", "INVALID_REQUEST"))
			return
		}
		days = parsed
	}

	records, err := h.stats.Report(c.Request.Context(), days)
	if err != nil {
		h.logger.Error("failed to load analytics", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to load analytics", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"days":    days,
		"records": records,
	}))
}

// PATCH /api/privacy/hide-distance
func (h *Handler) SetHideDistance(c *gin.Context) {
	var req struct {
		Hide *bool `json:"hide" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	sess := sessionFromContext(c)

	if err := h.locationService.SetHideDistance(c.Request.Context(), sess.UserID, *req.Hide); err != nil {
		if errors.Is(err, apperrors.ErrLocationNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse("No location on record", "NOT_FOUND"))
			return
		}
		h.logger.Error("failed to set hide distance", "user_id", sess.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to update privacy setting", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"hide_distance": *req.Hide,
	}))
}

// POST /api/block
func (h *Handler) BlockUser(c *gin.Context) {
	var req struct {
		BlockedUserID string `json:"blocked_user_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	sess := sessionFromContext(c)

	if err := h.blocks.AddBlock(c.Request.Context(), sess.UserID, req.BlockedUserID); err != nil {
		h.logger.Error("failed to add block", "user_id", sess.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to block user", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"blocked_user_id": req.BlockedUserID,
	}))
}

// DELETE /api/block/:user_id
func (h *Handler) UnblockUser(c *gin.Context) {
	blockedUserID := c.Param("user_id")
	if blockedUserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse("user_id required", "INVALID_REQUEST"))
		return
	}

	sess := sessionFromContext(c)

	if err := h.blocks.RemoveBlock(c.Request.Context(), sess.UserID, blockedUserID); err != nil {
		h.logger.Error("failed to remove block", "user_id", sess.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to unblock user", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"unblocked_user_id": blockedUserID,
	}))
}

// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
