package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harishghasolia07/NLogin-Devices/internal/models"
	"github.com/harishghasolia07/NLogin-Devices/internal/sessions"
	appErrors "github.com/harishghasolia07/NLogin-Devices/pkg/errors"
	"github.com/harishghasolia07/NLogin-Devices/pkg/response"
)

// SessionHandler exposes the admission controller over the fixed wire
// surface. Success payloads use the flat shapes clients already depend on;
// failures use the structured error envelope.
type SessionHandler struct {
	svc *sessions.Service
}

func NewSessionHandler(svc *sessions.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type loginRequest struct {
	UserID     string `json:"userId" validate:"required"`
	DeviceID   string `json:"deviceId" validate:"required"`
	DeviceInfo string `json:"deviceInfo"`
}

type logoutRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// POST /sessions/login
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.UserID, req.DeviceID, req.DeviceInfo)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "Login failed"))
		return
	}

	if result.Status == sessions.StatusLimitReached {
		c.JSON(http.StatusOK, gin.H{
			"status":         string(sessions.StatusLimitReached),
			"activeSessions": sessionViews(result.ActiveSessions),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    string(sessions.StatusOK),
		"sessionId": result.SessionID,
	})
}

// POST /sessions/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	h.deactivate(c, h.svc.Logout)
}

// POST /sessions/force-logout
func (h *SessionHandler) ForceLogout(c *gin.Context) {
	h.deactivate(c, h.svc.ForceLogout)
}

func (h *SessionHandler) deactivate(c *gin.Context, op func(ctx context.Context, sessionID string) error) {
	var req logoutRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := op(c.Request.Context(), req.SessionID); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			response.Error(c, appErrors.ErrSessionNotFound)
			return
		}
		response.Error(c, appErrors.Wrap(err, "Logout failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

func sessionViews(list []models.Session) []models.SessionView {
	views := make([]models.SessionView, 0, len(list))
	for i := range list {
		views = append(views, list[i].View())
	}
	return views
}

// GET /sessions/validate?sessionId=
func (h *SessionHandler) Validate(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		response.Error(c, appErrors.NewBadRequest("sessionId query parameter is required"))
		return
	}

	result, err := h.svc.Validate(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "Validation failed"))
		return
	}

	payload := gin.H{"valid": result.Valid}
	if result.Reason != "" {
		payload["reason"] = result.Reason
	}
	c.JSON(http.StatusOK, payload)
}

// GET /sessions/active?userId=
func (h *SessionHandler) ListActive(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		response.Error(c, appErrors.NewBadRequest("userId query parameter is required"))
		return
	}

	list, err := h.svc.ListActive(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "Failed to fetch sessions"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessionViews(list)})
}
