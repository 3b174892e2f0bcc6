package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/harishghasolia07/NLogin-Devices/internal/database/testutil"
	"github.com/harishghasolia07/NLogin-Devices/internal/sessions"
)

func setupSessionRouter(t *testing.T, maxDevices int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	store, err := sessions.NewGormStore(db)
	require.NoError(t, err)

	svc, err := sessions.NewService(store, sessions.Config{MaxDevices: maxDevices})
	require.NoError(t, err)

	handler := NewSessionHandler(svc)

	r := gin.New()
	group := r.Group("/sessions")
	{
		group.POST("/login", handler.Login)
		group.POST("/logout", handler.Logout)
		group.POST("/force-logout", handler.ForceLogout)
		group.GET("/validate", handler.Validate)
		group.GET("/active", handler.ListActive)
	}
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w, decoded
}

func getJSON(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w, decoded
}

func login(t *testing.T, r *gin.Engine, userID, deviceID string) string {
	t.Helper()

	w, body := postJSON(t, r, "/sessions/login", gin.H{"userId": userID, "deviceId": deviceID})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", body["status"])
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestLoginEndpointAdmits(t *testing.T) {
	r := setupSessionRouter(t, 2)

	w, body := postJSON(t, r, "/sessions/login", gin.H{
		"userId":     "alice",
		"deviceId":   "laptop",
		"deviceInfo": "Chrome on macOS",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", body["status"])
	require.NotEmpty(t, body["sessionId"])
	require.NotContains(t, body, "activeSessions")
}

func TestLoginEndpointLimitReached(t *testing.T) {
	r := setupSessionRouter(t, 2)

	s1 := login(t, r, "alice", "d1")
	s2 := login(t, r, "alice", "d2")

	w, body := postJSON(t, r, "/sessions/login", gin.H{"userId": "alice", "deviceId": "d3"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "limit_reached", body["status"])
	require.NotContains(t, body, "sessionId")

	raw, ok := body["activeSessions"].([]any)
	require.True(t, ok)
	require.Len(t, raw, 2)

	// Most recently used first, serialized with the flat wire fields.
	first := raw[0].(map[string]any)
	second := raw[1].(map[string]any)
	require.Equal(t, s2, first["sessionId"])
	require.Equal(t, s1, second["sessionId"])
	require.Equal(t, "alice", first["userId"])
	require.Equal(t, true, first["active"])
	require.NotEmpty(t, first["createdAt"])
	require.NotEmpty(t, first["lastSeen"])
}

func TestLoginEndpointValidation(t *testing.T) {
	r := setupSessionRouter(t, 2)

	w, body := postJSON(t, r, "/sessions/login", gin.H{"userId": "alice"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, false, body["success"])
}

func TestLogoutEndpoint(t *testing.T) {
	r := setupSessionRouter(t, 2)

	id := login(t, r, "alice", "laptop")

	w, body := postJSON(t, r, "/sessions/logout", gin.H{"sessionId": id})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "logged_out", body["status"])

	// Idempotent: a second logout is still a success.
	w, body = postJSON(t, r, "/sessions/logout", gin.H{"sessionId": id})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "logged_out", body["status"])
}

func TestLogoutEndpointUnknownSession(t *testing.T) {
	r := setupSessionRouter(t, 2)

	w, _ := postJSON(t, r, "/sessions/logout", gin.H{"sessionId": "unknown-id"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestForceLogoutEndpointFreesSlot(t *testing.T) {
	r := setupSessionRouter(t, 1)

	id := login(t, r, "alice", "d1")

	w, body := postJSON(t, r, "/sessions/login", gin.H{"userId": "alice", "deviceId": "d2"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "limit_reached", body["status"])

	w, body = postJSON(t, r, "/sessions/force-logout", gin.H{"sessionId": id})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "logged_out", body["status"])

	login(t, r, "alice", "d2")
}

func TestValidateEndpoint(t *testing.T) {
	r := setupSessionRouter(t, 2)

	id := login(t, r, "alice", "laptop")

	w, body := getJSON(t, r, fmt.Sprintf("/sessions/validate?sessionId=%s", id))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, body["valid"])
	require.NotContains(t, body, "reason")

	postJSON(t, r, "/sessions/logout", gin.H{"sessionId": id})

	w, body = getJSON(t, r, fmt.Sprintf("/sessions/validate?sessionId=%s", id))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, body["valid"])
	require.Equal(t, "logged_out", body["reason"])
}

func TestValidateEndpointUnknownSession(t *testing.T) {
	r := setupSessionRouter(t, 2)

	w, body := getJSON(t, r, "/sessions/validate?sessionId=unknown-id")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, body["valid"])
	require.Equal(t, "session_not_found", body["reason"])
}

func TestValidateEndpointMissingParam(t *testing.T) {
	r := setupSessionRouter(t, 2)

	w, _ := getJSON(t, r, "/sessions/validate")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActiveSessionsEndpoint(t *testing.T) {
	r := setupSessionRouter(t, 3)

	login(t, r, "alice", "d1")
	login(t, r, "alice", "d2")
	login(t, r, "bob", "d1")

	w, body := getJSON(t, r, "/sessions/active?userId=alice")
	require.Equal(t, http.StatusOK, w.Code)

	raw, ok := body["sessions"].([]any)
	require.True(t, ok)
	require.Len(t, raw, 2)
}

func TestActiveSessionsEndpointMissingParam(t *testing.T) {
	r := setupSessionRouter(t, 2)

	w, _ := getJSON(t, r, "/sessions/active")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
