package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/application/services"
	"handswers-backend/domain/core/entities"
	"handswers-backend/infrastructure/messaging/eventbridge"
	"handswers-backend/infrastructure/persistence/memory"
	"handswers-backend/pkg/auth"
	"handswers-backend/pkg/common"
	pkgerrors "handswers-backend/pkg/errors"
	"handswers-backend/pkg/observability"
	"handswers-backend/pkg/ratelimit"
)

type echoTutor struct{}

func (echoTutor) Reply(_ context.Context, turns []ports.ChatTurn) (string, error) {
	return fmt.Sprintf("turns=%d", len(turns)), nil
}

type fixedIdentity struct{ email string }

func (f fixedIdentity) Exchange(context.Context, string) (ports.Identity, error) {
	return ports.Identity{Email: f.email, Name: "Tess"}, nil
}

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	jwt     *auth.JWTService
}

func newTestEnv(t *testing.T, requestsPerWindow int, loginEmail string) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	collector := observability.NewCollector("test")
	publisher := eventbridge.NewLogPublisher(logger)

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Hour,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    24 * time.Hour,
		Issuer:        "handswers-test",
	})
	require.NoError(t, err)
	limiter, err := ratelimit.NewMemoryLimiter(requestsPerWindow, time.Minute)
	require.NoError(t, err)

	svc := Services{
		Rooms:     services.NewRoomService(store.Rooms(), store.Questions(), store.Messages(), store, memory.NewLocker(), publisher, collector, logger),
		Questions: services.NewQuestionService(store.Rooms(), store.Questions(), publisher, logger),
		Messages:  services.NewMessageService(store.Rooms(), store.Questions(), store.Messages(), echoTutor{}, collector, logger, services.DefaultContextTurns),
		Admin:     services.NewAdminService(store.Users(), store.Schools(), logger),
		Auth:      services.NewAuthService(store.Users(), fixedIdentity{email: loginEmail}, jwtSvc, logger),
	}
	router := NewRouter(svc, jwtSvc, auth.NewCookies(auth.CookieConfig{}), limiter, collector,
		observability.NewTracer("test", false), pkgerrors.NewErrorHandler(logger, false),
		"http://frontend.test", nil, logger)

	return &testEnv{handler: router.Setup(), store: store, jwt: jwtSvc}
}

func (e *testEnv) token(t *testing.T, id, email string, roles ...string) string {
	t.Helper()
	tok, _, err := e.jwt.IssueAccess(ports.Session{UserID: id, Email: email, Roles: roles})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, common.Envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.0.0.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env common.Envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func dataMap(t *testing.T, env common.Envelope) map[string]interface{} {
	t.Helper()
	m, ok := env.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", env.Data)
	return m
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, 100, "")

	rec, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, common.StatusSuccess, body.Status)

	rec, _ = env.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRouter_RoomAccessControl(t *testing.T) {
	env := newTestEnv(t, 100, "")

	rec, body := env.do(t, http.MethodPost, "/room/create", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, common.StatusError, body.Status)

	// Joining by code needs a signed-in user too.
	rec, _ = env.do(t, http.MethodGet, "/room/verify/0000001", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/room/create", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	student := env.token(t, "s1", "s@north.edu")
	rec, body = env.do(t, http.MethodPost, "/room/create", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid permission.", body.Message)

	rec, _ = env.do(t, http.MethodGet, "/user/get/schools", env.token(t, "t1", "t@north.edu", entities.RoleCreator), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_ClassroomFlow(t *testing.T) {
	env := newTestEnv(t, 100, "")
	teacher := env.token(t, "t1", "t@north.edu", entities.RoleCreator)
	student := env.token(t, "s1", "s@north.edu")

	rec, body := env.do(t, http.MethodPost, "/room/create", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	room := dataMap(t, body)
	roomID := room["roomId"].(string)

	rec, body = env.do(t, http.MethodGet, "/room/verify/"+room["roomCode"].(string), student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, roomID, dataMap(t, body)["roomId"])

	rec, body = env.do(t, http.MethodPost, "/room/question/create", student, map[string]string{
		"roomId": roomID, "question": "Why is the sky blue?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := dataMap(t, body)
	questionID := q["id"].(string)
	ts := int64(q["timestamp"].(float64))

	rec, body = env.do(t, http.MethodPost, "/room/message/create", student, map[string]interface{}{
		"roomId": roomID, "questionId": questionID, "questionTimestamp": ts, "message": "hint?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "turns=2", body.Data)

	history := fmt.Sprintf("/room/message/history/1?roomId=%s&questionId=%s&timestamp=%d", roomID, questionID, ts)
	rec, body = env.do(t, http.MethodGet, history, teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs, ok := body.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "model", msgs[0].(map[string]interface{})["author"])

	rec, _ = env.do(t, http.MethodGet, fmt.Sprintf("/room/get/%s/1", roomID), teacher, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/room/get/teacher/t1/1", teacher, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/room/get/teacher/t1/0", teacher, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/room/question/request-help", student, map[string]interface{}{
		"roomId": roomID, "questionId": questionID, "questionTimestamp": ts,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodPut, "/room/question/close", student, map[string]interface{}{
		"roomId": roomID, "questionId": questionID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, http.MethodDelete, "/room/delete/"+roomID, teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := dataMap(t, body)
	assert.Equal(t, float64(1), deleted["questionsDeleted"])
	assert.Equal(t, float64(2), deleted["messagesDeleted"])

	rec, _ = env.do(t, http.MethodGet, "/room/verify/"+room["roomCode"].(string), student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_AdminManagesSchoolsAndUsers(t *testing.T) {
	env := newTestEnv(t, 100, "")
	admin := env.token(t, "a1", "admin@north.edu", entities.RoleAdmin)

	rec, body := env.do(t, http.MethodPost, "/user/create/school", admin, map[string]string{
		"schoolName": "North High", "schoolAddress": "1 Main St",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	schoolID := dataMap(t, body)["id"].(string)

	rec, _ = env.do(t, http.MethodPost, "/user/create/school", admin, map[string]string{"schoolName": "Missing address"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, http.MethodPost, "/user/create/users", admin, map[string]interface{}{
		"schoolId": schoolID, "userList": []string{"a@north.edu", "b@north.edu"}, "userType": "teacher",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), dataMap(t, body)["created"])

	rec, body = env.do(t, http.MethodGet, "/user/get/users/"+schoolID+"?userType=teacher", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := body.Data.([]interface{})
	require.Len(t, users, 2)
	userID := users[0].(map[string]interface{})["id"].(string)

	rec, body = env.do(t, http.MethodPut, "/user/edit/"+userID, admin, map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, dataMap(t, body)["enabled"])

	rec, _ = env.do(t, http.MethodDelete, "/user/delete/"+userID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodDelete, "/user/delete/school/"+schoolID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/user/get/schools?page=abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_GoogleLoginAndRefresh(t *testing.T) {
	env := newTestEnv(t, 100, "t@north.edu")
	user := entities.NewUser("t@north.edu", entities.UserTypeTeacher, "s1", time.Now())
	_, err := env.store.Users().CreateMany(context.Background(), []*entities.User{user})
	require.NoError(t, err)

	rec, _ := env.do(t, http.MethodGet, "/auth/google?code=abc", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://frontend.test/login-redirect", rec.Header().Get("Location"))

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, auth.AccessCookie)
	require.Contains(t, cookies, auth.RefreshCookie)
	assert.True(t, cookies[auth.AccessCookie].HttpOnly)
	assert.False(t, cookies[auth.LoginCookie].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.AddCookie(cookies[auth.RefreshCookie])
	refreshed := httptest.NewRecorder()
	env.handler.ServeHTTP(refreshed, req)
	require.Equal(t, http.StatusOK, refreshed.Code, refreshed.Body.String())

	var body common.Envelope
	require.NoError(t, json.Unmarshal(refreshed.Body.Bytes(), &body))
	require.NotNil(t, body.Auth)
	assert.Equal(t, user.ID, body.Auth.User.(map[string]interface{})["id"])

	rec, _ = env.do(t, http.MethodGet, "/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The access token is not accepted as a refresh token.
	req = httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: cookies[auth.AccessCookie].Value})
	swapped := httptest.NewRecorder()
	env.handler.ServeHTTP(swapped, req)
	assert.Equal(t, http.StatusForbidden, swapped.Code)
}

func TestRouter_UnregisteredLoginStillRedirects(t *testing.T) {
	env := newTestEnv(t, 100, "stranger@north.edu")

	rec, _ := env.do(t, http.MethodGet, "/auth/google?code=abc", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	var login *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.LoginCookie {
			login = c
		}
		assert.NotEqual(t, auth.AccessCookie, c.Name)
	}
	require.NotNil(t, login)
	assert.Contains(t, login.Value, "unregistered%22%3Atrue")
}

func TestRouter_RateLimitsAuthRoutes(t *testing.T) {
	env := newTestEnv(t, 2, "")

	for i := 0; i < 2; i++ {
		rec, _ := env.do(t, http.MethodPost, "/auth/logout", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, body := env.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, body.Message, "Rate limit exceeded")

	// Other routes keep their own budget.
	rec, _ = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
