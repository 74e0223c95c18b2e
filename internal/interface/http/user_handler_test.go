package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/launchbase/launchbase/internal/application"
	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/interface/middleware"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type stubSessionService struct {
	user    *entity.User
	authErr error

	logoutCalls int

	changeErr   error
	changeCalls int
}

func (s *stubSessionService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.user, nil
}

func (s *stubSessionService) IssueTokens(ctx context.Context, user *entity.User) (*application.TokenPair, error) {
	now := time.Now()
	return &application.TokenPair{
		AccessToken:      "access-token",
		RefreshToken:     "refresh-token",
		AccessExpiresAt:  now.Add(time.Hour),
		RefreshExpiresAt: now.Add(168 * time.Hour),
		SessionID:        "sid-1",
	}, nil
}

func (s *stubSessionService) Refresh(ctx context.Context, refreshToken string) (*entity.User, *application.TokenPair, error) {
	if refreshToken != "refresh-token" {
		return nil, nil, application.ErrInvalidCredentials
	}
	pair, _ := s.IssueTokens(ctx, s.user)
	return s.user, pair, nil
}

func (s *stubSessionService) Logout(ctx context.Context, userID string) error {
	s.logoutCalls++
	return nil
}

func (s *stubSessionService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	if s.user == nil {
		return nil, application.ErrUserNotFound
	}
	return s.user, nil
}

func (s *stubSessionService) ChangePassword(ctx context.Context, userID, current, next string) error {
	s.changeCalls++
	return s.changeErr
}

func newUserRouter(svc SessionService) *gin.Engine {
	h := NewUserHandler(svc, testConfig(), testLogger())
	r := gin.New()
	r.POST("/api/login", h.Login)
	r.POST("/api/refresh", h.Refresh)
	withUser := func(c *gin.Context) { c.Set(middleware.CtxUserIDKey, "u1") }
	r.POST("/api/logout", withUser, h.Logout)
	r.GET("/api/me", withUser, h.Me)
	r.POST("/api/change-password", withUser, h.ChangePassword)
	return r
}

func TestLoginSetsSessionCookies(t *testing.T) {
	svc := &stubSessionService{user: &entity.User{ID: "u1", Email: "user@example.com", EmailVerified: true}}
	r := newUserRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/login", `{"email": "user@example.com", "password": "correct-horse-battery"}`)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	names := map[string]string{}
	for _, c := range cookies {
		names[c.Name] = c.Value
		require.True(t, c.HttpOnly)
	}
	require.Equal(t, "access-token", names["access_token"])
	require.Equal(t, "refresh-token", names["refresh_token"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := &stubSessionService{authErr: errors.New("nope")}
	r := newUserRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/login", `{"email": "user@example.com", "password": "wrong"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	e := decodeEnvelope(t, w)
	require.Equal(t, "invalid credentials", e.Message)
	require.Empty(t, w.Result().Cookies())
}

func TestRefreshRequiresCookie(t *testing.T) {
	svc := &stubSessionService{user: &entity.User{ID: "u1", Email: "user@example.com"}}
	r := newUserRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutClearsCookiesAndSession(t *testing.T) {
	svc := &stubSessionService{user: &entity.User{ID: "u1", Email: "user@example.com"}}
	r := newUserRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/logout", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, svc.logoutCalls)

	for _, c := range w.Result().Cookies() {
		require.Empty(t, c.Value)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc := &stubSessionService{changeErr: application.ErrInvalidCredentials}
	r := newUserRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/change-password", `{
		"current_password": "wrong",
		"new_password": "new-password-123",
		"password_confirm": "new-password-123"
	}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, 1, svc.changeCalls)
}

func TestMe(t *testing.T) {
	svc := &stubSessionService{user: &entity.User{ID: "u1", Email: "user@example.com", EmailVerified: true}}
	r := newUserRouter(svc)

	w := doJSON(t, r, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, w.Code)

	e := decodeEnvelope(t, w)
	require.Contains(t, string(e.Data), "user@example.com")
	// Verified accounts have no pending deletion countdown.
	require.Contains(t, string(e.Data), `"days_until_deletion":null`)
}
