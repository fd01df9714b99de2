package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

type presenceStub struct {
	lastUserID   string
	lastIsOnline bool
	err          error
}

func (p *presenceStub) SetStatus(ctx context.Context, userID string, isOnline bool) error {
	p.lastUserID = userID
	p.lastIsOnline = isOnline
	return p.err
}

func setupUserRouter(presence *presenceStub) (*gin.Engine, *mocks.UserRepositoryMock) {
	gin.SetMode(gin.TestMode)

	users := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(users, presence, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "alice")
		c.Next()
	})
	r.PUT("/users/me/status", handler.UpdateStatus)
	r.GET("/users/search", handler.SearchUsers)
	return r, users
}

func TestUpdateStatusSuccess(t *testing.T) {
	presence := &presenceStub{}
	router, users := setupUserRouter(presence)

	users.On("GetByID", mock.Anything, "alice").Return(models.User{
		ID:       "alice",
		IsOnline: false,
		LastSeen: time.Now().UTC(),
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/users/me/status", bytes.NewBufferString(`{"is_online":false}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", presence.lastUserID)
	assert.False(t, presence.lastIsOnline)
	users.AssertExpectations(t)
}

func TestUpdateStatusStoreFailure(t *testing.T) {
	presence := &presenceStub{err: errors.New("store down")}
	router, _ := setupUserRouter(presence)

	req := httptest.NewRequest(http.MethodPut, "/users/me/status", bytes.NewBufferString(`{"is_online":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUpdateStatusMissingBody(t *testing.T) {
	router, _ := setupUserRouter(&presenceStub{})

	req := httptest.NewRequest(http.MethodPut, "/users/me/status", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchUsersSuccess(t *testing.T) {
	router, users := setupUserRouter(&presenceStub{})

	users.On("Search", mock.Anything, "bo", "alice", 10).Return([]models.User{
		{ID: "bob", Username: "bob", IsOnline: true},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/search?q=bo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.UserSummary `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "online", resp.Users[0].LastSeen)
	users.AssertExpectations(t)
}

func TestSearchUsersMissingQuery(t *testing.T) {
	router, users := setupUserRouter(&presenceStub{})

	req := httptest.NewRequest(http.MethodGet, "/users/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
