package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bazinga/models"
	"bazinga/services"
	"bazinga/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoomStore struct {
	userErr error
	joinErr error
	rooms   map[string]*models.Room
}

func (f *fakeRoomStore) GetOrCreateUser(username, password string) (*models.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &models.User{ID: 7, Username: username}, nil
}

func (f *fakeRoomStore) CreateRoom(name string, maxPlayers int, owner *models.User) (*models.Room, error) {
	room := &models.Room{
		ID:         1,
		RoomCode:   "AB12CD",
		Name:       name,
		MaxPlayers: maxPlayers,
		OwnerID:    owner.ID,
		Players:    []models.User{*owner},
	}
	if f.rooms == nil {
		f.rooms = map[string]*models.Room{}
	}
	f.rooms[room.RoomCode] = room
	return room, nil
}

func (f *fakeRoomStore) JoinRoom(code string, user *models.User) (*models.Room, error) {
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	room, ok := f.rooms[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	room.Players = append(room.Players, *user)
	return room, nil
}

type fakeCoordinator struct {
	themes     []string
	advanceErr error
	advanced   []string
}

func (f *fakeCoordinator) Themes() []string {
	return f.themes
}

func (f *fakeCoordinator) Advance(ctx context.Context, roomCode string, userID uint) error {
	f.advanced = append(f.advanced, roomCode)
	return f.advanceErr
}

func newTestRouter(st *fakeRoomStore, coordinator *fakeCoordinator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewRoomHandler(st, coordinator)
	router := gin.New()
	router.GET("/rooms/themes", handler.GetThemes)
	router.POST("/rooms", handler.CreateRoom)
	router.POST("/rooms/:code/join", handler.JoinRoom)
	router.POST("/rooms/:code/next_question/:user_id", handler.NextQuestion)
	return router
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestGetThemes(t *testing.T) {
	router := newTestRouter(&fakeRoomStore{}, &fakeCoordinator{themes: []string{"Space", "Movies"}})

	recorder := perform(router, http.MethodGet, "/rooms/themes", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	var themes []string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &themes))
	assert.Equal(t, []string{"Space", "Movies"}, themes)
}

func TestCreateRoomDefaultsMaxPlayers(t *testing.T) {
	st := &fakeRoomStore{}
	router := newTestRouter(st, &fakeCoordinator{})

	recorder := perform(router, http.MethodPost, "/rooms",
		`{"name": "Game night", "user": {"username": "alice", "password": "pw"}}`)

	require.Equal(t, http.StatusCreated, recorder.Code)
	var room models.Room
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &room))
	assert.Equal(t, "Game night", room.Name)
	assert.Equal(t, 8, room.MaxPlayers)
	assert.NotEmpty(t, room.RoomCode)
}

func TestCreateRoomRejectsMissingName(t *testing.T) {
	router := newTestRouter(&fakeRoomStore{}, &fakeCoordinator{})

	recorder := perform(router, http.MethodPost, "/rooms",
		`{"user": {"username": "alice", "password": "pw"}}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestJoinRoomNotFoundAndFullLookTheSame(t *testing.T) {
	for _, joinErr := range []error{store.ErrNotFound, store.ErrRoomFull} {
		router := newTestRouter(&fakeRoomStore{joinErr: joinErr}, &fakeCoordinator{})

		recorder := perform(router, http.MethodPost, "/rooms/ZZZZ/join",
			`{"username": "bob", "password": "pw"}`)

		require.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Room not found or is full")
	}
}

func TestJoinRoomSucceeds(t *testing.T) {
	st := &fakeRoomStore{}
	router := newTestRouter(st, &fakeCoordinator{})
	perform(router, http.MethodPost, "/rooms",
		`{"name": "Game night", "user": {"username": "alice", "password": "pw"}}`)

	recorder := perform(router, http.MethodPost, "/rooms/AB12CD/join",
		`{"username": "bob", "password": "pw"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	var room models.Room
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &room))
	assert.Len(t, room.Players, 2)
}

func TestNextQuestionForbiddenForNonHost(t *testing.T) {
	coordinator := &fakeCoordinator{advanceErr: services.ErrForbidden}
	router := newTestRouter(&fakeRoomStore{}, coordinator)

	recorder := perform(router, http.MethodPost, "/rooms/AB12CD/next_question/2", "")

	require.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Only the host can advance the game.")
}

func TestNextQuestionAdvances(t *testing.T) {
	coordinator := &fakeCoordinator{}
	router := newTestRouter(&fakeRoomStore{}, coordinator)

	recorder := perform(router, http.MethodPost, "/rooms/AB12CD/next_question/1", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"AB12CD"}, coordinator.advanced)
}

func TestNextQuestionRejectsBadUserID(t *testing.T) {
	router := newTestRouter(&fakeRoomStore{}, &fakeCoordinator{})

	recorder := perform(router, http.MethodPost, "/rooms/AB12CD/next_question/nope", "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
