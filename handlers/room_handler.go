package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"bazinga/models"
	"bazinga/services"
	"bazinga/store"

	"github.com/gin-gonic/gin"
)

// RoomStore is the slice of persistence the HTTP surface needs.
type RoomStore interface {
	GetOrCreateUser(username, password string) (*models.User, error)
	CreateRoom(name string, maxPlayers int, owner *models.User) (*models.Room, error)
	JoinRoom(code string, user *models.User) (*models.Room, error)
}

// GameCoordinator is the slice of the game service reachable over HTTP.
type GameCoordinator interface {
	Themes() []string
	Advance(ctx context.Context, roomCode string, userID uint) error
}

type RoomHandler struct {
	store       RoomStore
	gameService GameCoordinator
}

type UserCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateRoomRequest struct {
	Name       string          `json:"name" binding:"required"`
	MaxPlayers int             `json:"max_players"`
	User       UserCredentials `json:"user" binding:"required"`
}

func NewRoomHandler(st RoomStore, gameService GameCoordinator) *RoomHandler {
	return &RoomHandler{
		store:       st,
		gameService: gameService,
	}
}

func (h *RoomHandler) GetThemes(c *gin.Context) {
	c.JSON(http.StatusOK, h.gameService.Themes())
}

// CreateRoom creates (or reuses) the user and opens a new room with them as
// owner and first member.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxPlayers <= 0 {
		req.MaxPlayers = 8
	}

	user, err := h.store.GetOrCreateUser(req.User.Username, req.User.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	room, err := h.store.CreateRoom(req.Name, req.MaxPlayers, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomCode := c.Param("code")

	var req UserCredentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.GetOrCreateUser(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	room, err := h.store.JoinRoom(roomCode, user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrRoomFull) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found or is full"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room"})
		return
	}

	c.JSON(http.StatusOK, room)
}

// NextQuestion is the host's advance action.
func (h *RoomHandler) NextQuestion(c *gin.Context) {
	roomCode := c.Param("code")

	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	if err := h.gameService.Advance(c.Request.Context(), roomCode, uint(userID)); err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the host can advance the game."})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to advance"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Advanced to next question."})
}
