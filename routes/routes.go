package routes

import (
	"net/http"
	"strconv"

	"bazinga/handlers"
	"bazinga/logger"
	"bazinga/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin filtering is handled by the CORS layer
	},
}

func SetupRoutes(router *gin.Engine, roomHandler *handlers.RoomHandler, hub *services.Hub) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Bazinga! backend."})
	})

	rooms := router.Group("/rooms")
	{
		rooms.GET("/themes", roomHandler.GetThemes)
		rooms.POST("", roomHandler.CreateRoom)
		rooms.POST("/:code/join", roomHandler.JoinRoom)
		rooms.POST("/:code/next_question/:user_id", roomHandler.NextQuestion)

		// Real-time game connection
		rooms.GET("/ws/:code/:user_id", func(c *gin.Context) {
			roomCode := c.Param("code")
			userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
				return
			}

			conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
			if err != nil {
				logger.Errorf("websocket upgrade for room %s failed: %v", roomCode, err)
				return
			}

			hub.Attach(conn, roomCode, uint(userID))
		})
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
