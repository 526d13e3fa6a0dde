package services

import (
	"context"
	"encoding/json"
	"errors"

	"bazinga/bus"
	"bazinga/logger"
	"bazinga/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// Hub owns every live connection, keyed (room code, user id). A reconnect
// for the same pair replaces the old entry and closes it.
type Hub struct {
	gameService *GameService
	bus         *bus.Bus

	register   chan *Client
	unregister chan *Client
	clients    map[string]map[uint]*Client
}

// Client is one websocket connection. Three goroutines serve it: readPump
// relays inbound messages into the coordinator, busPump drains the room's
// bus subscription into send, and writePump flushes send to the socket.
// Cancelling ctx stops all three.
type Client struct {
	hub      *Hub
	id       string
	socket   *websocket.Conn
	send     chan []byte
	roomCode string
	userID   uint
	ctx      context.Context
	cancel   context.CancelFunc
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startGamePayload struct {
	Theme        string `json:"theme"`
	NumQuestions int    `json:"num_questions"`
}

type submitAnswerPayload struct {
	QuestionID uint   `json:"question_id"`
	AnswerText string `json:"answer_text"`
}

type submitVotePayload struct {
	AnswerID uint `json:"answer_id"`
}

func NewHub(gameService *GameService, b *bus.Bus) *Hub {
	return &Hub{
		gameService: gameService,
		bus:         b,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[string]map[uint]*Client),
	}
}

// Run serializes all registry mutations on one goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			room, ok := h.clients[client.roomCode]
			if !ok {
				room = make(map[uint]*Client)
				h.clients[client.roomCode] = room
			}
			if prior, ok := room[client.userID]; ok {
				logger.Infof("replacing connection for player %d in room %s", client.userID, client.roomCode)
				prior.cancel()
				prior.socket.Close()
			}
			room[client.userID] = client
			logger.Infof("client %s registered: room %s player %d (%d in room)", client.id, client.roomCode, client.userID, len(room))

		case client := <-h.unregister:
			room, ok := h.clients[client.roomCode]
			if !ok {
				continue
			}
			// A replaced connection must not tear down its successor.
			if current, ok := room[client.userID]; !ok || current != client {
				continue
			}
			delete(room, client.userID)
			if len(room) == 0 {
				delete(h.clients, client.roomCode)
			}
			client.cancel()
			logger.Infof("client %s unregistered: room %s player %d", client.id, client.roomCode, client.userID)

			ctx := context.Background()
			if err := h.bus.LeaveRoster(ctx, client.roomCode, client.userID); err != nil {
				logger.Errorf("leave roster for room %s: %v", client.roomCode, err)
			}
			h.gameService.HandleDisconnect(ctx, client.roomCode, client.userID)
		}
	}
}

// Attach wires a freshly-upgraded connection into the room: roster, bus
// subscription, pumps, a player_update for everyone, and a state replay for
// the joiner when a round is already live.
func (h *Hub) Attach(conn *websocket.Conn, roomCode string, userID uint) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:      h,
		id:       uuid.NewString(),
		socket:   conn,
		send:     make(chan []byte, 256),
		roomCode: roomCode,
		userID:   userID,
		ctx:      ctx,
		cancel:   cancel,
	}

	h.register <- client

	if err := h.bus.JoinRoster(ctx, roomCode, userID); err != nil {
		logger.Errorf("join roster for room %s: %v", roomCode, err)
	}

	pubsub := h.bus.Subscribe(ctx, roomCode)
	go client.busPump(pubsub)
	go client.writePump()
	go client.readPump()

	h.gameService.BroadcastPlayerUpdate(ctx, roomCode)

	// Late joiners get the in-flight round replayed directly.
	snapshots, err := h.gameService.ReplaySnapshot(ctx, roomCode)
	if err != nil {
		logger.Errorf("replay snapshot for room %s: %v", roomCode, err)
		return
	}
	for _, payload := range snapshots {
		client.enqueue(payload)
	}
}

func (c *Client) enqueue(payload []byte) {
	select {
	case <-c.ctx.Done():
	case c.send <- payload:
	default:
		logger.Warnf("client %s send buffer full, dropping connection", c.id)
		c.cancel()
		c.socket.Close()
	}
}

func (c *Client) busPump(pubsub *redis.PubSub) {
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.enqueue([]byte(msg.Payload))
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warnf("client %s read error: %v", c.id, err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warnf("client %s sent malformed message: %v", c.id, err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for {
		select {
		case <-c.ctx.Done():
			c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg inboundMessage) {
	ctx := context.Background()

	switch msg.Type {
	case "START_GAME":
		var payload startGamePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			logger.Warnf("client %s sent bad START_GAME payload: %v", c.id, err)
			return
		}
		if payload.NumQuestions < 1 || payload.NumQuestions > 20 {
			c.sendEvent("error", gin.H{"message": "num_questions must be between 1 and 20."})
			return
		}
		if err := c.hub.gameService.StartGame(ctx, c.roomCode, payload.Theme, payload.NumQuestions); err != nil {
			// Start failures are already broadcast to the room.
			logger.Warnf("start game in room %s: %v", c.roomCode, err)
		}

	case "SUBMIT_ANSWER":
		var payload submitAnswerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			logger.Warnf("client %s sent bad SUBMIT_ANSWER payload: %v", c.id, err)
			return
		}
		err := c.hub.gameService.SubmitAnswer(ctx, c.roomCode, c.userID, payload.QuestionID, payload.AnswerText)
		var dup *DuplicateSubmissionError
		if errors.As(err, &dup) {
			c.sendEvent("duplicate_answer", gin.H{"message": dup.Message})
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.Errorf("submit answer in room %s: %v", c.roomCode, err)
			c.sendEvent("error", gin.H{"message": "Could not record your answer."})
		}

	case "SUBMIT_VOTE":
		var payload submitVotePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			logger.Warnf("client %s sent bad SUBMIT_VOTE payload: %v", c.id, err)
			return
		}
		if err := c.hub.gameService.SubmitVote(ctx, c.roomCode, c.userID, payload.AnswerID); err != nil {
			logger.Errorf("submit vote in room %s: %v", c.roomCode, err)
			c.sendEvent("error", gin.H{"message": "Could not record your vote."})
		}

	default:
		logger.Warnf("client %s sent unknown message type %q", c.id, msg.Type)
	}
}

// sendEvent delivers an event to this client only, bypassing the bus.
func (c *Client) sendEvent(event string, fields gin.H) {
	payload, err := encodeEvent(event, fields)
	if err != nil {
		logger.Errorf("marshal %s event for client %s: %v", event, c.id, err)
		return
	}
	c.enqueue(payload)
}
