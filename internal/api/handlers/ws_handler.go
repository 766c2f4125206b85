package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/deepinterview/deepinterview/internal/services"
	"github.com/deepinterview/deepinterview/internal/utils"
)

type WSHandler struct {
	sessions services.SessionService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions services.SessionService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		redis:    rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId"`
	Question       string `json:"question"`
	ExpectedTopics string `json:"expectedTopics"`
	QuestionIndex  int    `json:"questionIndex"`
	Response       string `json:"response"`
}

type wsEvent struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId,omitempty"`
	Question       string `json:"question,omitempty"`
	ExpectedTopics string `json:"expectedTopics,omitempty"`
	QuestionIndex  int    `json:"questionIndex,omitempty"`
	Response       string `json:"response,omitempty"`
	Message        string `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

func roomChannel(sessionID string) string { return "interview:" + sessionID }

// InterviewWS joins a client to the per-session room. All room members
// on any instance receive question/response events via Redis pub/sub.
// Delivery is at-most-once; there is no replay for late joiners.
func (h *WSHandler) InterviewWS(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.InterviewWS", "missing session id", nil))
		return
	}

	// Resolve the session first so dangling ids still get the recovery
	// session policy before the socket opens.
	if _, err := h.sessions.Get(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, roomChannel(sessionID))
	defer pubsub.Close()

	// Redis -> WS fan-out.
	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				if werr := wc.writeJSON(json.RawMessage(m.Payload)); werr != nil {
					cancel()
					return
				}
			}
		}
	}()

	// WS -> Redis.
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeJSON(wsEvent{Type: "error", Message: "invalid json"})
			continue
		}

		switch msg.Type {
		case "join_interview":
			_ = wc.writeJSON(wsEvent{Type: "joined_interview", SessionID: sessionID})

		case "send_question":
			if msg.Question == "" {
				_ = wc.writeJSON(wsEvent{Type: "error", Message: "question is required"})
				continue
			}
			h.publish(ctx, sessionID, wsEvent{
				Type:           "receive_question",
				SessionID:      sessionID,
				Question:       msg.Question,
				ExpectedTopics: msg.ExpectedTopics,
				QuestionIndex:  msg.QuestionIndex,
			})

		case "send_response":
			if msg.Response == "" {
				_ = wc.writeJSON(wsEvent{Type: "error", Message: "response is required"})
				continue
			}
			h.publish(ctx, sessionID, wsEvent{
				Type:          "receive_response",
				SessionID:     sessionID,
				QuestionIndex: msg.QuestionIndex,
				Response:      msg.Response,
			})

		default:
			_ = wc.writeJSON(wsEvent{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *WSHandler) publish(ctx context.Context, sessionID string, ev wsEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = h.redis.Publish(ctx, roomChannel(sessionID), raw).Err()
}
