package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// RoomEvent is one message on the per-session interview room.
type RoomEvent struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId,omitempty"`
	Question       string `json:"question,omitempty"`
	ExpectedTopics string `json:"expectedTopics,omitempty"`
	QuestionIndex  int    `json:"questionIndex,omitempty"`
	Response       string `json:"response,omitempty"`
	Message        string `json:"message,omitempty"`
}

// RoomClient is a live connection to one interview room. Events are
// delivered on Events() until Close or a read error; there is no
// replay of messages sent before the join.
type RoomClient struct {
	conn   *websocket.Conn
	events chan RoomEvent

	mu     sync.Mutex
	closed bool
}

// JoinRoom dials the interview websocket and announces the join.
func JoinRoom(ctx context.Context, baseURL, sessionID, token string) (*RoomClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws/interview/" + url.PathEscape(sessionID)

	header := map[string][]string{}
	if token != "" {
		header["Authorization"] = []string{"Bearer " + token}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, normalizeTransport(err, false)
	}

	rc := &RoomClient{
		conn:   conn,
		events: make(chan RoomEvent, 16),
	}
	go rc.readLoop()

	if err := rc.send(RoomEvent{Type: "join_interview", SessionID: sessionID}); err != nil {
		rc.Close()
		return nil, err
	}
	return rc, nil
}

func (rc *RoomClient) Events() <-chan RoomEvent { return rc.events }

func (rc *RoomClient) SendQuestion(question, expectedTopics string, index int) error {
	return rc.send(RoomEvent{
		Type:           "send_question",
		Question:       question,
		ExpectedTopics: expectedTopics,
		QuestionIndex:  index,
	})
}

func (rc *RoomClient) SendResponse(response string, index int) error {
	return rc.send(RoomEvent{
		Type:          "send_response",
		Response:      response,
		QuestionIndex: index,
	})
}

func (rc *RoomClient) send(ev RoomEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return websocket.ErrCloseSent
	}
	rc.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return rc.conn.WriteMessage(websocket.TextMessage, raw)
}

func (rc *RoomClient) readLoop() {
	defer close(rc.events)
	for {
		_, data, err := rc.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev RoomEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		rc.events <- ev
	}
}

func (rc *RoomClient) Close() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return nil
	}
	rc.closed = true
	_ = rc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return rc.conn.Close()
}
